package sqlinline

// QEnsureSchema creates the gateway tables when they are missing. It runs
// without arguments so pgx sends it over the simple protocol.
const QEnsureSchema = `--sql 5d9f7678-14d2-4fc0-8f9e-26b5b415ca6a
create table if not exists request_history (
    id uuid primary key default gen_random_uuid(),
    request_id text not null default '',
    kind text not null,
    provider text not null default '',
    prompt text not null default '',
    input_bytes bigint not null default 0,
    output_bytes bigint not null default 0,
    status text not null,
    error text not null default '',
    duration_ms bigint not null default 0,
    storage_key text not null default '',
    created_at timestamptz not null default now()
);
create index if not exists request_history_created_at_idx on request_history (created_at desc);
create table if not exists integration_tokens (
    id uuid primary key default gen_random_uuid(),
    provider text not null unique,
    token text not null,
    properties jsonb not null default '{}'::jsonb,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
`

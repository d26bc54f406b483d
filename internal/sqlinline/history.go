package sqlinline

const QInsertHistory = `--sql 2315c96f-ec02-4278-a4ce-b1635a541f1d
insert into request_history (
    request_id, kind, provider, prompt, input_bytes, output_bytes,
    status, error, duration_ms, storage_key
)
values ($1::text, $2::text, $3::text, $4::text, $5::bigint, $6::bigint, $7::text, $8::text, $9::bigint, $10::text)
returning id::text, created_at;
`

const QSelectRecentHistory = `--sql fc4249ca-eac2-40ad-9827-efdb820b728c
select
    id::text, request_id, kind, provider, prompt, input_bytes, output_bytes,
    status, error, duration_ms, storage_key, created_at
from request_history
order by created_at desc
limit $1::int;
`

const QPruneHistory = `--sql 12e6d7a4-d045-4f74-96d6-c5451a25c143
delete from request_history
where created_at < $1::timestamptz
returning storage_key;
`

package repo

import (
	"context"
	"fmt"
	"time"

	"gateway/internal/domain"
	"gateway/internal/infra"
	"gateway/internal/sqlinline"
)

const maxRecentHistory = 200

// HistoryRepo stores request history rows in Postgres.
type HistoryRepo struct {
	sql infra.SQLExecutor
}

// NewHistoryRepo creates a history repository on top of a marker-checked executor.
func NewHistoryRepo(sql infra.SQLExecutor) *HistoryRepo {
	return &HistoryRepo{sql: sql}
}

// EnsureSchema creates the tables the gateway writes to.
func (r *HistoryRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QEnsureSchema); err != nil {
		return fmt.Errorf("repo: ensure schema: %w", err)
	}
	return nil
}

// Record inserts entry and fills in its ID and CreatedAt.
func (r *HistoryRepo) Record(ctx context.Context, entry *domain.HistoryEntry) error {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertHistory,
		entry.RequestID,
		string(entry.Kind),
		entry.Provider,
		entry.Prompt,
		entry.InputBytes,
		entry.OutputBytes,
		string(entry.Status),
		entry.Error,
		entry.DurationMS,
		entry.StorageKey,
	)
	if err := row.Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return fmt.Errorf("repo: insert history: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (r *HistoryRepo) Recent(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 || limit > maxRecentHistory {
		limit = maxRecentHistory
	}
	rows, err := r.sql.Query(ctx, sqlinline.QSelectRecentHistory, limit)
	if err != nil {
		return nil, fmt.Errorf("repo: select history: %w", err)
	}
	defer rows.Close()

	var out []domain.HistoryEntry
	for rows.Next() {
		var (
			e            domain.HistoryEntry
			kind, status string
		)
		if err := rows.Scan(
			&e.ID, &e.RequestID, &kind, &e.Provider, &e.Prompt, &e.InputBytes, &e.OutputBytes,
			&status, &e.Error, &e.DurationMS, &e.StorageKey, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("repo: scan history: %w", err)
		}
		e.Kind = domain.Kind(kind)
		e.Status = domain.HistoryStatus(status)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: iterate history: %w", err)
	}
	return out, nil
}

// PruneOlderThan deletes rows created before cutoff and returns the storage
// keys they referenced.
func (r *HistoryRepo) PruneOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QPruneHistory, cutoff)
	if err != nil {
		return nil, fmt.Errorf("repo: prune history: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("repo: scan pruned key: %w", err)
		}
		if key != "" {
			keys = append(keys, key)
		}
	}
	return keys, rows.Err()
}

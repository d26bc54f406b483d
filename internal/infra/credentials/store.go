package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gateway/internal/infra"
	"gateway/internal/sqlinline"
)

// Upstream providers whose tokens can be stored in the database.
const (
	ProviderWorkersAI = "workersai"
	ProviderOpenAI    = "openai"
	ProviderRemoval   = "removal"
)

// Providers lists every provider name accepted by the store.
var Providers = []string{ProviderWorkersAI, ProviderOpenAI, ProviderRemoval}

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// Token returns the stored token for provider, or "" when none is stored.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	if err := validProvider(provider); err != nil {
		return "", err
	}
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("credentials: select %s token: %w", provider, err)
	}
	return strings.TrimSpace(token), nil
}

// Resolve prefers the configured value and falls back to the stored token.
func (s *Store) Resolve(ctx context.Context, provider, configured string) (string, error) {
	if v := strings.TrimSpace(configured); v != "" {
		return v, nil
	}
	if s == nil {
		return "", nil
	}
	return s.Token(ctx, provider)
}

func (s *Store) SetToken(ctx context.Context, provider, token string, props map[string]any) error {
	if err := validProvider(provider); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("credentials: %s token is required", provider)
	}
	if props == nil {
		props = map[string]any{}
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return err
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw); err != nil {
		return fmt.Errorf("credentials: upsert %s token: %w", provider, err)
	}
	return nil
}

func (s *Store) DeleteToken(ctx context.Context, provider string) error {
	if err := validProvider(provider); err != nil {
		return err
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QDeleteIntegrationToken, provider); err != nil {
		return fmt.Errorf("credentials: delete %s token: %w", provider, err)
	}
	return nil
}

func validProvider(provider string) error {
	for _, p := range Providers {
		if p == provider {
			return nil
		}
	}
	return fmt.Errorf("credentials: unknown provider %q", provider)
}

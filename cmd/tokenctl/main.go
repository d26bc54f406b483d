package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"gateway/internal/infra"
	"gateway/internal/infra/credentials"
)

// tokenStore is the part of credentials.Store the command drives.
type tokenStore interface {
	SetToken(ctx context.Context, provider, token string, props map[string]any) error
	DeleteToken(ctx context.Context, provider string) error
}

var envKeys = map[string]string{
	credentials.ProviderWorkersAI: "WORKERS_AI_API_TOKEN",
	credentials.ProviderOpenAI:    "OPENAI_API_KEY",
	credentials.ProviderRemoval:   "REMOVAL_API_KEY",
}

type options struct {
	provider string
	token    string
	remove   bool
}

func main() {
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.provider, "provider", credentials.ProviderWorkersAI, "Provider to configure (workersai, openai or removal)")
	flag.StringVar(&opts.token, "token", "", "Token for the selected provider (fallbacks to environment)")
	flag.BoolVar(&opts.remove, "delete", false, "Remove the stored token instead of setting it")
	flag.Parse()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "tokenctl").Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))

	if err := run(ctx, store, opts, os.Getenv, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		pool.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, store tokenStore, opts options, getenv func(string) string, out io.Writer) error {
	provider := strings.TrimSpace(strings.ToLower(opts.provider))
	if provider == "" {
		provider = credentials.ProviderWorkersAI
	}
	envKey, ok := envKeys[provider]
	if !ok {
		return fmt.Errorf("unsupported provider %q", opts.provider)
	}

	if opts.remove {
		if err := store.DeleteToken(ctx, provider); err != nil {
			return fmt.Errorf("failed to delete %s token: %w", provider, err)
		}
		fmt.Fprintf(out, "%s token deleted\n", strings.ToUpper(provider))
		return nil
	}

	token := strings.TrimSpace(opts.token)
	if token == "" {
		token = strings.TrimSpace(getenv(envKey))
	}
	if token == "" {
		return fmt.Errorf("%s token is required via -token or %s", strings.ToUpper(provider), envKey)
	}

	props := map[string]any{"source": "tokenctl", "stored_at": time.Now().UTC().Format(time.RFC3339)}
	if err := store.SetToken(ctx, provider, token, props); err != nil {
		return fmt.Errorf("failed to persist %s token: %w", provider, err)
	}
	fmt.Fprintf(out, "%s token stored successfully\n", strings.ToUpper(provider))
	return nil
}

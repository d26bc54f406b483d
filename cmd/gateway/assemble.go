package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"gateway/internal/adapter/repo"
	"gateway/internal/http/handlers"
	"gateway/internal/infra"
	"gateway/internal/infra/credentials"
	"gateway/internal/infra/geoip"
	"gateway/internal/middleware"
	"gateway/internal/providers/image"
	"gateway/internal/providers/removal"
	"gateway/internal/providers/workersai"
	"gateway/internal/storage"
)

type gatewayDeps struct {
	app            *handlers.App
	countryLookup  middleware.CountryLookup
	rateLimitStore middleware.RateLimitStore
	generatorName  string
	removerName    string
	historyEnabled bool
	closers        []func(context.Context) error
}

func (d *gatewayDeps) close(ctx context.Context) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		_ = d.closers[i](ctx)
	}
}

// assemble builds every collaborator named by cfg. Postgres, Redis, GeoIP and
// output persistence are optional.
func assemble(ctx context.Context, cfg *infra.Config, logger infra.Logger) (_ *gatewayDeps, err error) {
	deps := &gatewayDeps{}
	defer func() {
		if err != nil {
			deps.close(ctx)
		}
	}()
	handlerDeps := handlers.Deps{Config: cfg, Logger: logger}

	var tokens *credentials.Store
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		deps.closers = append(deps.closers, closePool(pool))
		runner := infra.NewSQLRunner(pool, logger)
		history := repo.NewHistoryRepo(runner)
		if err := history.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		handlerDeps.History = history
		deps.historyEnabled = true
		tokens = credentials.NewStore(runner)
	}

	workersToken, err := tokens.Resolve(ctx, credentials.ProviderWorkersAI, cfg.WorkersAIAPIToken)
	if err != nil {
		return nil, err
	}
	openAIKey, err := tokens.Resolve(ctx, credentials.ProviderOpenAI, cfg.OpenAIAPIKey)
	if err != nil {
		return nil, err
	}
	removalKey, err := tokens.Resolve(ctx, credentials.ProviderRemoval, cfg.RemovalAPIKey)
	if err != nil {
		return nil, err
	}

	upstreamHTTP := &http.Client{Timeout: cfg.UpstreamTimeout + cfg.UpstreamTimeout/2}
	workers, err := workersai.NewClient(workersai.Options{
		AccountID:  cfg.WorkersAIAccountID,
		APIToken:   workersToken,
		BaseURL:    cfg.WorkersAIBaseURL,
		HTTPClient: upstreamHTTP,
		Logger:     &logger,
	})
	if err != nil {
		return nil, err
	}

	generator, err := buildGenerator(cfg, workers, openAIKey, upstreamHTTP)
	if err != nil {
		return nil, err
	}
	handlerDeps.Generator = generator
	deps.generatorName = image.ProviderName(generator)

	remover, err := buildRemover(ctx, cfg, workers, removalKey, upstreamHTTP, &logger)
	if err != nil {
		return nil, err
	}
	if c, ok := remover.(*removal.WASMRemover); ok {
		deps.closers = append(deps.closers, c.Close)
	}
	handlerDeps.Remover = remover
	deps.removerName = remover.Name()

	if cfg.PersistOutputs() {
		store, err := storage.NewFileStore(cfg.OutputDir)
		if err != nil {
			return nil, err
		}
		handlerDeps.Store = store
	}

	deps.rateLimitStore = middleware.NewMemoryStore()
	if cfg.RedisURL != "" {
		client, err := infra.NewRedisClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		deps.closers = append(deps.closers, closeRedis(client))
		deps.rateLimitStore = middleware.NewRedisStore(client, "gateway:ratelimit:")
	}

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if resolver != nil {
		deps.countryLookup = resolver.CountryCode
		if c, ok := resolver.(io.Closer); ok {
			deps.closers = append(deps.closers, func(context.Context) error { return c.Close() })
		}
	}

	deps.app = handlers.NewApp(handlerDeps)
	return deps, nil
}

func buildGenerator(cfg *infra.Config, workers *workersai.Client, openAIKey string, httpClient *http.Client) (image.Generator, error) {
	var openAI image.Generator
	if openAIKey != "" {
		g, err := image.NewOpenAIGenerator(image.OpenAIOptions{
			APIKey:     openAIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIImageModel,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, err
		}
		openAI = g
	}

	switch cfg.ImageProvider {
	case infra.ImageProviderOpenAI:
		if openAI == nil {
			return nil, fmt.Errorf("IMAGE_PROVIDER=openai requires OPENAI_API_KEY or a stored openai token")
		}
		return openAI, nil
	default:
		if !workers.HasCredentials() && openAI == nil {
			return nil, fmt.Errorf("IMAGE_PROVIDER=workersai requires WORKERS_AI_ACCOUNT_ID and WORKERS_AI_API_TOKEN")
		}
		return image.NewWorkersAIGenerator(workers, cfg.WorkersAIImageModel, openAI), nil
	}
}

func buildRemover(ctx context.Context, cfg *infra.Config, workers *workersai.Client, apiKey string, httpClient *http.Client, logger *infra.Logger) (removal.Remover, error) {
	switch cfg.RemoverProvider {
	case infra.RemoverProviderWASM:
		r, err := removal.LoadWASMRemover(ctx, cfg.WASMModelPath, logger)
		if err != nil {
			return nil, err
		}
		return r, nil
	case infra.RemoverProviderWorkersAI:
		if !workers.HasCredentials() {
			return nil, fmt.Errorf("REMOVER_PROVIDER=workersai requires WORKERS_AI_ACCOUNT_ID and WORKERS_AI_API_TOKEN")
		}
		return removal.NewWorkersAIRemover(workers, cfg.WorkersAIRemovalModel), nil
	default:
		r, err := removal.NewHTTPRemover(removal.HTTPOptions{
			Endpoint:   cfg.RemovalAPIURL,
			APIKey:     apiKey,
			HTTPClient: httpClient,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	}
}

func closePool(pool *pgxpool.Pool) func(context.Context) error {
	return func(context.Context) error {
		pool.Close()
		return nil
	}
}

func closeRedis(client *redis.Client) func(context.Context) error {
	return func(context.Context) error { return client.Close() }
}

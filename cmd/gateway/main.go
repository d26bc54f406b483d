package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpapi "gateway/internal/http/httpapi"
	"gateway/internal/infra"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := assemble(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("gateway: startup failed")
	}
	defer deps.close(context.Background())

	router := httpapi.NewRouter(deps.app, httpapi.Options{
		Logger:          logger,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   deps.countryLookup,
		RateLimitStore:  deps.rateLimitStore,
		RateLimitPerMin: cfg.RateLimitPerMin,
		CORSOrigins:     cfg.CORSOrigins,

		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})
	server := infra.NewHTTPServer(cfg, router, logger)

	go func() {
		logger.Info().
			Str("addr", server.Addr()).
			Str("generator", deps.generatorName).
			Str("remover", deps.removerName).
			Bool("persist_outputs", cfg.PersistOutputs()).
			Bool("history", deps.historyEnabled).
			Msg("gateway listening")
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

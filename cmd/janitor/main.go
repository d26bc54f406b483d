package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gateway/internal/adapter/repo"
	"gateway/internal/infra"
	"gateway/internal/storage"
)

func main() {
	_ = godotenv.Load()

	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "janitor").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	j := &janitor{
		retention: cfg.OutputRetention,
		logger:    logger,
		now:       time.Now,
	}

	if cfg.PersistOutputs() {
		store, err := storage.NewFileStore(cfg.OutputDir)
		if err != nil {
			logger.Fatal().Err(err).Msg("janitor: failed to configure storage")
		}
		j.objects = store
	}

	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("janitor: db connection failed")
		}
		defer pool.Close()
		j.history = repo.NewHistoryRepo(infra.NewSQLRunner(pool, logger))
	}

	if j.objects == nil && j.history == nil {
		logger.Info().Msg("janitor: neither OUTPUT_DIR nor DATABASE_URL set, nothing to do")
		return
	}

	if *once {
		if _, err := j.runOnce(ctx); err != nil {
			logger.Fatal().Err(err).Msg("janitor: sweep failed")
		}
		return
	}

	if err := j.run(ctx, cfg.JanitorInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("janitor: stopped with error")
	}
	logger.Info().Msg("janitor: stopped")
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"gateway/internal/domain"
	"gateway/internal/infra"
	"gateway/internal/providers/image"
	"gateway/internal/providers/removal"
)

// ResultStore persists successful results so they can be served from
// /outputs/{name}.
type ResultStore interface {
	SaveResult(ctx context.Context, ext string, data []byte) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
}

// HistoryStore records processed requests.
type HistoryStore interface {
	Record(ctx context.Context, entry *domain.HistoryEntry) error
	Recent(ctx context.Context, limit int) ([]domain.HistoryEntry, error)
}

// Deps groups the collaborators of App. Store and History are optional.
type Deps struct {
	Config    *infra.Config
	Logger    zerolog.Logger
	Generator image.Generator
	Remover   removal.Remover
	Store     ResultStore
	History   HistoryStore
}

type App struct {
	cfg       *infra.Config
	logger    zerolog.Logger
	generator image.Generator
	remover   removal.Remover
	store     ResultStore
	history   HistoryStore
	now       func() time.Time
}

func NewApp(d Deps) *App {
	return &App{
		cfg:       d.Config,
		logger:    d.Logger.With().Str("component", "handlers").Logger(),
		generator: d.Generator,
		remover:   d.Remover,
		store:     d.Store,
		history:   d.History,
		now:       time.Now,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) sampling() domain.SamplingParams {
	s := a.cfg.Sampling
	return domain.SamplingParams{
		NegativePrompt: s.NegativePrompt,
		Steps:          s.Steps,
		Width:          s.Width,
		Height:         s.Height,
	}
}

// persist stores a successful result and returns its key. Failures are logged
// and never fail the request.
func (a *App) persist(ctx context.Context, result *domain.ImageResult) string {
	if a.store == nil || result == nil {
		return ""
	}
	key, err := a.store.SaveResult(ctx, extensionFor(result.ContentType), result.Data)
	if err != nil {
		a.logger.Warn().Err(err).Msg("persist result failed")
		return ""
	}
	return key
}

// record writes a history row detached from the request context so a client
// disconnect does not drop it.
func (a *App) record(ctx context.Context, entry domain.HistoryEntry) {
	if a.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := a.history.Record(ctx, &entry); err != nil {
		a.logger.Warn().Err(err).Str("request_id", entry.RequestID).Msg("record history failed")
	}
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

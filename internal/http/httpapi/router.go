package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"gateway/internal/http/handlers"
	"gateway/internal/middleware"
)

// Options configures the cross-cutting middleware around the handlers.
type Options struct {
	Logger          zerolog.Logger
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	RateLimitStore  middleware.RateLimitStore
	RateLimitPerMin int
	CORSOrigins     []string
	// TrustProxyHeaders enables chi's RealIP. Without it X-Forwarded-For and
	// X-Real-IP are ignored for rate limiting.
	TrustProxyHeaders bool
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if opts.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.CORSOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
		middleware.RateLimit(opts.RateLimitStore, opts.RateLimitPerMin, time.Minute, opts.Logger),
	)

	r.NotFound(app.NotFound)
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		if allowed := allowedMethods(r, req.URL.Path); allowed != "" {
			w.Header().Set("Allow", allowed)
		}
		app.MethodNotAllowed(w, req)
	})

	r.Get("/", app.Home)
	r.Get("/index", app.Home)
	r.Get("/generate", app.GenerateForm)
	r.Post("/generate", app.Generate)
	r.Get("/remove", app.RemoveForm)
	r.Post("/remove", app.Remove)
	r.Post("/process", app.Remove)
	r.Get("/outputs/{name}", app.Output)
	r.Get("/history", app.History)
	r.Get("/healthz", app.Health)

	return r
}

func allowedMethods(routes chi.Routes, path string) string {
	var allowed []string
	for _, m := range []string{http.MethodGet, http.MethodPost} {
		if routes.Match(chi.NewRouteContext(), m, path) {
			allowed = append(allowed, m)
		}
	}
	return strings.Join(allowed, ", ")
}

package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"gateway/internal/domain"
	"gateway/internal/http/handlers"
	"gateway/internal/infra"
	"gateway/internal/middleware"
)

type okGenerator struct{}

func (okGenerator) Generate(context.Context, domain.GenerationRequest) (*domain.ImageResult, error) {
	return &domain.ImageResult{Data: []byte("png"), ContentType: domain.PNG}, nil
}

type okRemover struct{}

func (okRemover) Remove(context.Context, domain.RemovalRequest) (*domain.ImageResult, error) {
	return &domain.ImageResult{Data: []byte("png"), ContentType: domain.PNG}, nil
}

func (okRemover) Name() string { return "ok" }

func newTestRouter(rateLimit int) http.Handler {
	return newTestRouterWithProxy(rateLimit, false)
}

func newTestRouterWithProxy(rateLimit int, trustProxy bool) http.Handler {
	app := handlers.NewApp(handlers.Deps{
		Config: &infra.Config{
			MaxUploadBytes:  1024,
			MaxPromptLength: 500,
			UpstreamTimeout: time.Second,
		},
		Logger:    zerolog.Nop(),
		Generator: okGenerator{},
		Remover:   okRemover{},
	})
	return NewRouter(app, Options{
		Logger:          zerolog.Nop(),
		DefaultLocale:   "en",
		RateLimitStore:  middleware.NewMemoryStore(),
		RateLimitPerMin: rateLimit,

		TrustProxyHeaders: trustProxy,
	})
}

func TestRouterStatusCodes(t *testing.T) {
	tests := []struct {
		method    string
		path      string
		wantCode  int
		wantAllow string
	}{
		{method: http.MethodGet, path: "/", wantCode: http.StatusOK},
		{method: http.MethodGet, path: "/index", wantCode: http.StatusOK},
		{method: http.MethodGet, path: "/generate", wantCode: http.StatusOK},
		{method: http.MethodGet, path: "/remove", wantCode: http.StatusOK},
		{method: http.MethodGet, path: "/healthz", wantCode: http.StatusOK},
		{method: http.MethodGet, path: "/does-not-exist", wantCode: http.StatusNotFound},
		{method: http.MethodPost, path: "/does-not-exist", wantCode: http.StatusNotFound},
		{method: http.MethodPut, path: "/generate", wantCode: http.StatusMethodNotAllowed, wantAllow: "GET, POST"},
		{method: http.MethodDelete, path: "/remove", wantCode: http.StatusMethodNotAllowed, wantAllow: "GET, POST"},
		{method: http.MethodPatch, path: "/", wantCode: http.StatusMethodNotAllowed, wantAllow: "GET"},
		{method: http.MethodOptions, path: "/generate", wantCode: http.StatusMethodNotAllowed, wantAllow: "GET, POST"},
		{method: http.MethodGet, path: "/process", wantCode: http.StatusMethodNotAllowed, wantAllow: "POST"},
	}
	router := newTestRouter(0)
	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
			if rec.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantCode)
			}
			if tc.wantAllow != "" && rec.Header().Get("Allow") != tc.wantAllow {
				t.Fatalf("Allow = %q, want %q", rec.Header().Get("Allow"), tc.wantAllow)
			}
			if rec.Header().Get(middleware.RequestIDHeader) == "" {
				t.Fatalf("missing request id header")
			}
		})
	}
}

func TestRouterGenerateAndProcess(t *testing.T) {
	router := newTestRouter(0)

	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(url.Values{"prompt": {"fox"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "png" {
		t.Fatalf("generate status = %d body=%q", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/process", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("process without upload status = %d, want 400", rec.Code)
	}
}

func TestRouterRateLimitsPosts(t *testing.T) {
	router := newTestRouter(1)
	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader("prompt=fox"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.RemoteAddr = "198.51.100.7:5555"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}
	if got := send(); got != http.StatusOK {
		t.Fatalf("first POST = %d", got)
	}
	if got := send(); got != http.StatusTooManyRequests {
		t.Fatalf("second POST = %d, want 429", got)
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/generate", nil)
	req.RemoteAddr = "198.51.100.7:5555"
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET after limit = %d", rec.Code)
	}
}

func TestRouterRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		want       []int
	}{
		{name: "direct", want: []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}},
		{name: "behind trusted proxy", trustProxy: true, want: []int{http.StatusOK, http.StatusOK, http.StatusOK}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouterWithProxy(1, tc.trustProxy)
			for i, xff := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
				req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader("prompt=fox"))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				req.Header.Set("X-Forwarded-For", xff)
				req.RemoteAddr = "198.51.100.7:5555"
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)
				if rec.Code != tc.want[i] {
					t.Fatalf("POST %d with X-Forwarded-For %s = %d, want %d", i+1, xff, rec.Code, tc.want[i])
				}
			}
		})
	}
}

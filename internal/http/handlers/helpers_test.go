package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"gateway/internal/domain"
	"gateway/internal/infra"
	"gateway/internal/storage"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

type stubGenerator struct {
	mu     sync.Mutex
	result *domain.ImageResult
	err    error
	block  bool
	calls  int
	got    domain.GenerationRequest
}

func (s *stubGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.ImageResult, error) {
	s.mu.Lock()
	s.calls++
	s.got = req
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return nil, domain.NewUpstreamError("stub-gen", ctx.Err())
	}
	return s.result, s.err
}

func (s *stubGenerator) Name() string { return "stub-gen" }

type stubRemover struct {
	mu     sync.Mutex
	result *domain.ImageResult
	err    error
	block  bool
	calls  int
	got    domain.RemovalRequest
}

func (s *stubRemover) Remove(ctx context.Context, req domain.RemovalRequest) (*domain.ImageResult, error) {
	s.mu.Lock()
	s.calls++
	s.got = req
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return nil, domain.NewUpstreamError("stub-remover", ctx.Err())
	}
	return s.result, s.err
}

func (s *stubRemover) Name() string { return "stub-remover" }

type memStore struct {
	mu    sync.Mutex
	data  map[string][]byte
	seq   int
	fails bool
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (m *memStore) SaveResult(ctx context.Context, ext string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fails {
		return "", fmt.Errorf("disk full")
	}
	m.seq++
	key := fmt.Sprintf("00000000-0000-4000-8000-%012d%s", m.seq, ext)
	m.data[key] = append([]byte(nil), data...)
	return key, nil
}

func (m *memStore) Read(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

type memHistory struct {
	mu      sync.Mutex
	entries []domain.HistoryEntry
	err     error
}

func (m *memHistory) Record(ctx context.Context, entry *domain.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = fmt.Sprintf("h-%d", len(m.entries)+1)
	entry.CreatedAt = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memHistory) Recent(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.HistoryEntry, 0, len(m.entries))
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

const historyToken = "history-admin-token"

func testConfig() *infra.Config {
	return &infra.Config{
		MaxUploadBytes:  1024,
		MaxPromptLength: 500,
		UpstreamTimeout: 2 * time.Second,
		Sampling: infra.Sampling{
			NegativePrompt: "blurry",
			Steps:          20,
			Width:          1024,
			Height:         1024,
		},
	}
}

type fixture struct {
	app       *App
	router    http.Handler
	generator *stubGenerator
	remover   *stubRemover
	store     *memStore
	history   *memHistory
}

type fixtureOption func(*Deps, *fixture)

func withStore() fixtureOption {
	return func(d *Deps, f *fixture) {
		f.store = newMemStore()
		d.Store = f.store
	}
}

func withHistory() fixtureOption {
	return func(d *Deps, f *fixture) {
		f.history = &memHistory{}
		d.History = f.history
		d.Config.HistoryToken = historyToken
	}
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	f := &fixture{
		generator: &stubGenerator{result: &domain.ImageResult{Data: pngBytes, ContentType: domain.PNG, Provider: "stub-gen"}},
		remover:   &stubRemover{result: &domain.ImageResult{Data: pngBytes, ContentType: domain.PNG}},
	}
	deps := Deps{
		Config:    testConfig(),
		Logger:    zerolog.Nop(),
		Generator: f.generator,
		Remover:   f.remover,
	}
	for _, opt := range opts {
		opt(&deps, f)
	}
	f.app = NewApp(deps)

	r := chi.NewRouter()
	r.Get("/", f.app.Home)
	r.Get("/generate", f.app.GenerateForm)
	r.Post("/generate", f.app.Generate)
	r.Get("/remove", f.app.RemoveForm)
	r.Post("/remove", f.app.Remove)
	r.Get("/outputs/{name}", f.app.Output)
	r.Get("/history", f.app.History)
	r.Get("/healthz", f.app.Health)
	f.router = r
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func formRequest(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func uploadRequest(t *testing.T, path, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		part, err := mw.CreateFormFile(field, "photo.png")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := io.Copy(part, bytes.NewReader(data)); err != nil {
			t.Fatalf("write part: %v", err)
		}
	} else {
		_ = mw.WriteField("note", "no file here")
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

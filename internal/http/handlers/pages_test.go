package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"gateway/internal/domain"
	"gateway/internal/middleware"
)

func TestPagesRenderSharedLayout(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{path: "/", want: []string{"<nav>", `href="/generate"`, `href="/remove"`, `aria-current="page"`}},
		{path: "/generate", want: []string{`name="prompt"`, `maxlength="500"`, "Up to 500 characters."}},
		{path: "/remove", want: []string{`enctype="multipart/form-data"`, `name="image"`, "Images up to 1 KiB."}},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			f := newFixture(t)
			rec := f.do(httptest.NewRequest(http.MethodGet, tc.path, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			body := rec.Body.String()
			if !strings.HasPrefix(body, "<!doctype html>") {
				t.Fatalf("missing doctype")
			}
			for _, w := range tc.want {
				if !strings.Contains(body, w) {
					t.Fatalf("body missing %q", w)
				}
			}
			if strings.Contains(body, `href="/history"`) {
				t.Fatalf("history link shown without a history store")
			}
		})
	}
}

func TestPagesUseRequestLocale(t *testing.T) {
	f := newFixture(t)
	h := middleware.I18N("en", nil)(f.router)
	req := httptest.NewRequest(http.MethodGet, "/generate", nil)
	req.Header.Set("Accept-Language", "id-ID,id;q=0.9")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, `<html lang="id">`) || !strings.Contains(body, "Deskripsikan gambar") {
		t.Fatalf("expected Indonesian copy, got %s", body)
	}
}

func TestNotFoundNegotiation(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.app.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("plain: status=%d type=%q", rec.Code, rec.Header().Get("Content-Type"))
	}

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	req.Header.Set("Accept", "text/html")
	rec = httptest.NewRecorder()
	f.app.NotFound(rec, req)
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "Page not found") {
		t.Fatalf("html: status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestOutputNotFound(t *testing.T) {
	tests := []struct {
		name  string
		store bool
		path  string
	}{
		{name: "persistence disabled", path: "/outputs/00000000-0000-4000-8000-000000000001.png"},
		{name: "unknown key", store: true, path: "/outputs/00000000-0000-4000-8000-000000000009.png"},
		{name: "invalid name", store: true, path: "/outputs/..%2Fsecret.png"},
		{name: "wrong extension", store: true, path: "/outputs/00000000-0000-4000-8000-000000000001.exe"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var opts []fixtureOption
			if tc.store {
				opts = append(opts, withStore())
			}
			f := newFixture(t, opts...)
			rec := f.do(httptest.NewRequest(http.MethodGet, tc.path, nil))
			if rec.Code != http.StatusNotFound {
				t.Fatalf("status = %d, want 404", rec.Code)
			}
		})
	}
}

func historyRequest(accept string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	req.Header.Set("Accept", accept)
	req.Header.Set("Authorization", "Bearer "+historyToken)
	return req
}

func TestHistoryPage(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(historyRequest("text/html")); rec.Code != http.StatusNotFound {
		t.Fatalf("status without store = %d, want 404", rec.Code)
	}

	f = newFixture(t, withHistory())
	_ = f.history.Record(context.Background(), &domain.HistoryEntry{Kind: domain.KindRemove, Provider: "removal-api", Status: domain.StatusSucceeded, DurationMS: 42})

	rec := f.do(historyRequest("text/html"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	for _, want := range []string{"Recent requests", "removal-api", "42 ms", `href="/history"`} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Fatalf("body missing %q", want)
		}
	}

	rec = f.do(historyRequest("application/json"))
	var payload struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Items) != 1 || payload.Items[0]["provider"] != "removal-api" {
		t.Fatalf("items = %+v", payload.Items)
	}
}

func TestHistoryHidesPrompts(t *testing.T) {
	f := newFixture(t, withHistory())
	rec := f.do(formRequest("/generate", url.Values{"prompt": {"my secret prompt"}}))
	if rec.Code != http.StatusOK {
		t.Fatalf("generate status = %d", rec.Code)
	}

	for _, accept := range []string{"application/json", "text/html"} {
		rec = f.do(historyRequest(accept))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", accept, rec.Code)
		}
		if strings.Contains(rec.Body.String(), "my secret prompt") {
			t.Fatalf("%s history exposes the prompt: %s", accept, rec.Body.String())
		}
	}
}

func TestHistoryRequiresAdminToken(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		value    string
		wantCode int
	}{
		{name: "anonymous", wantCode: http.StatusUnauthorized},
		{name: "wrong bearer", header: "Authorization", value: "Bearer nope", wantCode: http.StatusUnauthorized},
		{name: "basic scheme", header: "Authorization", value: "Basic " + historyToken, wantCode: http.StatusUnauthorized},
		{name: "bearer", header: "Authorization", value: "bearer " + historyToken, wantCode: http.StatusOK},
		{name: "admin header", header: "X-Admin-Token", value: historyToken, wantCode: http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, withHistory())
			req := httptest.NewRequest(http.MethodGet, "/history", nil)
			req.Header.Set("Accept", "application/json")
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			rec := f.do(req)
			if rec.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantCode)
			}
			if tc.wantCode == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Fatalf("missing WWW-Authenticate")
			}
		})
	}
}

func TestHistoryDisabledWithoutToken(t *testing.T) {
	f := newFixture(t, withHistory())
	f.app.cfg.HistoryToken = ""
	rec := f.do(historyRequest("application/json"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "text/html")
	if body := f.do(req).Body.String(); strings.Contains(body, `href="/history"`) {
		t.Fatalf("history link shown while history is disabled")
	}
}

func TestHistoryStoreError(t *testing.T) {
	f := newFixture(t, withHistory())
	f.history.err = errors.New("connection refused")
	rec := f.do(historyRequest("text/plain"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("database error leaked to client")
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["generator"] != "stub-gen" || body["remover"] != "stub-remover" {
		t.Fatalf("body = %v", body)
	}
}

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{n: 4 << 20, want: "4 MiB"},
		{n: 1024, want: "1 KiB"},
		{n: 1500, want: "1500 bytes"},
		{n: 3 * 1000 * 1000, want: "3000000 bytes"},
	}
	for _, tc := range tests {
		if got := humanBytes(tc.n); got != tc.want {
			t.Fatalf("humanBytes(%d) = %q, want %q", tc.n, got, tc.want)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: domain.NewValidationError("prompt", "bad"), want: http.StatusBadRequest},
		{name: "not found", err: domain.ErrNotFound, want: http.StatusNotFound},
		{name: "upstream", err: domain.NewUpstreamStatusError("x", 500, nil), want: http.StatusInternalServerError},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := statusFor(tc.err); got != tc.want {
				t.Fatalf("statusFor() = %d, want %d", got, tc.want)
			}
		})
	}
}

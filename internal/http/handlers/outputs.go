package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gateway/internal/storage"
)

var outputNamePattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.(png|jpg|webp)$`)

var outputTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"webp": "image/webp",
}

// Output serves a persisted result by its generated name.
func (a *App) Output(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	m := outputNamePattern.FindStringSubmatch(name)
	if a.store == nil || m == nil {
		a.NotFound(w, r)
		return
	}
	data, err := a.store.Read(r.Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			a.NotFound(w, r)
			return
		}
		a.fail(w, r, err, "", "")
		return
	}
	w.Header().Set("Content-Type", outputTypes[m[1]])
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

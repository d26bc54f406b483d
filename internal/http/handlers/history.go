package handlers

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gateway/internal/domain"
	"gateway/internal/i18n"
	"gateway/internal/middleware"
)

const defaultHistoryLimit = 50

type historyPage struct {
	Entries []domain.HistoryEntry
}

// historyItem is the JSON shape of a history row. Prompts stay private.
type historyItem struct {
	ID          string               `json:"id"`
	RequestID   string               `json:"request_id"`
	Kind        domain.Kind          `json:"kind"`
	Provider    string               `json:"provider"`
	InputBytes  int                  `json:"input_bytes"`
	OutputBytes int                  `json:"output_bytes"`
	Status      domain.HistoryStatus `json:"status"`
	Error       string               `json:"error,omitempty"`
	DurationMS  int64                `json:"duration_ms"`
	StorageKey  string               `json:"storage_key,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

func historyItems(entries []domain.HistoryEntry) []historyItem {
	items := make([]historyItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, historyItem{
			ID:          e.ID,
			RequestID:   e.RequestID,
			Kind:        e.Kind,
			Provider:    e.Provider,
			InputBytes:  e.InputBytes,
			OutputBytes: e.OutputBytes,
			Status:      e.Status,
			Error:       e.Error,
			DurationMS:  e.DurationMS,
			StorageKey:  e.StorageKey,
			CreatedAt:   e.CreatedAt,
		})
	}
	return items
}

// historyEnabled reports whether /history is served at all. It needs both a
// store and an admin token.
func (a *App) historyEnabled() bool {
	return a.history != nil && a.cfg != nil && a.cfg.HistoryToken != ""
}

// historyAuthorized accepts the admin token as a bearer token or in
// X-Admin-Token.
func (a *App) historyAuthorized(r *http.Request) bool {
	token := strings.TrimSpace(r.Header.Get("X-Admin-Token"))
	if auth := r.Header.Get("Authorization"); token == "" && len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		token = strings.TrimSpace(auth[7:])
	}
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(a.cfg.HistoryToken)) == 1
}

// History lists recent requests for operators holding the admin token. It is
// a 404 unless both a history store and HISTORY_ADMIN_TOKEN are configured.
func (a *App) History(w http.ResponseWriter, r *http.Request) {
	if !a.historyEnabled() {
		a.NotFound(w, r)
		return
	}
	if !a.historyAuthorized(r) {
		w.Header().Set("WWW-Authenticate", `Bearer realm="history"`)
		a.writeError(w, r, http.StatusUnauthorized, "unauthorized", "/")
		return
	}
	limit := defaultHistoryLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	entries, err := a.history.Recent(r.Context(), limit)
	if err != nil {
		a.logger.Error().Err(err).Msg("load history failed")
		a.writeError(w, r, http.StatusInternalServerError, "history unavailable", "/")
		return
	}
	if wantsJSON(r) {
		a.json(w, http.StatusOK, map[string]any{"items": historyItems(entries)})
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	a.render(w, r, http.StatusOK, i18n.T(locale, i18n.HistoryTitle), "history", historyPage{Entries: entries})
}

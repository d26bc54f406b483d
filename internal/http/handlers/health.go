package handlers

import (
	"net/http"

	"gateway/internal/providers/image"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if a.generator != nil {
		resp["generator"] = image.ProviderName(a.generator)
	}
	if a.remover != nil {
		resp["remover"] = a.remover.Name()
	}
	resp["persistence"] = a.store != nil
	resp["history"] = a.history != nil
	a.json(w, http.StatusOK, resp)
}

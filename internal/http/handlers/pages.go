package handlers

import (
	"net/http"

	"gateway/internal/i18n"
	"gateway/internal/middleware"
)

type generateForm struct {
	MaxPromptLength int
}

type removeForm struct {
	MaxUpload string
}

func (a *App) Home(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())
	a.render(w, r, http.StatusOK, i18n.T(locale, i18n.NavHome), "home", nil)
}

func (a *App) GenerateForm(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())
	a.render(w, r, http.StatusOK, i18n.T(locale, i18n.GenerateTitle), "generate", generateForm{
		MaxPromptLength: a.cfg.MaxPromptLength,
	})
}

func (a *App) RemoveForm(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())
	a.render(w, r, http.StatusOK, i18n.T(locale, i18n.RemoveTitle), "remove", removeForm{
		MaxUpload: humanBytes(a.cfg.MaxUploadBytes),
	})
}

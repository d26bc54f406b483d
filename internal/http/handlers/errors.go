package handlers

import (
	"errors"
	"net/http"

	"gateway/internal/domain"
	"gateway/internal/i18n"
	"gateway/internal/middleware"
)

type errorPage struct {
	Heading string
	Message string
	Back    string
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsTimeout(err):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err using the same negotiation as successful responses. prefix
// is prepended to collaborator failures, never to validation messages.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error, prefix, back string) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusBadRequest, http.StatusNotFound:
	case http.StatusGatewayTimeout:
		msg = prefix + "upstream timed out"
	default:
		msg = prefix + msg
	}

	event := a.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = a.logger.Error()
	}
	event.Err(err).
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Int("status", status).
		Msg("request failed")

	a.writeError(w, r, status, msg, back)
}

func (a *App) writeError(w http.ResponseWriter, r *http.Request, status int, msg, back string) {
	switch {
	case wantsHTML(r):
		locale := middleware.LocaleFromContext(r.Context())
		heading := i18n.T(locale, i18n.ErrorTitle)
		if status == http.StatusNotFound {
			heading = i18n.T(locale, i18n.NotFoundTitle)
		}
		a.render(w, r, status, heading, "error", errorPage{Heading: heading, Message: msg, Back: back})
	case wantsJSON(r):
		a.json(w, status, map[string]any{"error": map[string]any{
			"status":  status,
			"message": msg,
		}})
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(msg + "\n"))
	}
}

// NotFound answers unknown paths.
func (a *App) NotFound(w http.ResponseWriter, r *http.Request) {
	a.writeError(w, r, http.StatusNotFound, "404 page not found", "/")
}

// MethodNotAllowed answers known paths requested with an unsupported verb.
func (a *App) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	a.writeError(w, r, http.StatusMethodNotAllowed, "405 method not allowed", "")
}

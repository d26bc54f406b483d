package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"gateway/internal/i18n"
	"gateway/internal/middleware"
)

var (
	funcs    = template.FuncMap{"t": i18n.T}
	layout   = template.Must(template.New("layout").Funcs(funcs).Parse(layoutHTML))
	bodies   = template.Must(template.New("bodies").Funcs(funcs).Parse(bodiesHTML))
	navPaths = []struct{ href, key string }{
		{"/", i18n.NavHome},
		{"/generate", i18n.NavGenerate},
		{"/remove", i18n.NavRemove},
		{"/history", i18n.NavHistory},
	}
)

type navItem struct {
	Href   string
	Label  string
	Active bool
}

// layoutData is the single parameterised document: title, navigation and body.
type layoutData struct {
	Locale   string
	Title    string
	NavItems []navItem
	Body     template.HTML
}

type bodyData struct {
	Locale string
	Page   any
}

func (a *App) navItems(locale, current string) []navItem {
	items := make([]navItem, 0, len(navPaths))
	for _, p := range navPaths {
		if p.href == "/history" && !a.historyEnabled() {
			continue
		}
		items = append(items, navItem{
			Href:   p.href,
			Label:  i18n.T(locale, p.key),
			Active: p.href == current,
		})
	}
	return items
}

// render executes the body template and wraps it in the shared layout.
func (a *App) render(w http.ResponseWriter, r *http.Request, status int, title, body string, page any) {
	locale := middleware.LocaleFromContext(r.Context())
	var inner bytes.Buffer
	if err := bodies.ExecuteTemplate(&inner, body, bodyData{Locale: locale, Page: page}); err != nil {
		a.logger.Error().Err(err).Str("template", body).Msg("render body failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	var doc bytes.Buffer
	err := layout.Execute(&doc, layoutData{
		Locale:   locale,
		Title:    title,
		NavItems: a.navItems(locale, r.URL.Path),
		Body:     template.HTML(inner.String()),
	})
	if err != nil {
		a.logger.Error().Err(err).Msg("render layout failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = doc.WriteTo(w)
}

// wantsHTML reports whether the response should be an HTML page. The format
// query parameter wins over the Accept header.
func wantsHTML(r *http.Request) bool {
	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "html":
		return true
	case "png", "raw":
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

// humanBytes formats n using the largest binary unit that divides it evenly.
func humanBytes(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%d MiB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%d KiB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

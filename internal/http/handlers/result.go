package handlers

import (
	"html/template"
	"net/http"
	"strconv"

	"gateway/internal/domain"
	"gateway/pkg/b64"
)

type resultPage struct {
	Heading     string
	Prompt      string
	DataURI     template.URL
	DownloadURL template.URL
	Filename    string
	Back        string
}

type resultOptions struct {
	heading    string
	prompt     string
	filename   string
	back       string
	storageKey string
	attachment bool
}

// writeResult returns the image bytes directly or embeds them in an HTML page.
func (a *App) writeResult(w http.ResponseWriter, r *http.Request, result *domain.ImageResult, opts resultOptions) {
	contentType := result.ContentType
	if contentType == "" {
		contentType = domain.PNG
	}
	if result.Provider != "" {
		w.Header().Set("X-Image-Provider", result.Provider)
	}
	if opts.storageKey != "" {
		w.Header().Set("X-Output-Key", opts.storageKey)
	}

	if !wantsHTML(r) {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
		w.Header().Set("Cache-Control", "no-store")
		if opts.attachment {
			w.Header().Set("Content-Disposition", `attachment; filename="`+opts.filename+`"`)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Data)
		return
	}

	// The payload is our own base64 output, so the data URI is safe to mark.
	dataURI := template.URL(b64.DataURI(contentType, result.Data))
	download := dataURI
	if opts.storageKey != "" {
		download = template.URL("/outputs/" + opts.storageKey)
	}
	a.render(w, r, http.StatusOK, opts.heading, "result", resultPage{
		Heading:     opts.heading,
		Prompt:      opts.prompt,
		DataURI:     dataURI,
		DownloadURL: download,
		Filename:    opts.filename,
		Back:        opts.back,
	})
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"gateway/internal/domain"
	"gateway/internal/i18n"
	"gateway/internal/middleware"
	"gateway/internal/providers/image"
)

// maxPromptBodyBytes caps generate request bodies; the prompt itself is
// bounded far below this by MaxPromptLength.
const maxPromptBodyBytes = 1 << 20

type generateRequest struct {
	Prompt string `json:"prompt"`
}

func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	const failPrefix = "generation failed: "
	start := a.now()
	rid := middleware.RequestIDFromContext(r.Context())

	prompt, err := a.readPrompt(w, r)
	if err != nil {
		a.fail(w, r, err, failPrefix, "/generate")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), a.cfg.UpstreamTimeout)
	defer cancel()
	result, err := a.generator.Generate(ctx, domain.GenerationRequest{
		Prompt:    prompt,
		Sampling:  a.sampling(),
		RequestID: rid,
	})
	entry := domain.HistoryEntry{
		RequestID:  rid,
		Kind:       domain.KindGenerate,
		Provider:   image.ProviderName(a.generator),
		Prompt:     prompt,
		InputBytes: len(prompt),
	}
	if err == nil && (result == nil || len(result.Data) == 0) {
		err = domain.NewUpstreamError(entry.Provider, errors.New("empty image"))
	}
	if err != nil {
		entry.Status = domain.StatusFailed
		entry.Error = err.Error()
		entry.DurationMS = time.Since(start).Milliseconds()
		a.record(r.Context(), entry)
		a.fail(w, r, err, failPrefix, "/generate")
		return
	}
	if result.Provider != "" {
		entry.Provider = result.Provider
	}

	key := a.persist(r.Context(), result)
	entry.Status = domain.StatusSucceeded
	entry.OutputBytes = len(result.Data)
	entry.StorageKey = key
	entry.DurationMS = time.Since(start).Milliseconds()
	a.record(r.Context(), entry)

	locale := middleware.LocaleFromContext(r.Context())
	a.writeResult(w, r, result, resultOptions{
		heading:    i18n.T(locale, i18n.GenerateResult),
		prompt:     prompt,
		filename:   "generated" + extensionFor(result.ContentType),
		back:       "/generate",
		storageKey: key,
	})
}

// readPrompt extracts, trims and validates the prompt from a JSON, urlencoded
// or multipart body.
func (a *App) readPrompt(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPromptBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var raw string
	switch mediaType {
	case "application/json":
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return "", bodyError(err, "prompt", "invalid JSON body")
		}
		raw = req.Prompt
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxPromptBodyBytes); err != nil {
			return "", bodyError(err, "prompt", "invalid multipart body")
		}
		raw = r.PostFormValue("prompt")
	default:
		if err := r.ParseForm(); err != nil {
			return "", bodyError(err, "prompt", "invalid form body")
		}
		raw = r.PostFormValue("prompt")
	}

	prompt := strings.TrimSpace(raw)
	if prompt == "" {
		return "", &domain.ValidationError{Field: "prompt", Message: domain.ErrPromptRequired.Error(), Err: domain.ErrPromptRequired}
	}
	if limit := a.cfg.MaxPromptLength; utf8.RuneCountInString(prompt) > limit {
		return "", domain.NewValidationError("prompt", "prompt exceeds %d characters", limit)
	}
	return prompt, nil
}

func bodyError(err error, field, msg string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return domain.NewValidationError(field, "request body exceeds %s limit", humanBytes(tooLarge.Limit))
	}
	return &domain.ValidationError{Field: field, Message: msg, Err: err}
}

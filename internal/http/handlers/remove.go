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

	"gateway/internal/domain"
	"gateway/internal/i18n"
	"gateway/internal/middleware"
	"gateway/pkg/b64"
)

// multipartOverhead is the allowance for boundaries and part headers on top of
// the upload ceiling.
const multipartOverhead = 64 << 10

const removedFilename = "no-bg.png"

type removeRequest struct {
	Image    string `json:"image"`
	Filename string `json:"filename"`
}

func (a *App) Remove(w http.ResponseWriter, r *http.Request) {
	const failPrefix = "processing failed: "
	start := a.now()
	rid := middleware.RequestIDFromContext(r.Context())

	req, err := a.readUpload(w, r)
	if err != nil {
		a.fail(w, r, err, failPrefix, "/remove")
		return
	}
	req.RequestID = rid

	ctx, cancel := context.WithTimeout(r.Context(), a.cfg.UpstreamTimeout)
	defer cancel()
	result, err := a.remover.Remove(ctx, req)
	entry := domain.HistoryEntry{
		RequestID:  rid,
		Kind:       domain.KindRemove,
		Provider:   a.remover.Name(),
		InputBytes: len(req.Image),
	}
	if err == nil && (result == nil || len(result.Data) == 0) {
		err = domain.NewUpstreamError(entry.Provider, errors.New("empty image"))
	}
	if err != nil {
		entry.Status = domain.StatusFailed
		entry.Error = err.Error()
		entry.DurationMS = time.Since(start).Milliseconds()
		a.record(r.Context(), entry)
		a.fail(w, r, err, failPrefix, "/remove")
		return
	}

	key := a.persist(r.Context(), result)
	entry.Status = domain.StatusSucceeded
	entry.OutputBytes = len(result.Data)
	entry.StorageKey = key
	entry.DurationMS = time.Since(start).Milliseconds()
	a.record(r.Context(), entry)

	locale := middleware.LocaleFromContext(r.Context())
	a.writeResult(w, r, result, resultOptions{
		heading:    i18n.T(locale, i18n.RemoveResult),
		filename:   removedFilename,
		back:       "/remove",
		storageKey: key,
		attachment: true,
	})
}

// readUpload reads the image from a multipart "image" field or a JSON body
// carrying base64. Nothing is forwarded unless the image is present and
// within MaxUploadBytes.
func (a *App) readUpload(w http.ResponseWriter, r *http.Request) (domain.RemovalRequest, error) {
	limit := a.cfg.MaxUploadBytes
	// base64 in JSON bodies is 4/3 the size of the decoded image.
	r.Body = http.MaxBytesReader(w, r.Body, limit+limit/2+multipartOverhead)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		return a.readMultipartUpload(r, limit)
	case "application/json":
		var body removeRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			if isTooLarge(err) {
				return domain.RemovalRequest{}, sizeError(limit)
			}
			return domain.RemovalRequest{}, bodyError(err, "image", "invalid JSON body")
		}
		if strings.TrimSpace(body.Image) == "" {
			return domain.RemovalRequest{}, imageRequired()
		}
		data, err := b64.Decode(body.Image)
		if err != nil {
			return domain.RemovalRequest{}, &domain.ValidationError{Field: "image", Message: "image is not valid base64", Err: err}
		}
		if len(data) == 0 {
			return domain.RemovalRequest{}, imageRequired()
		}
		if int64(len(data)) > limit {
			return domain.RemovalRequest{}, sizeError(limit)
		}
		return domain.RemovalRequest{Image: data, Filename: body.Filename, ContentType: http.DetectContentType(data)}, nil
	default:
		return domain.RemovalRequest{}, imageRequired()
	}
}

func (a *App) readMultipartUpload(r *http.Request, limit int64) (domain.RemovalRequest, error) {
	if err := r.ParseMultipartForm(limit + multipartOverhead); err != nil {
		if isTooLarge(err) {
			return domain.RemovalRequest{}, sizeError(limit)
		}
		return domain.RemovalRequest{}, bodyError(err, "image", "invalid multipart body")
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return domain.RemovalRequest{}, imageRequired()
		}
		return domain.RemovalRequest{}, bodyError(err, "image", "invalid upload")
	}
	defer file.Close()

	if header.Size > limit {
		return domain.RemovalRequest{}, sizeError(limit)
	}
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return domain.RemovalRequest{}, bodyError(err, "image", "could not read upload")
	}
	if int64(len(data)) > limit {
		return domain.RemovalRequest{}, sizeError(limit)
	}
	if len(data) == 0 {
		return domain.RemovalRequest{}, imageRequired()
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return domain.RemovalRequest{Image: data, Filename: header.Filename, ContentType: contentType}, nil
}

func imageRequired() error {
	return &domain.ValidationError{Field: "image", Message: domain.ErrImageRequired.Error(), Err: domain.ErrImageRequired}
}

func sizeError(limit int64) error {
	return domain.NewValidationError("image", "file size exceeds %s limit", humanBytes(limit))
}

func isTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}

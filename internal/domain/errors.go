package domain

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrPromptRequired  = errors.New("prompt is required")
	ErrImageRequired   = errors.New("no image uploaded")
	ErrProviderFailure = errors.New("provider failure")
)

// maxDetailLength bounds how much upstream text ends up in a response body.
const maxDetailLength = 300

var plainText = bluemonday.StrictPolicy()

// ValidationError reports a violated input constraint. It maps to 400.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// UpstreamError reports a collaborator failure. It maps to 500, or 504 when the
// collaborator did not answer before the deadline.
type UpstreamError struct {
	Provider string
	Status   int
	Detail   string
	Err      error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	if e.Status > 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrProviderFailure
}

// Timeout reports whether the collaborator missed its deadline.
func (e *UpstreamError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// NewUpstreamError wraps a transport or collaborator error.
func NewUpstreamError(provider string, err error) *UpstreamError {
	return &UpstreamError{Provider: provider, Err: err}
}

// NewUpstreamStatusError records a non-success response. The raw body is
// reduced to plain text since upstream error pages are frequently HTML.
func NewUpstreamStatusError(provider string, status int, body []byte) *UpstreamError {
	return &UpstreamError{Provider: provider, Status: status, Detail: PlainDetail(string(body))}
}

// PlainDetail strips markup from upstream text, collapses whitespace and
// truncates the result.
func PlainDetail(raw string) string {
	text := html.UnescapeString(plainText.Sanitize(raw))
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > maxDetailLength {
		text = string(r[:maxDetailLength]) + "…"
	}
	return text
}

// IsTimeout reports whether err carries an upstream deadline miss.
func IsTimeout(err error) bool {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

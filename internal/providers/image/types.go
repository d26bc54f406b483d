package image

import (
	"context"
	"errors"
	"strings"

	"gateway/internal/domain"
)

// ErrNotConfigured is returned by generators that have neither credentials
// nor a fallback.
var ErrNotConfigured = errors.New("image generator not configured")

// Generator is the contract implemented by all text-to-image collaborators.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (*domain.ImageResult, error)
}

// Named is implemented by generators that can report a provider label.
type Named interface {
	Name() string
}

// ProviderName returns the label of g, or "unknown".
func ProviderName(g Generator) string {
	if n, ok := g.(Named); ok {
		return n.Name()
	}
	return "unknown"
}

func normalizeFormat(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch mime {
	case "image/jpeg", "image/jpg":
		return "image/jpeg"
	case "image/png", "":
		return domain.PNG
	default:
		if strings.HasPrefix(mime, "image/") {
			return mime
		}
		return domain.PNG
	}
}

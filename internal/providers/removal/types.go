// Package removal holds the background-removal collaborators: an external
// HTTP API, a hosted inference model and an in-process WASM module.
package removal

import (
	"context"

	"gateway/internal/domain"
)

// Remover is the contract implemented by every background-removal backend.
type Remover interface {
	Remove(ctx context.Context, req domain.RemovalRequest) (*domain.ImageResult, error)
	Name() string
}

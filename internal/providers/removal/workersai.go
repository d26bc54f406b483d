package removal

import (
	"context"
	"strings"

	"gateway/internal/domain"
	"gateway/internal/providers/workersai"
	"gateway/pkg/b64"
)

type modelRunner interface {
	Run(ctx context.Context, model string, input any) (*workersai.Output, error)
	HasCredentials() bool
}

type removalInput struct {
	Image     string `json:"image"`
	ReturnPNG bool   `json:"return_png"`
}

// WorkersAIRemover runs a hosted background-removal model.
type WorkersAIRemover struct {
	client modelRunner
	model  string
}

func NewWorkersAIRemover(client modelRunner, model string) *WorkersAIRemover {
	return &WorkersAIRemover{client: client, model: strings.TrimSpace(model)}
}

// Name fulfils Remover.
func (w *WorkersAIRemover) Name() string {
	return workersai.ProviderName + ":" + w.model
}

// Remove fulfils Remover.
func (w *WorkersAIRemover) Remove(ctx context.Context, req domain.RemovalRequest) (*domain.ImageResult, error) {
	if len(req.Image) == 0 {
		return nil, domain.ErrImageRequired
	}
	out, err := w.client.Run(ctx, w.model, removalInput{Image: b64.Encode(req.Image), ReturnPNG: true})
	if err != nil {
		return nil, err
	}
	return &domain.ImageResult{Data: out.Data, ContentType: domain.PNG, Provider: w.Name()}, nil
}

var _ Remover = (*WorkersAIRemover)(nil)

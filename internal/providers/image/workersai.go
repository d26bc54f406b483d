package image

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"gateway/internal/domain"
	"gateway/internal/providers/workersai"
)

type modelRunner interface {
	Run(ctx context.Context, model string, input any) (*workersai.Output, error)
	HasCredentials() bool
}

// textToImageInput is the hosted diffusion model's input schema.
type textToImageInput struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	NumSteps       int    `json:"num_steps"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
}

// WorkersAIGenerator runs a hosted diffusion model and falls back to another
// generator when credentials are missing or rejected.
type WorkersAIGenerator struct {
	client   modelRunner
	model    string
	fallback Generator
}

// NewWorkersAIGenerator wires the inference client with an optional fallback.
func NewWorkersAIGenerator(client modelRunner, model string, fallback Generator) *WorkersAIGenerator {
	return &WorkersAIGenerator{client: client, model: strings.TrimSpace(model), fallback: fallback}
}

// Generate fulfils the Generator interface.
func (g *WorkersAIGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.ImageResult, error) {
	if g == nil {
		return nil, ErrNotConfigured
	}
	if g.client == nil || !g.client.HasCredentials() {
		if g.fallback != nil {
			return g.fallback.Generate(ctx, req)
		}
		return nil, ErrNotConfigured
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, domain.ErrPromptRequired
	}
	out, err := g.client.Run(ctx, g.model, textToImageInput{
		Prompt:         prompt,
		NegativePrompt: strings.TrimSpace(req.Sampling.NegativePrompt),
		NumSteps:       req.Sampling.Steps,
		Width:          req.Sampling.Width,
		Height:         req.Sampling.Height,
	})
	if err != nil {
		if shouldFallback(err) && g.fallback != nil {
			return g.fallback.Generate(ctx, req)
		}
		return nil, err
	}
	return &domain.ImageResult{
		Data:        out.Data,
		ContentType: normalizeFormat(out.ContentType),
		Provider:    g.Name(),
	}, nil
}

// Name reports the model identifier.
func (g *WorkersAIGenerator) Name() string {
	if g == nil || g.model == "" {
		return workersai.ProviderName
	}
	return workersai.ProviderName + ":" + g.model
}

var _ Generator = (*WorkersAIGenerator)(nil)

func shouldFallback(err error) bool {
	if errors.Is(err, workersai.ErrMissingCredentials) {
		return true
	}
	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Status == http.StatusUnauthorized || upstream.Status == http.StatusForbidden
	}
	return false
}

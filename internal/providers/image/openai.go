package image

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"gateway/internal/domain"
	"gateway/pkg/b64"
)

const openAIProviderName = "openai"

// OpenAIOptions configures the OpenAI images generator.
type OpenAIOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// OpenAIGenerator calls the OpenAI images API with base64 responses so that
// no second download round trip is needed.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator builds a generator; the API key is mandatory.
func NewOpenAIGenerator(opts OpenAIOptions) (*OpenAIGenerator, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, errors.New("openai: api key is required")
	}
	cfg := openai.DefaultConfig(key)
	if base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"); base != "" {
		cfg.BaseURL = base
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = openai.CreateImageModelDallE3
	}
	return &OpenAIGenerator{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

// Generate fulfils the Generator interface.
func (g *OpenAIGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.ImageResult, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, domain.ErrPromptRequired
	}
	if neg := strings.TrimSpace(req.Sampling.NegativePrompt); neg != "" {
		prompt = fmt.Sprintf("%s\nAvoid: %s", prompt, neg)
	}
	resp, err := g.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          g.model,
		N:              1,
		Size:           openAISize(g.model, req.Sampling.Width, req.Sampling.Height),
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
		User:           req.RequestID,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, &domain.UpstreamError{
				Provider: openAIProviderName,
				Status:   apiErr.HTTPStatusCode,
				Detail:   domain.PlainDetail(apiErr.Message),
				Err:      err,
			}
		}
		return nil, domain.NewUpstreamError(openAIProviderName, err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, &domain.UpstreamError{Provider: openAIProviderName, Detail: "response carries no image"}
	}
	data, err := b64.Decode(resp.Data[0].B64JSON)
	if err != nil {
		return nil, domain.NewUpstreamError(openAIProviderName, fmt.Errorf("decode image: %w", err))
	}
	return &domain.ImageResult{
		Data:        data,
		ContentType: normalizeFormat(http.DetectContentType(data)),
		Provider:    g.Name(),
	}, nil
}

// Name reports the model identifier.
func (g *OpenAIGenerator) Name() string {
	return openAIProviderName + ":" + g.model
}

var _ Generator = (*OpenAIGenerator)(nil)

// openAISize maps the configured dimensions onto the fixed sizes each model
// accepts.
func openAISize(model string, width, height int) string {
	if model == openai.CreateImageModelDallE2 {
		switch longest := max(width, height); {
		case longest <= 256:
			return openai.CreateImageSize256x256
		case longest <= 512:
			return openai.CreateImageSize512x512
		default:
			return openai.CreateImageSize1024x1024
		}
	}
	switch {
	case width > height:
		return openai.CreateImageSize1792x1024
	case height > width:
		return openai.CreateImageSize1024x1792
	default:
		return openai.CreateImageSize1024x1024
	}
}

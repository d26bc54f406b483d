package removal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gateway/internal/domain"
	"gateway/internal/infra"
	"gateway/pkg/b64"
)

const httpProviderName = "removal-api"

const maxAPIResponseBytes = 32 << 20

// HTTPOptions configures the external removal API client.
type HTTPOptions struct {
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
	Logger     *infra.Logger
	Timeout    time.Duration
}

// HTTPRemover posts `{"image": base64}` to a fixed endpoint and expects the
// same shape back.
type HTTPRemover struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *infra.Logger
	maxBody    int64
}

type imagePayload struct {
	Image string `json:"image"`
}

// NewHTTPRemover validates the endpoint and applies defaults.
func NewHTTPRemover(opts HTTPOptions) (*HTTPRemover, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("removal: invalid endpoint %q", opts.Endpoint)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 90 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &HTTPRemover{
		endpoint:   parsed.String(),
		apiKey:     strings.TrimSpace(opts.APIKey),
		httpClient: httpClient,
		logger:     logger,
		maxBody:    maxAPIResponseBytes,
	}, nil
}

// Name fulfils Remover.
func (h *HTTPRemover) Name() string {
	return httpProviderName
}

// Remove fulfils Remover.
func (h *HTTPRemover) Remove(ctx context.Context, req domain.RemovalRequest) (*domain.ImageResult, error) {
	if len(req.Image) == 0 {
		return nil, domain.ErrImageRequired
	}
	body, err := json.Marshal(imagePayload{Image: b64.Encode(req.Image)})
	if err != nil {
		return nil, fmt.Errorf("removal: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("removal: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if h.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)
	}
	if req.RequestID != "" {
		httpReq.Header.Set("X-Request-ID", req.RequestID)
	}

	resp, err := h.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewUpstreamError(httpProviderName, fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBody+1))
	if err != nil {
		return nil, domain.NewUpstreamError(httpProviderName, fmt.Errorf("read response: %w", err))
	}
	oversized := int64(len(raw)) > h.maxBody
	if oversized {
		raw = raw[:h.maxBody]
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.NewUpstreamStatusError(httpProviderName, resp.StatusCode, raw)
	}
	if oversized {
		return nil, domain.NewUpstreamError(httpProviderName, fmt.Errorf("response exceeds %d bytes", h.maxBody))
	}

	var decoded imagePayload
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, domain.NewUpstreamError(httpProviderName, fmt.Errorf("decode response: %w", err))
	}
	if strings.TrimSpace(decoded.Image) == "" {
		return nil, domain.NewUpstreamError(httpProviderName, errors.New("response carries no image"))
	}
	data, err := b64.Decode(decoded.Image)
	if err != nil {
		return nil, domain.NewUpstreamError(httpProviderName, fmt.Errorf("decode image: %w", err))
	}
	h.logger.Debug().Int("in", len(req.Image)).Int("out", len(data)).Msg("removal: api call")
	return &domain.ImageResult{Data: data, ContentType: domain.PNG, Provider: httpProviderName}, nil
}

var _ Remover = (*HTTPRemover)(nil)

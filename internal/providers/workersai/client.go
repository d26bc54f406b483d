package workersai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gateway/internal/domain"
	"gateway/internal/infra"
	"gateway/pkg/b64"
)

// ProviderName labels errors and history rows produced by this client.
const ProviderName = "workersai"

// ErrMissingCredentials indicates that the client was configured without an
// account id or API token.
var ErrMissingCredentials = errors.New("workersai: account id and api token are required")

// maxResponseBytes caps how much of an upstream body is buffered.
const maxResponseBytes = 32 << 20

// Options configures the inference client.
type Options struct {
	AccountID      string
	APIToken       string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client runs models on the hosted inference service.
type Client struct {
	accountID  string
	apiToken   string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
	maxBody    int64
}

// Output is a model response normalized to raw bytes.
type Output struct {
	Data        []byte
	ContentType string
}

type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Errors  []apiMessage    `json:"errors"`
}

type apiMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type imageResult struct {
	Image string `json:"image"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 90 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.cloudflare.com/client/v4"
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("workersai: invalid base url: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Client{
		accountID:  strings.TrimSpace(opts.AccountID),
		apiToken:   strings.TrimSpace(opts.APIToken),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
		maxBody:    maxResponseBytes,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.accountID != "" && c.apiToken != ""
}

// Run posts input as JSON to the model endpoint. Binary responses are returned
// as-is; JSON envelopes carrying a base64 `image` result are decoded.
func (c *Client) Run(ctx context.Context, model string, input any) (*Output, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingCredentials
	}
	model = strings.Trim(strings.TrimSpace(model), "/")
	if model == "" {
		return nil, errors.New("workersai: model is required")
	}
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("workersai: encode request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/accounts/%s/ai/run/%s", c.baseURL, url.PathEscape(c.accountID), model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("workersai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewUpstreamError(ProviderName, fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, domain.NewUpstreamError(ProviderName, fmt.Errorf("read response: %w", err))
	}
	oversized := int64(len(raw)) > c.maxBody
	if oversized {
		raw = raw[:c.maxBody]
	}

	if resp.StatusCode >= 300 {
		if msg := envelopeError(raw); msg != "" {
			return nil, &domain.UpstreamError{Provider: ProviderName, Status: resp.StatusCode, Detail: domain.PlainDetail(msg)}
		}
		return nil, domain.NewUpstreamStatusError(ProviderName, resp.StatusCode, raw)
	}
	if oversized {
		return nil, domain.NewUpstreamError(ProviderName, fmt.Errorf("response exceeds %d bytes", c.maxBody))
	}

	out, err := decodeOutput(resp.Header.Get("Content-Type"), raw)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().
		Str("model", model).
		Int("bytes", len(out.Data)).
		Dur("took", time.Since(start)).
		Msg("workersai: model run")
	return out, nil
}

func decodeOutput(contentType string, raw []byte) (*Output, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType != "application/json" {
		if len(raw) == 0 {
			return nil, &domain.UpstreamError{Provider: ProviderName, Detail: "empty response body"}
		}
		if mediaType == "" {
			mediaType = http.DetectContentType(raw)
		}
		return &Output{Data: raw, ContentType: mediaType}, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, domain.NewUpstreamError(ProviderName, fmt.Errorf("decode response: %w", err))
	}
	if !env.Success && len(env.Errors) > 0 {
		return nil, &domain.UpstreamError{Provider: ProviderName, Detail: domain.PlainDetail(joinMessages(env.Errors))}
	}
	var result imageResult
	if err := json.Unmarshal(env.Result, &result); err != nil || strings.TrimSpace(result.Image) == "" {
		return nil, &domain.UpstreamError{Provider: ProviderName, Detail: "response carries no image"}
	}
	data, err := b64.Decode(result.Image)
	if err != nil {
		return nil, domain.NewUpstreamError(ProviderName, fmt.Errorf("decode image: %w", err))
	}
	return &Output{Data: data, ContentType: http.DetectContentType(data)}, nil
}

func envelopeError(raw []byte) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	return joinMessages(env.Errors)
}

func joinMessages(msgs []apiMessage) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if text := strings.TrimSpace(m.Message); text != "" {
			if m.Code != 0 {
				text = fmt.Sprintf("%s (%d)", text, m.Code)
			}
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "; ")
}

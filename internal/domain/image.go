package domain

import "time"

// PNG is the content type of every result the gateway returns.
const PNG = "image/png"

// SamplingParams are the fixed diffusion settings forwarded with every prompt.
type SamplingParams struct {
	NegativePrompt string
	Steps          int
	Width          int
	Height         int
}

// GenerationRequest is built from a form or JSON body and consumed once.
type GenerationRequest struct {
	Prompt    string
	Sampling  SamplingParams
	RequestID string
}

// RemovalRequest carries the uploaded image, already read into memory.
type RemovalRequest struct {
	Image       []byte
	Filename    string
	ContentType string
	RequestID   string
}

// ImageResult is the collaborator output.
type ImageResult struct {
	Data        []byte
	ContentType string
	Provider    string
}

// Kind identifies the operation recorded in history.
type Kind string

const (
	KindGenerate Kind = "generate"
	KindRemove   Kind = "remove"
)

// HistoryStatus is the outcome recorded in history.
type HistoryStatus string

const (
	StatusSucceeded HistoryStatus = "succeeded"
	StatusFailed    HistoryStatus = "failed"
)

// HistoryEntry is one processed POST request.
type HistoryEntry struct {
	ID          string        `json:"id"`
	RequestID   string        `json:"request_id"`
	Kind        Kind          `json:"kind"`
	Provider    string        `json:"provider"`
	Prompt      string        `json:"-"`
	InputBytes  int           `json:"input_bytes"`
	OutputBytes int           `json:"output_bytes"`
	Status      HistoryStatus `json:"status"`
	Error       string        `json:"error,omitempty"`
	DurationMS  int64         `json:"duration_ms"`
	StorageKey  string        `json:"storage_key,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

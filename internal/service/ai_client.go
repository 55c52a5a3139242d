package service

import (
	"context"
	"encoding/json"
)

// ModelClient is the interface the triage stages use to reach an LLM.
// Implementations own rate limiting, quota and retries.
type ModelClient interface {
	// Invoke sends one request and returns the concatenated text blocks
	Invoke(ctx context.Context, req ModelRequest) (*ModelResponse, error)

	// InvokeStream sends one request and calls callback for each text delta
	InvokeStream(ctx context.Context, req ModelRequest, callback StreamCallback) error

	// ModelID returns the fixed model identifier of this client
	ModelID() string
}

// ModelTransport moves an opaque JSON body to the vendor endpoint and back.
type ModelTransport interface {
	InvokeModel(ctx context.Context, modelID string, body []byte) ([]byte, error)

	// InvokeModelStream calls onEvent with the raw JSON of each stream event.
	// Returning an error from onEvent stops the stream with that error.
	InvokeModelStream(ctx context.Context, modelID string, body []byte, onEvent func(event []byte) error) error
}

// ModelRequest is a single-turn request. Zero values fall back to client defaults.
type ModelRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature *float64
	TopP        *float64
	Tools       []json.RawMessage
}

// ModelResponse is the decoded non-streaming reply
type ModelResponse struct {
	Text       string
	Model      string
	StopReason string
	Usage      Usage
}

// Usage reports token accounting from the vendor
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// StreamChunk represents one decoded streaming event
type StreamChunk struct {
	// Text delta, empty for control events
	Content string

	// Set on message_delta events that carry it
	StopReason string

	// Whether this is the final chunk
	Done bool
}

// StreamCallback is called for each text chunk in streaming mode
type StreamCallback func(chunk *StreamChunk) error

// Ensure BedrockClient implements ModelClient
var _ ModelClient = (*BedrockClient)(nil)

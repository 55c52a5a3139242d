package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/stellaephile/whats-up-doc/internal/logger"
	"github.com/stellaephile/whats-up-doc/internal/model"
)

// anthropicVersion is the Messages API version Bedrock expects in the body.
const anthropicVersion = "bedrock-2023-05-31"

// errStreamDone stops the transport loop once message_stop arrives.
var errStreamDone = errors.New("stream done")

// BedrockClientConfig holds per-model settings for a BedrockClient
type BedrockClientConfig struct {
	ModelID        string
	MaxTokens      int
	Temperature    float64
	TopP           float64
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	AttemptTimeout time.Duration
}

// BedrockClient invokes one Anthropic model on Bedrock behind a shared token
// bucket and daily quota, retrying throttled calls with jittered backoff.
type BedrockClient struct {
	transport ModelTransport
	limiter   Limiter
	quota     *DailyQuota
	config    BedrockClientConfig

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// NewBedrockClient creates a client for cfg.ModelID. limiter and quota are
// normally shared by every client in the process.
func NewBedrockClient(transport ModelTransport, limiter Limiter, quota *DailyQuota, cfg BedrockClientConfig) *BedrockClient {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	return &BedrockClient{
		transport: transport,
		limiter:   limiter,
		quota:     quota,
		config:    cfg,
		sleep:     sleepContext,
		jitter:    rand.Float64,
	}
}

// ModelID returns the fixed model identifier of this client
func (c *BedrockClient) ModelID() string {
	return c.config.ModelID
}

type messagesRequest struct {
	AnthropicVersion string            `json:"anthropic_version"`
	System           string            `json:"system,omitempty"`
	Messages         []messageParam    `json:"messages"`
	MaxTokens        int               `json:"max_tokens"`
	Temperature      float64           `json:"temperature"`
	TopP             float64           `json:"top_p"`
	Tools            []json.RawMessage `json:"tools,omitempty"`
}

type messageParam struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      Usage  `json:"usage"`
}

func (c *BedrockClient) buildBody(req ModelRequest) ([]byte, error) {
	body := messagesRequest{
		AnthropicVersion: anthropicVersion,
		System:           req.System,
		Messages:         []messageParam{{Role: "user", Content: req.Prompt}},
		MaxTokens:        c.config.MaxTokens,
		Temperature:      c.config.Temperature,
		TopP:             c.config.TopP,
		Tools:            req.Tools,
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		body.Temperature = *req.Temperature
	}
	if req.TopP != nil {
		body.TopP = *req.TopP
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return data, nil
}

// Invoke sends one request and returns the concatenated text blocks
func (c *BedrockClient) Invoke(ctx context.Context, req ModelRequest) (*ModelResponse, error) {
	body, err := c.buildBody(req)
	if err != nil {
		return nil, err
	}

	var raw []byte
	err = c.withRetry(ctx, func(callCtx context.Context) error {
		var callErr error
		raw, callErr = c.transport.InvokeModel(callCtx, c.config.ModelID, body)
		return callErr
	}, func() bool { return true })
	if err != nil {
		return nil, err
	}

	var resp messagesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &model.UpstreamError{
			Stage: c.config.ModelID,
			Code:  model.CodeVendorError,
			Err:   fmt.Errorf("failed to unmarshal response: %w", err),
		}
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	logger.Debug(ctx, "📥 %s stop=%s tokens in=%d out=%d", c.config.ModelID, resp.StopReason, resp.Usage.InputTokens, resp.Usage.OutputTokens)

	return &ModelResponse{
		Text:       text.String(),
		Model:      resp.Model,
		StopReason: resp.StopReason,
		Usage:      resp.Usage,
	}, nil
}

// InvokeStream sends one request and calls callback for each text delta.
// Once a delta has been delivered the call is no longer retried.
func (c *BedrockClient) InvokeStream(ctx context.Context, req ModelRequest, callback StreamCallback) error {
	body, err := c.buildBody(req)
	if err != nil {
		return err
	}

	delivered := false
	return c.withRetry(ctx, func(callCtx context.Context) error {
		err := c.transport.InvokeModelStream(callCtx, c.config.ModelID, body, func(event []byte) error {
			chunk, err := parseStreamEvent(event)
			if err != nil {
				logger.Warn(ctx, "Failed to parse stream event: %v", err)
				return nil
			}
			if chunk == nil {
				return nil
			}
			if chunk.Content != "" {
				delivered = true
			}
			if err := callback(chunk); err != nil {
				return &callbackError{err: err}
			}
			if chunk.Done {
				return errStreamDone
			}
			return nil
		})
		if errors.Is(err, errStreamDone) {
			return nil
		}
		return err
	}, func() bool { return !delivered })
}

// withRetry runs call under the quota, limiter and retry policy. Each attempt
// reserves quota and acquires a token anew.
func (c *BedrockClient) withRetry(ctx context.Context, call func(ctx context.Context) error, canRetry func() bool) error {
	var lastErr error

	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt)
			logger.Warn(ctx, "Throttled by %s, retry %d/%d in %s: %v", c.config.ModelID, attempt, c.config.MaxRetries-1, delay.Round(time.Millisecond), lastErr)
			if err := c.sleep(ctx, delay); err != nil {
				return err
			}
		}

		if err := c.admit(ctx); err != nil {
			return err
		}

		err := c.attempt(ctx, call)
		if err == nil {
			return nil
		}

		var cbErr *callbackError
		if errors.As(err, &cbErr) {
			return cbErr.err
		}

		var vendorErr *VendorError
		if !errors.As(err, &vendorErr) {
			return err
		}
		if !vendorErr.Retriable() || !canRetry() {
			return &model.UpstreamError{Stage: c.config.ModelID, Code: model.CodeVendorError, Err: err}
		}
		lastErr = err
	}

	return &model.UpstreamError{Stage: c.config.ModelID, Code: model.CodeRetriesExhausted, Err: lastErr}
}

// admit checks the daily quota before taking a token so an exhausted quota
// fails without waiting on the bucket.
func (c *BedrockClient) admit(ctx context.Context) error {
	if err := c.quota.Reserve(); err != nil {
		return err
	}
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Acquire(ctx); err != nil {
		c.quota.Release()
		return err
	}
	return nil
}

// attempt runs call detached from caller cancellation so quota and limiter
// accounting match what the vendor actually served.
func (c *BedrockClient) attempt(ctx context.Context, call func(ctx context.Context) error) error {
	callCtx := context.WithoutCancel(ctx)
	if c.config.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, c.config.AttemptTimeout)
		defer cancel()
	}
	return call(callCtx)
}

// backoff returns base*2^(attempt-1) capped at MaxDelay, with ±20% jitter.
func (c *BedrockClient) backoff(attempt int) time.Duration {
	delay := c.config.BaseDelay
	for i := 1; i < attempt && delay < c.config.MaxDelay; i++ {
		delay *= 2
	}
	if c.config.MaxDelay > 0 && delay > c.config.MaxDelay {
		delay = c.config.MaxDelay
	}

	factor := 1 + 0.2*(2*c.jitter()-1)
	return time.Duration(float64(delay) * factor)
}

type callbackError struct {
	err error
}

func (e *callbackError) Error() string { return "callback error: " + e.err.Error() }

func (e *callbackError) Unwrap() error { return e.err }

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

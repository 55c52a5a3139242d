package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/stellaephile/whats-up-doc/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
)

// Vendor error codes that are worth retrying.
const (
	CodeThrottling         = "ThrottlingException"
	CodeTooManyRequests    = "TooManyRequestsException"
	CodeServiceUnavailable = "ServiceUnavailableException"
)

// VendorError is a failure reported by (or on the way to) the vendor endpoint
type VendorError struct {
	Code       string
	Message    string
	StatusCode int
	Err        error
}

func (e *VendorError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

func (e *VendorError) Unwrap() error { return e.Err }

// Retriable reports whether the call may succeed if repeated after a pause.
func (e *VendorError) Retriable() bool {
	switch e.Code {
	case CodeThrottling, CodeTooManyRequests, CodeServiceUnavailable:
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusServiceUnavailable
}

// streamEvent covers the Messages streaming event types we act on.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type       string `json:"type"`
		Text       string `json:"text"`
		StopReason string `json:"stop_reason"`
	} `json:"delta"`
}

// parseStreamEvent converts a raw Anthropic stream event into a StreamChunk.
// Events that carry nothing for the caller return nil.
func parseStreamEvent(data []byte) (*StreamChunk, error) {
	var ev streamEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}

	switch ev.Type {
	case "content_block_delta":
		if ev.Delta.Type != "text_delta" || ev.Delta.Text == "" {
			return nil, nil
		}
		return &StreamChunk{Content: ev.Delta.Text}, nil
	case "message_delta":
		if ev.Delta.StopReason == "" {
			return nil, nil
		}
		return &StreamChunk{StopReason: ev.Delta.StopReason}, nil
	case "message_stop":
		return &StreamChunk{Done: true}, nil
	}
	return nil, nil
}

// BedrockTransport sends request bodies to Bedrock Runtime
type BedrockTransport struct {
	client *bedrockruntime.Client
}

// NewBedrockTransport builds a Bedrock Runtime client for cfg.Region. Static
// keys are used when configured; otherwise the default AWS credential chain.
func NewBedrockTransport(ctx context.Context, cfg *config.BedrockConfig) (*BedrockTransport, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithHTTPClient(awshttp.NewBuildableClient().WithDialerOptions(func(d *net.Dialer) {
			d.Timeout = cfg.ConnectTimeout
		})),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
		// retries are handled by BedrockClient so every attempt goes through the limiter
		o.Retryer = aws.NopRetryer{}
	})

	return &BedrockTransport{client: client}, nil
}

// InvokeModel posts body and returns the response body
func (t *BedrockTransport) InvokeModel(ctx context.Context, modelID string, body []byte) ([]byte, error) {
	out, err := t.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, toVendorError(err)
	}
	return out.Body, nil
}

// InvokeModelStream posts body and feeds each chunk event to onEvent
func (t *BedrockTransport) InvokeModelStream(ctx context.Context, modelID string, body []byte, onEvent func(event []byte) error) error {
	out, err := t.client.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return toVendorError(err)
	}

	stream := out.GetStream()
	defer stream.Close()

	for event := range stream.Events() {
		chunk, ok := event.(*types.ResponseStreamMemberChunk)
		if !ok {
			continue
		}
		if err := onEvent(chunk.Value.Bytes); err != nil {
			return err
		}
	}

	if err := stream.Err(); err != nil {
		return toVendorError(err)
	}
	return nil
}

// toVendorError maps SDK errors onto VendorError so the retry policy can
// classify them by code and HTTP status.
func toVendorError(err error) error {
	vendorErr := &VendorError{Code: "TransportError", Message: err.Error(), Err: err}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		vendorErr.Code = apiErr.ErrorCode()
		vendorErr.Message = apiErr.ErrorMessage()
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		vendorErr.StatusCode = respErr.HTTPStatusCode()
	}

	return vendorErr
}

// Ensure BedrockTransport implements ModelTransport
var _ ModelTransport = (*BedrockTransport)(nil)

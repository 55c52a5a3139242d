package model

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds surfaced by the services. Handlers classify with errors.Is.
var (
	ErrBadRequest           = errors.New("bad request")
	ErrNotFound             = errors.New("not found")
	ErrMalformedModelOutput = errors.New("malformed model output")
	ErrUpstreamFailure      = errors.New("upstream failure")
	ErrRateLimitTimeout     = errors.New("rate limiter wait timed out")
	ErrQuotaExceeded        = errors.New("daily quota exceeded")
	ErrUnavailable          = errors.New("service unavailable")
	ErrNoFacilitiesNearby   = errors.New("no facilities nearby")
)

// Upstream failure cause codes.
const (
	CodeMalformedOutput  = "malformed_output"
	CodeVendorError      = "vendor_error"
	CodeRetriesExhausted = "retries_exhausted"
)

// BadRequestError carries a user-facing message for a rejected request.
type BadRequestError struct {
	Detail string
}

func (e *BadRequestError) Error() string { return e.Detail }

func (e *BadRequestError) Unwrap() error { return ErrBadRequest }

// NewBadRequest returns a BadRequestError with the given detail.
func NewBadRequest(format string, args ...any) error {
	return &BadRequestError{Detail: fmt.Sprintf(format, args...)}
}

// UpstreamError is a model or extraction failure attributed to a pipeline stage.
type UpstreamError struct {
	Stage string
	Code  string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Stage, e.Code, e.Err)
}

func (e *UpstreamError) Unwrap() []error {
	return []error{ErrUpstreamFailure, e.Err}
}

// RetryAfterError marks a capacity failure that may succeed later.
type RetryAfterError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RetryAfterError) Error() string {
	return e.Err.Error()
}

func (e *RetryAfterError) Unwrap() error { return e.Err }

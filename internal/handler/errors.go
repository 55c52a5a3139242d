package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/stellaephile/whats-up-doc/internal/logger"
	"github.com/stellaephile/whats-up-doc/internal/model"

	"github.com/gin-gonic/gin"
)

// statusFor maps an error kind to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound), errors.Is(err, model.ErrNoFacilitiesNearby):
		return http.StatusNotFound
	case errors.Is(err, model.ErrRateLimitTimeout), errors.Is(err, model.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, model.ErrUpstreamFailure), errors.Is(err, model.ErrMalformedModelOutput):
		return http.StatusBadGateway
	case errors.Is(err, model.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorDetail is the user-facing message for err
func errorDetail(err error, status int) string {
	var badRequest *model.BadRequestError
	if errors.As(err, &badRequest) {
		return badRequest.Detail
	}
	if status == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}

// respondError writes {detail} with the mapped status
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	ctx := c.Request.Context()

	if status >= http.StatusInternalServerError {
		logger.Error(ctx, "%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	} else {
		logger.Warn(ctx, "%s %s rejected (%d): %v", c.Request.Method, c.FullPath(), status, err)
	}

	var retry *model.RetryAfterError
	if status == http.StatusTooManyRequests && errors.As(err, &retry) && retry.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retry.RetryAfter.Seconds()))))
	}

	c.JSON(status, gin.H{"detail": errorDetail(err, status)})
}

// respondInvalidBody reports a request body that failed to bind
func respondInvalidBody(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request: " + err.Error()})
}

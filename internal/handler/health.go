package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ModelInfo reports which models serve each stage
type ModelInfo interface {
	Enabled() bool
	Models() (stage1, stage2 string)
}

// QuotaReporter reports calls left in the daily quota
type QuotaReporter interface {
	Remaining() (remaining int, ok bool)
}

// Pinger checks a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves GET /health
type HealthHandler struct {
	models ModelInfo
	quota  QuotaReporter
	db     Pinger
}

// NewHealthHandler creates a health handler. quota and db may be nil.
func NewHealthHandler(models ModelInfo, quota QuotaReporter, db Pinger) *HealthHandler {
	return &HealthHandler{models: models, quota: quota, db: db}
}

// Health always answers 200 with status "ok"; dependency state is informational
func (h *HealthHandler) Health(c *gin.Context) {
	stage1, stage2 := h.models.Models()

	body := gin.H{
		"status": "ok",
		"models": gin.H{
			"stage1": stage1,
			"stage2": stage2,
		},
		"llmEnabled":          h.models.Enabled(),
		"dailyQuotaRemaining": nil,
	}

	if h.quota != nil {
		if remaining, ok := h.quota.Remaining(); ok {
			body["dailyQuotaRemaining"] = remaining
		}
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			body["database"] = "unreachable"
		} else {
			body["database"] = "ok"
		}
	}

	c.JSON(http.StatusOK, body)
}

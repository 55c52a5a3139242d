package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/stellaephile/whats-up-doc/internal/logger"
	"github.com/stellaephile/whats-up-doc/internal/model"
	"github.com/stellaephile/whats-up-doc/internal/service"

	"github.com/gin-gonic/gin"
)

// Triage is the assessment pipeline the handlers drive
type Triage interface {
	Assess(ctx context.Context, req model.AssessRequest) (*model.AssessResponse, error)
	AssessStream(ctx context.Context, req model.AssessRequest, obs *service.AssessObserver) (*model.AssessResponse, error)
	Classify(ctx context.Context, text string) (*model.ClassifyResponse, error)
}

// AssessHandler handles assessment-related HTTP requests
type AssessHandler struct {
	triage Triage
}

// NewAssessHandler creates a new assessment handler
func NewAssessHandler(triage Triage) *AssessHandler {
	return &AssessHandler{triage: triage}
}

// bindAssessRequest decodes and checks the shared assess body
func bindAssessRequest(c *gin.Context) (model.AssessRequest, bool) {
	var req model.AssessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c, err)
		return req, false
	}
	if strings.TrimSpace(req.Symptoms) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "symptoms required"})
		return req, false
	}
	return req, true
}

// Assess handles POST /api/assess
func (h *AssessHandler) Assess(c *gin.Context) {
	req, ok := bindAssessRequest(c)
	if !ok {
		return
	}

	response, err := h.triage.Assess(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// AssessStream handles POST /api/assess/stream - SSE streaming assessment
func (h *AssessHandler) AssessStream(c *gin.Context) {
	req, ok := bindAssessRequest(c)
	if !ok {
		return
	}

	// Create flusher for SSE
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Streaming not supported"})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	emit := func(event string, data any) error {
		if err := sendSSE(c, event, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	_ = emit("start", map[string]any{"requestId": logger.RequestID(ctx)})

	response, err := h.triage.AssessStream(ctx, req, &service.AssessObserver{
		// The stage1 event is a progress preview. Only result.stage1Cache
		// is sent back for round 2, so the preview never carries a signature.
		OnStage1: func(stage1 *model.Stage1Result) error {
			preview := *stage1
			preview.Signature = ""
			return emit("stage1", preview)
		},
		OnDelta: func(text string) error {
			return emit("delta", map[string]string{"text": text})
		},
	})

	if err != nil {
		status := statusFor(err)
		logger.Warn(ctx, "Streaming assessment failed (%d): %v", status, err)
		_ = emit("error", gin.H{"detail": errorDetail(err, status), "status": status})
	} else {
		_ = emit("result", response)
	}

	_ = emit("done", nil)
}

// sendSSE sends a Server-Sent Event
func sendSSE(c *gin.Context, event string, data any) error {
	payload := []byte("{}")
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			_, werr := fmt.Fprintf(c.Writer, "event: error\ndata: {\"detail\": \"JSON marshal failed\"}\n\n")
			if werr != nil {
				return werr
			}
			return err
		}
		payload = jsonData
	}
	_, err := fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, payload)
	return err
}

// Classify handles POST /api/symptoms/classify
func (h *AssessHandler) Classify(c *gin.Context) {
	var req model.ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c, err)
		return
	}

	response, err := h.triage.Classify(c.Request.Context(), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

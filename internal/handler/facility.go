package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/stellaephile/whats-up-doc/internal/model"

	"github.com/gin-gonic/gin"
)

// FacilityLocator searches the facility directory
type FacilityLocator interface {
	Locate(ctx context.Context, req model.LocateRequest) (*model.LocateResponse, error)
	GetFacility(ctx context.Context, id int64) (*model.Facility, error)
}

// EmbeddingUpdater stores facility profile vectors
type EmbeddingUpdater interface {
	UpdateEmbeddings(ctx context.Context, items []model.FacilityEmbedding) (*model.EmbeddingBatchResponse, error)
}

// FacilityHandler handles facility-related HTTP requests
type FacilityHandler struct {
	locator    FacilityLocator
	embeddings EmbeddingUpdater
}

// NewFacilityHandler creates a new facility handler
func NewFacilityHandler(locator FacilityLocator, embeddings EmbeddingUpdater) *FacilityHandler {
	return &FacilityHandler{
		locator:    locator,
		embeddings: embeddings,
	}
}

// Nearby handles POST /api/facilities/nearby
func (h *FacilityHandler) Nearby(c *gin.Context) {
	var req model.LocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c, err)
		return
	}

	response, err := h.locator.Locate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetFacility handles GET /api/facilities/:id
func (h *FacilityHandler) GetFacility(c *gin.Context) {
	facilityID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid facility ID"})
		return
	}

	facility, err := h.locator.GetFacility(c.Request.Context(), facilityID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, facility)
}

// BatchUpdateEmbeddings handles POST /api/facilities/embeddings/batch
func (h *FacilityHandler) BatchUpdateEmbeddings(c *gin.Context) {
	var req model.EmbeddingBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c, err)
		return
	}

	response, err := h.embeddings.UpdateEmbeddings(c.Request.Context(), req.Embeddings)
	if err != nil {
		respondError(c, err)
		return
	}

	if len(response.Errors) > 0 {
		c.JSON(http.StatusPartialContent, response)
	} else {
		c.JSON(http.StatusOK, response)
	}
}

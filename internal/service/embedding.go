package service

import (
	"context"

	"github.com/stellaephile/whats-up-doc/internal/logger"
	"github.com/stellaephile/whats-up-doc/internal/model"
)

// EmbeddingStore persists facility profile vectors
type EmbeddingStore interface {
	BatchUpdateEmbeddings(ctx context.Context, items []model.FacilityEmbedding) (int, []string)
}

// EmbeddingService validates and stores precomputed facility embeddings
type EmbeddingService struct {
	store      EmbeddingStore
	dimensions int
}

// NewEmbeddingService creates an embedding service expecting vectors of the given size
func NewEmbeddingService(store EmbeddingStore, dimensions int) *EmbeddingService {
	return &EmbeddingService{store: store, dimensions: dimensions}
}

// Dimensions returns the expected vector length
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// UpdateEmbeddings stores a batch. A wrong-sized vector rejects the whole
// batch; per-row storage failures are reported in the response.
func (s *EmbeddingService) UpdateEmbeddings(ctx context.Context, items []model.FacilityEmbedding) (*model.EmbeddingBatchResponse, error) {
	if len(items) == 0 {
		return nil, model.NewBadRequest("no embeddings provided")
	}
	for i, item := range items {
		if item.FacilityID <= 0 {
			return nil, model.NewBadRequest("invalid facility id at index %d", i)
		}
		if len(item.Embedding) != s.dimensions {
			return nil, model.NewBadRequest("invalid embedding dimension at index %d: got %d, expected %d", i, len(item.Embedding), s.dimensions)
		}
	}

	success, errs := s.store.BatchUpdateEmbeddings(ctx, items)
	if len(errs) > 0 {
		logger.Warn(ctx, "Embedding batch: %d/%d stored, %d errors", success, len(items), len(errs))
	} else {
		logger.Info(ctx, "✅ Stored %d facility embeddings", success)
	}

	return &model.EmbeddingBatchResponse{
		Success: success,
		Failed:  len(items) - success,
		Errors:  errs,
	}, nil
}

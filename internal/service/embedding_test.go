package service

import (
	"context"
	"testing"

	"github.com/stellaephile/whats-up-doc/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbeddingStore struct {
	stored []model.FacilityEmbedding
	fail   map[int64]bool
}

func (s *fakeEmbeddingStore) BatchUpdateEmbeddings(ctx context.Context, items []model.FacilityEmbedding) (int, []string) {
	var errs []string
	for _, item := range items {
		if s.fail[item.FacilityID] {
			errs = append(errs, "facility_id not found")
			continue
		}
		s.stored = append(s.stored, item)
	}
	return len(s.stored), errs
}

func TestEmbeddingService_UpdateEmbeddings(t *testing.T) {
	store := &fakeEmbeddingStore{fail: map[int64]bool{3: true}}
	svc := NewEmbeddingService(store, 3)

	resp, err := svc.UpdateEmbeddings(context.Background(), []model.FacilityEmbedding{
		{FacilityID: 1, Embedding: []float32{0.1, 0.2, 0.3}},
		{FacilityID: 3, Embedding: []float32{0.1, 0.2, 0.3}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Success)
	assert.Equal(t, 1, resp.Failed)
	assert.Len(t, resp.Errors, 1)
}

func TestEmbeddingService_Validation(t *testing.T) {
	store := &fakeEmbeddingStore{}
	svc := NewEmbeddingService(store, 3)

	tests := []struct {
		name  string
		items []model.FacilityEmbedding
	}{
		{"empty", nil},
		{"wrong dimension", []model.FacilityEmbedding{{FacilityID: 1, Embedding: []float32{1, 2}}}},
		{"bad id", []model.FacilityEmbedding{{FacilityID: 0, Embedding: []float32{1, 2, 3}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateEmbeddings(context.Background(), tt.items)
			assert.ErrorIs(t, err, model.ErrBadRequest)
		})
	}
	assert.Empty(t, store.stored)
}

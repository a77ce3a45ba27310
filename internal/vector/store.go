// Package vector provides the nearest-neighbor store abstraction and adapters.
package vector

import (
	"context"
	"fmt"

	"github.com/torchseek/torchseek/internal/models"
)

// Hits is the canonical nearest-neighbor result shape. All adapters normalize
// their backend's response into these parallel slices, ordered by increasing
// distance, so downstream scoring never depends on which store produced them.
type Hits struct {
	IDs       []string
	Documents []string
	Metadatas []models.ChunkMetadata
	Distances []float64
}

// Len returns the number of hits.
func (h *Hits) Len() int {
	if h == nil {
		return 0
	}
	return len(h.IDs)
}

// Store manages the logical collection and answers nearest-neighbor queries.
type Store interface {
	// EnsureCollection creates the collection if it does not exist.
	EnsureCollection(ctx context.Context) error
	// ResetCollection deletes and recreates the collection.
	ResetCollection(ctx context.Context) error
	// Add inserts chunks in batches of batchSize. A failed batch surfaces as a
	// *StoreError carrying the batch index; no retry happens here.
	Add(ctx context.Context, chunks []*models.Chunk, batchSize int) error
	// Query returns the k nearest stored vectors, optionally restricted to one
	// chunk type.
	Query(ctx context.Context, vec []float32, k int, chunkType string) (*Hits, error)
	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int64, error)
	Close() error
}

// StoreError reports a failed insertion batch with enough context for the
// caller to decide whether to retry from that point.
type StoreError struct {
	Batch        int
	TotalBatches int
	BatchSize    int
	Err          error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("vector store batch %d/%d (%d chunks) failed: %v", e.Batch, e.TotalBatches, e.BatchSize, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NormalizeVector pads or truncates vec to exactly dims entries. Shorter
// vectors are zero-padded, longer vectors truncated, never an error; this
// tolerates provider-side dimension drift.
func NormalizeVector(vec []float32, dims int) []float32 {
	if vec == nil {
		return make([]float32, dims)
	}
	if len(vec) == dims {
		return vec
	}
	if len(vec) < dims {
		padded := make([]float32, dims)
		copy(padded, vec)
		return padded
	}
	return vec[:dims]
}

package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/torchseek/torchseek/internal/models"
)

// MemoryStore is an in-memory Store used in tests and as a fallback when no
// Qdrant instance is reachable. Distances are cosine distances.
type MemoryStore struct {
	mu         sync.RWMutex
	dimensions int
	created    bool
	chunks     []*models.Chunk

	// FailAddBatch, when >0, makes Add fail on that 1-based batch number.
	FailAddBatch int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(dimensions int) *MemoryStore {
	return &MemoryStore{dimensions: dimensions}
}

func (s *MemoryStore) EnsureCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = true
	return nil
}

func (s *MemoryStore) ResetCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = true
	s.chunks = nil
	return nil
}

func (s *MemoryStore) Add(ctx context.Context, chunks []*models.Chunk, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 50
	}
	totalBatches := (len(chunks)-1)/batchSize + 1
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batchNum := start/batchSize + 1
		if s.FailAddBatch > 0 && batchNum == s.FailAddBatch {
			return &StoreError{
				Batch:        batchNum,
				TotalBatches: totalBatches,
				BatchSize:    end - start,
				Err:          fmt.Errorf("simulated batch failure"),
			}
		}
		s.mu.Lock()
		for _, chunk := range chunks[start:end] {
			stored := *chunk
			stored.Embedding = NormalizeVector(chunk.Embedding, s.dimensions)
			s.chunks = append(s.chunks, &stored)
		}
		s.mu.Unlock()
	}
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, vec []float32, k int, chunkType string) (*Hits, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vec = NormalizeVector(vec, s.dimensions)
	type scored struct {
		chunk    *models.Chunk
		distance float64
	}
	var candidates []scored
	for _, chunk := range s.chunks {
		if chunkType != "" && chunk.Metadata.ChunkType != chunkType {
			continue
		}
		candidates = append(candidates, scored{
			chunk:    chunk,
			distance: 1.0 - cosineSimilarity(vec, chunk.Embedding),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})
	if k < len(candidates) {
		candidates = candidates[:k]
	}

	hits := &Hits{}
	for _, c := range candidates {
		hits.IDs = append(hits.IDs, c.chunk.ID)
		hits.Documents = append(hits.Documents, c.chunk.Text)
		hits.Metadatas = append(hits.Metadatas, c.chunk.Metadata)
		hits.Distances = append(hits.Distances, c.distance)
	}
	return hits, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.chunks)), nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ Store = (*MemoryStore)(nil)

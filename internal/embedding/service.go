package embedding

import (
	"context"
	"sync"
	"time"

	"github.com/torchseek/torchseek/internal/models"
	"go.uber.org/zap"
)

// Service produces embeddings with caching, batching, and per-item degradation.
// A text that cannot be embedded (provider failure, empty input) receives an
// all-zero vector of the configured dimensionality rather than failing the
// request; one bad text never blocks the rest of a batch.
type Service struct {
	provider   Provider
	cache      *DiskCache // nil disables caching
	dimensions int
	batchSize  int
	batchPause time.Duration
	logger     *zap.Logger

	statsMu sync.Mutex
	hits    int64
	misses  int64
}

// NewService creates an embedding service. cache may be nil to disable caching.
func NewService(provider Provider, cache *DiskCache, dimensions, batchSize int, batchPause time.Duration, logger *zap.Logger) *Service {
	return &Service{
		provider:   provider,
		cache:      cache,
		dimensions: dimensions,
		batchSize:  batchSize,
		batchPause: batchPause,
		logger:     logger,
	}
}

// Dimensions returns the configured embedding dimensionality.
func (s *Service) Dimensions() int {
	return s.dimensions
}

// Stats returns cumulative cache hit and miss counts for the life of the service.
func (s *Service) Stats() (hits, misses int64) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.hits, s.misses
}

func (s *Service) addStats(hits, misses int64) {
	s.statsMu.Lock()
	s.hits += hits
	s.misses += misses
	s.statsMu.Unlock()
}

func (s *Service) zeroVector() []float32 {
	return make([]float32, s.dimensions)
}

// Embed returns the embedding for a single text. Empty text yields the zero
// vector without a provider call; provider failure degrades to the zero vector.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns one embedding per input text, in input order. The result
// always has the same length as texts; failed items hold zero vectors.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	var hits, misses int64

	for start := 0; start < len(texts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		// Partition the batch into cached and uncached texts, preserving
		// original positions for the merge below.
		var uncachedTexts []string
		var uncachedIdx []int
		for i := start; i < end; i++ {
			text := texts[i]
			if text == "" {
				s.logger.Warn("empty text provided for embedding generation")
				out[i] = s.zeroVector()
				continue
			}
			if s.cache != nil {
				if vec, ok := s.cache.Get(text, s.provider.Model()); ok {
					hits++
					out[i] = s.normalize(vec)
					continue
				}
			}
			misses++
			uncachedTexts = append(uncachedTexts, text)
			uncachedIdx = append(uncachedIdx, i)
		}

		if len(uncachedTexts) > 0 {
			vecs, err := s.provider.EmbedBatch(ctx, uncachedTexts)
			if err != nil {
				s.logger.Error("batch embedding generation failed",
					zap.Int("batch", start/s.batchSize),
					zap.Int("size", len(uncachedTexts)),
					zap.Error(err),
				)
				for _, i := range uncachedIdx {
					out[i] = s.zeroVector()
				}
			} else {
				for j, i := range uncachedIdx {
					var vec []float32
					if j < len(vecs) {
						vec = vecs[j]
					}
					if vec == nil {
						out[i] = s.zeroVector()
						continue
					}
					vec = s.normalize(vec)
					out[i] = vec
					if s.cache != nil {
						s.cache.Put(texts[i], s.provider.Model(), vec)
					}
				}
			}
		}

		// Pause between provider calls to respect upstream rate limits. This
		// is the only intentional serialization point in the pipeline.
		if end < len(texts) && s.batchPause > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.batchPause):
			}
		}
	}

	s.addStats(hits, misses)
	if total := hits + misses; s.cache != nil && total > 0 {
		s.logger.Info("embedding cache statistics",
			zap.Int64("hits", hits),
			zap.Int64("misses", misses),
			zap.Float64("hit_rate", float64(hits)/float64(total)),
		)
	}
	return out, nil
}

// EmbedChunks fills in the Embedding field for every chunk missing one.
func (s *Service) EmbedChunks(ctx context.Context, chunks []*models.Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	s.logger.Info("generating embeddings for chunks",
		zap.Int("count", len(texts)),
		zap.String("model", s.provider.Model()),
		zap.Int("batch_size", s.batchSize),
	)
	vecs, err := s.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	for i, vec := range vecs {
		chunks[i].Embedding = vec
	}
	return nil
}

// normalize pads or truncates vec to the configured dimensionality.
// Provider-side dimension drift is tolerated, never an error.
func (s *Service) normalize(vec []float32) []float32 {
	if len(vec) == s.dimensions {
		return vec
	}
	if len(vec) < s.dimensions {
		padded := make([]float32, s.dimensions)
		copy(padded, vec)
		return padded
	}
	return vec[:s.dimensions]
}

// Package indexer loads chunk files into the vector store.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/torchseek/torchseek/internal/embedding"
	"github.com/torchseek/torchseek/internal/models"
	"github.com/torchseek/torchseek/internal/vector"
	"go.uber.org/zap"
)

// Indexer loads chunks from an export file, backfills missing embeddings,
// and inserts them into the vector store in batches.
type Indexer struct {
	embedder  *embedding.Service
	store     vector.Store
	batchSize int
	logger    *zap.Logger
}

// NewIndexer creates an indexer with the given dependencies.
func NewIndexer(embedder *embedding.Service, store vector.Store, batchSize int, logger *zap.Logger) *Indexer {
	return &Indexer{
		embedder:  embedder,
		store:     store,
		batchSize: batchSize,
		logger:    logger,
	}
}

// LoadFile reads a JSON chunk export. Chunks without an id get a fresh uuid.
func (idx *Indexer) LoadFile(path string) ([]*models.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chunks file: %w", err)
	}
	var chunks []*models.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("parse chunks file %s: %w", path, err)
	}
	for _, chunk := range chunks {
		if chunk.ID == "" {
			chunk.ID = uuid.New().String()
		}
	}
	idx.logger.Info("loaded chunks from file", zap.String("path", path), zap.Int("count", len(chunks)))
	return chunks, nil
}

// IndexFile loads a chunk export and indexes it. When reset is true the
// collection is dropped and recreated first.
func (idx *Indexer) IndexFile(ctx context.Context, path string, reset bool) (int, error) {
	chunks, err := idx.LoadFile(path)
	if err != nil {
		return 0, err
	}
	if err := idx.IndexChunks(ctx, chunks, reset); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// IndexChunks embeds any chunks missing a vector and inserts all of them.
func (idx *Indexer) IndexChunks(ctx context.Context, chunks []*models.Chunk, reset bool) error {
	if reset {
		if err := idx.store.ResetCollection(ctx); err != nil {
			return fmt.Errorf("reset collection: %w", err)
		}
	} else if err := idx.store.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	var missing []*models.Chunk
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			missing = append(missing, chunk)
		}
	}
	if len(missing) > 0 {
		idx.logger.Info("backfilling embeddings", zap.Int("count", len(missing)))
		if err := idx.embedder.EmbedChunks(ctx, missing); err != nil {
			return fmt.Errorf("embed chunks: %w", err)
		}
	}

	if err := idx.store.Add(ctx, chunks, idx.batchSize); err != nil {
		return fmt.Errorf("index chunks: %w", err)
	}
	idx.logger.Info("indexed chunks", zap.Int("count", len(chunks)))
	return nil
}

package search

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/torchseek/torchseek/internal/embedding"
	"github.com/torchseek/torchseek/internal/models"
	"github.com/torchseek/torchseek/internal/ranking"
	"github.com/torchseek/torchseek/internal/vector"
	"go.uber.org/zap"
)

const testDimensions = 16

func newTestEngine(t *testing.T, store vector.Store) (*Engine, *embedding.Service) {
	t.Helper()
	logger := zap.NewNop()
	provider := embedding.NewMockProvider(testDimensions)
	embedder := embedding.NewService(provider, nil, testDimensions, 10, 0, logger)
	cfg := ranking.DefaultRankingConfig()
	return NewEngine(embedder, store, cfg, logger), embedder
}

func seedStore(t *testing.T, store vector.Store, embedder *embedding.Service, chunks []*models.Chunk) {
	t.Helper()
	ctx := context.Background()
	if err := embedder.EmbedChunks(ctx, chunks); err != nil {
		t.Fatalf("EmbedChunks: %v", err)
	}
	if err := store.Add(ctx, chunks, 50); err != nil {
		t.Fatalf("Add: %v", err)
	}
}

func testChunks() []*models.Chunk {
	return []*models.Chunk{
		{
			ID:   "1",
			Text: "tensors are multi-dimensional arrays used throughout the library",
			Metadata: models.ChunkMetadata{
				Title: "Tensor Overview", Source: "tensors.html", ChunkType: models.ChunkTypeText,
			},
		},
		{
			ID:   "2",
			Text: "x = torch.zeros(3, 4)\ny = x.view(12)",
			Metadata: models.ChunkMetadata{
				Title: "Reshaping Example", Source: "tensors.html", ChunkType: models.ChunkTypeCode,
			},
		},
		{
			ID:   "3",
			Text: "autograd records operations to build a computation graph",
			Metadata: models.ChunkMetadata{
				Title: "Autograd Mechanics", Source: "autograd.html", ChunkType: models.ChunkTypeText,
			},
		},
	}
}

func TestSearchReturnsClosestChunkFirst(t *testing.T) {
	store := vector.NewMemoryStore(testDimensions)
	engine, embedder := newTestEngine(t, store)
	chunks := testChunks()
	seedStore(t, store, embedder, chunks)

	// The mock provider is deterministic, so querying with a stored chunk's
	// exact text must rank that chunk first with similarity 1.
	resp, err := engine.Search(context.Background(), chunks[0].Text, 3, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Count == 0 {
		t.Fatal("expected results")
	}
	if got := resp.Results[0].Title; got != "Tensor Overview" {
		t.Fatalf("top result = %q, want %q", got, "Tensor Overview")
	}
	if resp.Results[0].Score < resp.Results[resp.Count-1].Score {
		t.Fatal("results not sorted by descending score")
	}
}

func TestSearchTrimsAndClassifiesQuery(t *testing.T) {
	store := vector.NewMemoryStore(testDimensions)
	engine, embedder := newTestEngine(t, store)
	seedStore(t, store, embedder, testChunks())

	resp, err := engine.Search(context.Background(), "  torch.nn.Linear() example  ", 3, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Query != "torch.nn.Linear() example" {
		t.Fatalf("query not trimmed: %q", resp.Query)
	}
	if !resp.IsCodeQuery {
		t.Fatal("expected code query classification")
	}
	if !resp.Metadata.IsCodeQuery {
		t.Fatal("metadata classification disagrees with response")
	}
}

func TestSearchFilterRestrictsChunkType(t *testing.T) {
	store := vector.NewMemoryStore(testDimensions)
	engine, embedder := newTestEngine(t, store)
	seedStore(t, store, embedder, testChunks())

	resp, err := engine.Search(context.Background(), "reshaping tensors", 5, models.ChunkTypeCode)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range resp.Results {
		if r.ChunkType != models.ChunkTypeCode {
			t.Fatalf("filter leaked chunk type %q", r.ChunkType)
		}
	}
	if resp.Metadata.Filter != models.ChunkTypeCode {
		t.Fatalf("metadata filter = %q", resp.Metadata.Filter)
	}
}

func TestSearchMetadataTiming(t *testing.T) {
	store := vector.NewMemoryStore(testDimensions)
	engine, embedder := newTestEngine(t, store)
	seedStore(t, store, embedder, testChunks())

	resp, err := engine.Search(context.Background(), "autograd", 3, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, stage := range []string{"query_processing", "database_query", "format_results", "rank_results"} {
		v, ok := resp.Metadata.Timing[stage]
		if !ok {
			t.Fatalf("missing timing stage %q", stage)
		}
		if v < 0 {
			t.Fatalf("negative timing for %q: %f", stage, v)
		}
	}
	if resp.Metadata.TotalTime < 0 {
		t.Fatalf("negative total time %f", resp.Metadata.TotalTime)
	}
	if resp.Metadata.ResultCount != resp.Count {
		t.Fatalf("metadata result count %d != %d", resp.Metadata.ResultCount, resp.Count)
	}
}

func TestSearchEmptyStoreReturnsNoResults(t *testing.T) {
	store := vector.NewMemoryStore(testDimensions)
	engine, _ := newTestEngine(t, store)

	resp, err := engine.Search(context.Background(), "anything", 5, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Count != 0 || len(resp.Results) != 0 {
		t.Fatalf("expected empty result set, got %d", resp.Count)
	}
}

// failingStore fails every query, for error-path tests.
type failingStore struct {
	*vector.MemoryStore
}

func (s *failingStore) Query(ctx context.Context, vec []float32, k int, chunkType string) (*vector.Hits, error) {
	return nil, fmt.Errorf("connection refused")
}

func TestSearchStoreFailureYieldsSearchError(t *testing.T) {
	store := &failingStore{MemoryStore: vector.NewMemoryStore(testDimensions)}
	engine, _ := newTestEngine(t, store)

	start := time.Now()
	resp, err := engine.Search(context.Background(), "autograd", 3, "text")
	if resp != nil {
		t.Fatal("expected nil response on failure")
	}
	var searchErr *SearchError
	if !errors.As(err, &searchErr) {
		t.Fatalf("expected *SearchError, got %T: %v", err, err)
	}
	if searchErr.Query != "autograd" || searchErr.Filter != "text" {
		t.Fatalf("error context = %q/%q", searchErr.Query, searchErr.Filter)
	}
	if searchErr.Elapsed < 0 || searchErr.Elapsed > time.Since(start)+time.Second {
		t.Fatalf("implausible elapsed %s", searchErr.Elapsed)
	}
}

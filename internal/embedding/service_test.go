package embedding

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func newTestService(t *testing.T, provider Provider, withCache bool, dims int) *Service {
	t.Helper()
	var cache *DiskCache
	if withCache {
		var err error
		cache, err = NewDiskCache(t.TempDir(), 1<<20, zap.NewNop())
		if err != nil {
			t.Fatal(err)
		}
	}
	return NewService(provider, cache, dims, 2, 0, zap.NewNop())
}

func TestEmbedBatchShapeAndOrder(t *testing.T) {
	provider := NewMockProvider(8)
	svc := newTestService(t, provider, true, 8)

	texts := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	vecs, err := svc.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vecs), len(texts))
	}
	for i, v := range vecs {
		if len(v) != 8 {
			t.Errorf("vector %d has %d dims, want 8", i, len(v))
		}
	}
	// Order must match a direct per-text embed.
	direct, _ := svc.Embed(context.Background(), "gamma")
	if vecs[2][0] != direct[0] {
		t.Error("batch result out of input order")
	}
}

func TestEmbedBatchAllProviderFailuresYieldZeroVectors(t *testing.T) {
	provider := NewMockProvider(4)
	provider.Fail = true
	svc := newTestService(t, provider, false, 4)

	vecs, err := svc.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch must not fail on provider error: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vecs))
	}
	for i, v := range vecs {
		if len(v) != 4 {
			t.Fatalf("vector %d has %d dims, want 4", i, len(v))
		}
		for _, x := range v {
			if x != 0 {
				t.Errorf("vector %d should be all zeros, got %v", i, v)
				break
			}
		}
	}
}

func TestEmbedEmptyTextSkipsProvider(t *testing.T) {
	provider := NewMockProvider(4)
	svc := newTestService(t, provider, false, 4)

	vec, err := svc.Embed(context.Background(), "")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 4 {
		t.Fatalf("got %d dims, want 4", len(vec))
	}
	for _, x := range vec {
		if x != 0 {
			t.Fatal("empty text must embed to the zero vector")
		}
	}
	if provider.Calls != 0 {
		t.Errorf("provider called %d times for empty text, want 0", provider.Calls)
	}
}

func TestEmbedBatchUsesCacheOnSecondRun(t *testing.T) {
	provider := NewMockProvider(4)
	svc := newTestService(t, provider, true, 4)

	texts := []string{"one", "two"}
	if _, err := svc.EmbedBatch(context.Background(), texts); err != nil {
		t.Fatal(err)
	}
	callsAfterFirst := provider.Calls
	if _, err := svc.EmbedBatch(context.Background(), texts); err != nil {
		t.Fatal(err)
	}
	if provider.Calls != callsAfterFirst {
		t.Errorf("provider called again for cached texts: %d -> %d", callsAfterFirst, provider.Calls)
	}
	hits, misses := svc.Stats()
	if hits != 2 || misses != 2 {
		t.Errorf("stats = %d hits, %d misses; want 2, 2", hits, misses)
	}
}

// shortProvider returns fewer dimensions than configured; the service must pad.
type shortProvider struct{ dims int }

func (p *shortProvider) Model() string { return "short" }

func (p *shortProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, p.dims)
		for j := range vec {
			vec[j] = 1
		}
		out[i] = vec
	}
	return out, nil
}

func TestEmbedPadsShortProviderVectors(t *testing.T) {
	svc := newTestService(t, &shortProvider{dims: 10}, false, 3072)

	vec, err := svc.Embed(context.Background(), "anything")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 3072 {
		t.Fatalf("got %d dims, want 3072", len(vec))
	}
	if vec[9] != 1 || vec[10] != 0 {
		t.Errorf("expected 10 provider values then zero padding, got vec[9]=%v vec[10]=%v", vec[9], vec[10])
	}
}

func TestEmbedTruncatesLongProviderVectors(t *testing.T) {
	svc := newTestService(t, &shortProvider{dims: 10}, false, 3)

	vec, err := svc.Embed(context.Background(), "anything")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 3 {
		t.Fatalf("got %d dims, want 3", len(vec))
	}
}

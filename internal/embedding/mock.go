package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
)

// MockProvider is a deterministic provider for tests. It derives a fixed-length
// vector from the text hash so the same text always gets the same embedding.
type MockProvider struct {
	dimensions int
	// Fail makes every call return an error, for degradation tests.
	Fail bool
	// Calls counts provider invocations.
	Calls int
}

// NewMockProvider returns a provider producing deterministic embeddings.
func NewMockProvider(dimensions int) *MockProvider {
	if dimensions <= 0 {
		dimensions = 8
	}
	return &MockProvider{dimensions: dimensions}
}

// Model returns a fixed model identifier.
func (p *MockProvider) Model() string {
	return "mock-embedding"
}

// EmbedBatch returns one deterministic unit vector per text.
func (p *MockProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	p.Calls++
	if p.Fail {
		return nil, fmt.Errorf("mock provider failure")
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = p.vectorFor(text)
	}
	return out, nil
}

func (p *MockProvider) vectorFor(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	seed := binary.BigEndian.Uint64(sum[:8])
	vec := make([]float32, p.dimensions)
	for i := range vec {
		vec[i] = float32(math.Sin(float64(seed%1000)*float64(i+1)) * 0.1)
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm > 0 {
		inv := 1.0 / math.Sqrt(norm)
		for i := range vec {
			vec[i] *= float32(inv)
		}
	}
	return vec
}

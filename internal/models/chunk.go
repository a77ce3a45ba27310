// Package models defines core data structures for chunks, search results, and responses.
package models

// ChunkMetadata describes where a chunk came from and what kind of content it holds.
type ChunkMetadata struct {
	Title     string `json:"title"`
	Source    string `json:"source"`
	ChunkType string `json:"chunk_type"`
	Language  string `json:"language,omitempty"`
	Section   string `json:"section,omitempty"`
}

// Chunk is the atomic indexed unit: a slice of documentation text plus metadata.
// Chunks are produced by the external ingestion process and are immutable once stored.
type Chunk struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	Embedding []float32     `json:"embedding,omitempty"`
	Metadata  ChunkMetadata `json:"metadata"`
}

// Chunk type values recognized by the ranking heuristics and query filter.
const (
	ChunkTypeCode    = "code"
	ChunkTypeText    = "text"
	ChunkTypeUnknown = "unknown"
)

package models

// SearchResult is a single ranked hit. Derived per query, never persisted.
type SearchResult struct {
	Title       string  `json:"title"`
	Snippet     string  `json:"snippet"`
	Source      string  `json:"source"`
	ChunkType   string  `json:"chunk_type"`
	Language    string  `json:"language"`
	Section     string  `json:"section"`
	Score       float64 `json:"score"`
	MatchReason string  `json:"match_reason,omitempty"`
	TitleMatch  bool    `json:"title_match,omitempty"`
}

// SearchMetadata carries per-stage timing and search context for a response.
type SearchMetadata struct {
	// Timing maps stage name to elapsed seconds.
	Timing      map[string]float64 `json:"timing"`
	TotalTime   float64            `json:"total_time"`
	ResultCount int                `json:"result_count"`
	IsCodeQuery bool               `json:"is_code_query"`
	Filter      string             `json:"filter,omitempty"`
}

// SearchResponse is the full response for one search request.
type SearchResponse struct {
	Results     []*SearchResult `json:"results"`
	Query       string          `json:"query"`
	Count       int             `json:"count"`
	IsCodeQuery bool            `json:"is_code_query"`
	Metadata    *SearchMetadata `json:"metadata,omitempty"`
}

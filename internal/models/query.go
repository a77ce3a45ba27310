package models

import "fmt"

// SearchQuery represents one search request with optional filters.
type SearchQuery struct {
	Query      string `json:"query"`
	NumResults int    `json:"num_results,omitempty"`
	// Filter restricts results to one chunk type ("code" or "text"). Empty means no filter.
	Filter string `json:"filter,omitempty"`
}

// Validate checks the query and normalizes defaults in place.
// Returns an error for an empty query or an unrecognized filter value.
func (q *SearchQuery) Validate(defaultLimit int) error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.NumResults <= 0 {
		q.NumResults = defaultLimit
	}
	switch q.Filter {
	case "", ChunkTypeCode, ChunkTypeText:
	default:
		return fmt.Errorf("invalid filter %q: must be %q, %q, or empty", q.Filter, ChunkTypeCode, ChunkTypeText)
	}
	return nil
}

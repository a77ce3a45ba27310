package ranking

import "strings"

// QueryClassifier decides whether a query seeks source code or conceptual text.
// It is a fixed deterministic heuristic, not an oracle: keywords match
// case-insensitively, syntax patterns case-sensitively.
type QueryClassifier struct {
	config *RankingConfig
}

// NewQueryClassifier creates a classifier with the given config.
func NewQueryClassifier(config *RankingConfig) *QueryClassifier {
	if config == nil {
		config = DefaultRankingConfig()
	}
	config.ApplyDefaults()
	return &QueryClassifier{config: config}
}

// IsCodeQuery reports whether the query looks like it wants code.
func (qc *QueryClassifier) IsCodeQuery(query string) bool {
	lower := strings.ToLower(query)
	for _, kw := range qc.config.CodeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	for _, pattern := range qc.config.CodePatterns {
		if strings.Contains(query, pattern) {
			return true
		}
	}
	return false
}

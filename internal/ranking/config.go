// Package ranking converts raw nearest-neighbor hits into scored, ordered results.
package ranking

// RankingConfig holds every heuristic constant used by formatting, ranking,
// and code-query classification. The boost values and term lists are fixed
// heuristics with no derivation beyond observed usefulness; they are kept
// configurable rather than inlined.
type RankingConfig struct {
	// TypeBoost multiplies the score when the chunk type matches the query intent.
	TypeBoost float64
	// TitleBoost multiplies the score when a query term appears in the title.
	TitleBoost float64
	// MinTitleTermLen is the minimum term length considered for title matches.
	MinTitleTermLen int
	// SnippetLength is the maximum snippet length in runes before truncation.
	SnippetLength int
	// CodeKeywords classify a query as code-seeking, matched case-insensitively.
	CodeKeywords []string
	// CodePatterns classify a query as code-seeking, matched case-sensitively.
	CodePatterns []string
}

// DefaultRankingConfig returns the standard heuristic constants.
func DefaultRankingConfig() *RankingConfig {
	return &RankingConfig{
		TypeBoost:       1.2,
		TitleBoost:      1.1,
		MinTitleTermLen: 3,
		SnippetLength:   250,
		CodeKeywords: []string{
			"code", "example", "implementation", "function", "class", "method",
			"snippet", "syntax", "parameter", "argument", "return", "import",
			"module", "api", "call", "invoke", "instantiate", "initialize",
		},
		CodePatterns: []string{
			"def ", "class ", "import ", "from ", "torch.", "nn.",
			"->", "=>", "==", "!=", "+=", "-=", "*=", "()", "@",
		},
	}
}

// ApplyDefaults fills zero values with defaults.
func (c *RankingConfig) ApplyDefaults() {
	d := DefaultRankingConfig()
	if c.TypeBoost == 0 {
		c.TypeBoost = d.TypeBoost
	}
	if c.TitleBoost == 0 {
		c.TitleBoost = d.TitleBoost
	}
	if c.MinTitleTermLen == 0 {
		c.MinTitleTermLen = d.MinTitleTermLen
	}
	if c.SnippetLength == 0 {
		c.SnippetLength = d.SnippetLength
	}
	if c.CodeKeywords == nil {
		c.CodeKeywords = d.CodeKeywords
	}
	if c.CodePatterns == nil {
		c.CodePatterns = d.CodePatterns
	}
}

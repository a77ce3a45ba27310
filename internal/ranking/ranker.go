package ranking

import (
	"sort"
	"strings"

	"github.com/torchseek/torchseek/internal/models"
	"go.uber.org/zap"
)

// Ranker orders formatted candidates using the content-type-aware heuristic.
type Ranker struct {
	config *RankingConfig
	logger *zap.Logger
}

// NewRanker creates a ranker with the given config.
func NewRanker(config *RankingConfig, logger *zap.Logger) *Ranker {
	if config == nil {
		config = DefaultRankingConfig()
	}
	config.ApplyDefaults()
	return &Ranker{config: config, logger: logger}
}

// Rank boosts and reorders results in place and returns them.
//
// Boosts compose multiplicatively: the content-type boost when the chunk type
// matches the query intent, then the title boost when any query term longer
// than the configured minimum appears in the title. The final score is clamped
// to 1.0 and rounded to 4 decimals. Ordering is descending by score; ties keep
// the order produced by the nearest-neighbor search (stable sort).
func (r *Ranker) Rank(results []*models.SearchResult, query string, isCodeQuery bool) []*models.SearchResult {
	if len(results) == 0 {
		return results
	}

	queryTerms := strings.Fields(strings.ToLower(query))

	for _, result := range results {
		score := result.Score

		if isCodeQuery && result.ChunkType == models.ChunkTypeCode {
			score = clamp1(score * r.config.TypeBoost)
			result.MatchReason = "code query & code content"
		} else if !isCodeQuery && result.ChunkType == models.ChunkTypeText {
			score = clamp1(score * r.config.TypeBoost)
			result.MatchReason = "concept query & text content"
		}

		if r.titleMatches(result.Title, queryTerms) {
			score = clamp1(score * r.config.TitleBoost)
			result.TitleMatch = true
		}

		result.Score = round4(score)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	r.logger.Debug("ranked results",
		zap.Int("count", len(results)),
		zap.Float64("top_score", results[0].Score),
		zap.Bool("is_code_query", isCodeQuery),
	)
	return results
}

func (r *Ranker) titleMatches(title string, queryTerms []string) bool {
	lower := strings.ToLower(title)
	for _, term := range queryTerms {
		if len(term) > r.config.MinTitleTermLen && strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func clamp1(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	return v
}

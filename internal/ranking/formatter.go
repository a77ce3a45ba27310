package ranking

import (
	"fmt"
	"math"

	"github.com/torchseek/torchseek/internal/models"
	"github.com/torchseek/torchseek/internal/vector"
	"go.uber.org/zap"
)

// neutralSimilarity is used when a hit carries no usable distance.
const neutralSimilarity = 0.5

// Formatter converts canonical store hits into unranked result candidates.
type Formatter struct {
	config *RankingConfig
	logger *zap.Logger
}

// NewFormatter creates a formatter with the given config.
func NewFormatter(config *RankingConfig, logger *zap.Logger) *Formatter {
	if config == nil {
		config = DefaultRankingConfig()
	}
	config.ApplyDefaults()
	return &Formatter{config: config, logger: logger}
}

// Format builds one SearchResult per hit. Malformed per-hit data degrades to
// placeholders: a non-finite distance becomes a neutral similarity, missing
// metadata falls back to a positional title and empty fields.
func (f *Formatter) Format(hits *vector.Hits, query string) []*models.SearchResult {
	if hits == nil || hits.Len() == 0 {
		f.logger.Debug("no hits to format", zap.String("query", query))
		return []*models.SearchResult{}
	}
	f.logger.Debug("formatting search results", zap.Int("count", hits.Len()))

	results := make([]*models.SearchResult, 0, hits.Len())
	for i := 0; i < hits.Len(); i++ {
		similarity := neutralSimilarity
		if d := hits.Distances[i]; !math.IsNaN(d) && !math.IsInf(d, 0) {
			similarity = 1.0 - d
		}

		meta := hits.Metadatas[i]
		title := meta.Title
		if title == "" {
			title = fmt.Sprintf("Result %d", i+1)
		}
		chunkType := meta.ChunkType
		if chunkType == "" {
			chunkType = models.ChunkTypeUnknown
		}

		results = append(results, &models.SearchResult{
			Title:     title,
			Snippet:   f.snippet(hits.Documents[i]),
			Source:    meta.Source,
			ChunkType: chunkType,
			Language:  meta.Language,
			Section:   meta.Section,
			Score:     round4(similarity),
		})
	}
	return results
}

// snippet truncates text to the configured length, rune-safe, with an ellipsis.
func (f *Formatter) snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= f.config.SnippetLength {
		return text
	}
	return string(runes[:f.config.SnippetLength]) + "..."
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

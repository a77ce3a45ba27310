// Package search composes embedding, vector query, and ranking into one pipeline.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/torchseek/torchseek/internal/embedding"
	"github.com/torchseek/torchseek/internal/models"
	"github.com/torchseek/torchseek/internal/ranking"
	"github.com/torchseek/torchseek/internal/vector"
	"go.uber.org/zap"
)

// SearchError wraps any pipeline stage failure with the query context and the
// time elapsed before the failure. Search is all-or-nothing: a SearchError
// means no partial results were produced.
type SearchError struct {
	Query   string
	Filter  string
	Elapsed time.Duration
	Err     error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search for %q failed after %s: %v", e.Query, e.Elapsed, e.Err)
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// Engine is the search orchestrator.
type Engine struct {
	embedder   *embedding.Service
	store      vector.Store
	formatter  *ranking.Formatter
	ranker     *ranking.Ranker
	classifier *ranking.QueryClassifier
	logger     *zap.Logger
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(
	embedder *embedding.Service,
	store vector.Store,
	rankCfg *ranking.RankingConfig,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		embedder:   embedder,
		store:      store,
		formatter:  ranking.NewFormatter(rankCfg, logger),
		ranker:     ranking.NewRanker(rankCfg, logger),
		classifier: ranking.NewQueryClassifier(rankCfg),
		logger:     logger,
	}
}

// Search runs the full pipeline: trim and classify the query, embed it, query
// the vector store with the optional chunk-type filter, then format and rank.
// Per-stage timings are attached to the response metadata.
func (e *Engine) Search(ctx context.Context, query string, numResults int, filter string) (*models.SearchResponse, error) {
	start := time.Now()
	timing := map[string]float64{}
	fail := func(err error) (*models.SearchResponse, error) {
		return nil, &SearchError{Query: query, Filter: filter, Elapsed: time.Since(start), Err: err}
	}

	query = strings.TrimSpace(query)
	isCodeQuery := e.classifier.IsCodeQuery(query)

	stageStart := time.Now()
	queryVec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return fail(fmt.Errorf("query embedding: %w", err))
	}
	timing["query_processing"] = seconds(stageStart)

	e.logger.Info("executing search",
		zap.String("query", query),
		zap.Bool("is_code_query", isCodeQuery),
		zap.String("filter", filter),
	)

	stageStart = time.Now()
	hits, err := e.store.Query(ctx, queryVec, numResults, filter)
	if err != nil {
		return fail(fmt.Errorf("vector query: %w", err))
	}
	timing["database_query"] = seconds(stageStart)

	stageStart = time.Now()
	results := e.formatter.Format(hits, query)
	timing["format_results"] = seconds(stageStart)

	stageStart = time.Now()
	results = e.ranker.Rank(results, query, isCodeQuery)
	timing["rank_results"] = seconds(stageStart)

	total := seconds(start)
	response := &models.SearchResponse{
		Results:     results,
		Query:       query,
		Count:       len(results),
		IsCodeQuery: isCodeQuery,
		Metadata: &models.SearchMetadata{
			Timing:      timing,
			TotalTime:   total,
			ResultCount: len(results),
			IsCodeQuery: isCodeQuery,
			Filter:      filter,
		},
	}

	e.logger.Info("search completed",
		zap.Int("result_count", len(results)),
		zap.Float64("time_taken", total),
		zap.Bool("is_code_query", isCodeQuery),
	)
	return response, nil
}

func seconds(since time.Time) float64 {
	return time.Since(since).Seconds()
}

// Package main is the torchseek CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/torchseek/torchseek/internal/config"
	"github.com/torchseek/torchseek/internal/embedding"
	"github.com/torchseek/torchseek/internal/indexer"
	"github.com/torchseek/torchseek/internal/protocol"
	"github.com/torchseek/torchseek/internal/ranking"
	"github.com/torchseek/torchseek/internal/search"
	"github.com/torchseek/torchseek/internal/transport"
	"github.com/torchseek/torchseek/internal/vector"
	"github.com/torchseek/torchseek/internal/watcher"
	"github.com/torchseek/torchseek/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "config.yaml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "serve":
		runServe()
	case "index":
		runIndex()
	case "search":
		runSearch()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("torchseek version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`Usage: torchseek <command> [flags]

Commands:
  serve    Run the search server (stdio or sse transport)
  index    Load a chunk export file into the vector store
  search   Run a query from the command line
  status   Show collection and cache statistics
  version  Print version
  help     Show this help

Run "torchseek <command> -h" for command flags.
`)
}

// components holds the wired search pipeline shared by the subcommands.
type components struct {
	Config   *config.Config
	Cache    *embedding.DiskCache
	Embedder *embedding.Service
	Store    *vector.QdrantStore
	Engine   *search.Engine
	Indexer  *indexer.Indexer
	Logger   *zap.Logger
}

func (c *components) Close() {
	if err := c.Store.Close(); err != nil {
		c.Logger.Warn("store close failed", zap.Error(err))
	}
	_ = c.Logger.Sync()
}

// loadAndValidate loads config, applies the data-dir override, and exits on
// any validation problem so misconfiguration is caught before serving.
func loadAndValidate(configPath, dataDir string) *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if dataDir != "" {
		cfg.RebaseDataDir(dataDir)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		fields := make([]string, 0, len(errs))
		for field := range errs {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		fmt.Fprintln(os.Stderr, "Invalid configuration:")
		for _, field := range fields {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", field, errs[field])
		}
		os.Exit(1)
	}
	return cfg
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*components, error) {
	cache, err := embedding.NewDiskCache(cfg.Storage.CacheDir, cfg.Storage.CacheMaxBytes, logger)
	if err != nil {
		return nil, fmt.Errorf("embedding cache: %w", err)
	}
	provider, err := embedding.NewOpenAIProvider(
		cfg.Embedding.APIKey,
		cfg.Embedding.BaseURL,
		cfg.Embedding.Model,
		time.Duration(cfg.Embedding.TimeoutSeconds)*time.Second,
	)
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}
	embedder := embedding.NewService(
		provider,
		cache,
		cfg.Embedding.Dimensions,
		cfg.Embedding.BatchSize,
		time.Duration(cfg.Embedding.BatchPauseMillis)*time.Millisecond,
		logger,
	)
	store, err := vector.NewQdrantStore(
		cfg.Storage.QdrantHost,
		cfg.Storage.QdrantPort,
		cfg.Storage.CollectionName,
		cfg.Embedding.Dimensions,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}
	rankCfg := ranking.DefaultRankingConfig()
	engine := search.NewEngine(embedder, store, rankCfg, logger)
	idx := indexer.NewIndexer(embedder, store, cfg.Search.InsertBatchSize, logger)
	return &components{
		Config:   cfg,
		Cache:    cache,
		Embedder: embedder,
		Store:    store,
		Engine:   engine,
		Indexer:  idx,
		Logger:   logger,
	}, nil
}

func newDispatcher(c *components) *protocol.Dispatcher {
	descriptor := protocol.NewToolDescriptor(
		c.Config.Tool.Name,
		c.Config.Tool.Description,
		c.Config.Search.DefaultLimit,
	)
	handler := search.ToolHandler(c.Engine, c.Config.Search.DefaultLimit)
	return protocol.NewDispatcher(descriptor, handler, c.Logger)
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	transportName := fs.String("transport", "stdio", "transport: stdio or sse")
	host := fs.String("host", "", "override listen host (sse)")
	port := fs.Int("port", 0, "override listen port (sse)")
	dataDir := fs.String("data-dir", "", "base directory for cache and chunk files")
	watch := fs.Bool("watch", false, "reindex when the chunks file changes")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg := loadAndValidate(*configPath, *dataDir)
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	c, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Store.EnsureCollection(ctx); err != nil {
		logger.Fatal("Failed to reach vector store", zap.Error(err))
	}

	if *watch {
		watchCtx, watchCancel := context.WithCancel(ctx)
		defer watchCancel()
		w := watcher.NewWatcher(cfg.Storage.ChunksPath, func(path string) {
			if _, err := c.Indexer.IndexFile(context.Background(), path, true); err != nil {
				logger.Warn("reindex after file change failed", zap.String("path", path), zap.Error(err))
			}
		}, logger)
		if err := w.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start chunks watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	dispatcher := newDispatcher(c)
	var tr transport.Transport
	switch *transportName {
	case "stdio":
		tr = transport.NewStdioTransport(dispatcher, os.Stdin, os.Stdout, logger)
	case "sse":
		tr = transport.NewSSETransport(
			dispatcher,
			cfg.Server.Host,
			cfg.Server.Port,
			time.Duration(cfg.Server.KeepAliveSeconds)*time.Second,
			logger,
		)
	default:
		logger.Fatal("Unknown transport", zap.String("transport", *transportName))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("Shutting down...", zap.String("signal", sig.String()))
		tr.Stop()
	}()

	if err := tr.Start(); err != nil {
		logger.Fatal("Transport failed", zap.Error(err))
	}
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	chunksPath := fs.String("chunks", "", "chunk export file (default: storage.chunks_path)")
	dataDir := fs.String("data-dir", "", "base directory for cache and chunk files")
	noReset := fs.Bool("no-reset", false, "keep existing collection contents")
	stats := fs.Bool("stats", false, "print collection statistics after loading")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg := loadAndValidate(*configPath, *dataDir)
	path := *chunksPath
	if path == "" {
		path = cfg.Storage.ChunksPath
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "No chunks file: pass --chunks or set storage.chunks_path")
		os.Exit(1)
	}

	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	c, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer c.Close()

	count, err := c.Indexer.IndexFile(context.Background(), path, !*noReset)
	if err != nil {
		logger.Fatal("Indexing failed", zap.Error(err))
	}
	fmt.Printf("Indexed %d chunks from %s\n", count, path)

	if *stats {
		total, err := c.Store.Count(context.Background())
		if err != nil {
			logger.Fatal("Count failed", zap.Error(err))
		}
		hits, misses := c.Embedder.Stats()
		fmt.Printf("Collection size: %d\nEmbedding cache: %d hits, %d misses\n", total, hits, misses)
	}
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	dataDir := fs.String("data-dir", "", "base directory for cache and chunk files")
	limit := fs.Int("limit", 0, "number of results (default: search.default_limit)")
	filter := fs.String("filter", "", `restrict to one chunk type: "code" or "text"`)
	jsonOut := fs.Bool("json", false, "print the full response as JSON")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: torchseek search [flags] <query>")
		fs.PrintDefaults()
		os.Exit(1)
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))

	cfg := loadAndValidate(*configPath, *dataDir)
	if *limit <= 0 {
		*limit = cfg.Search.DefaultLimit
	}

	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	c, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer c.Close()

	response, err := c.Engine.Search(context.Background(), query, *limit, *filter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}

	if *jsonOut {
		out, err := json.MarshalIndent(response, "", "  ")
		if err != nil {
			logger.Fatal("Encode failed", zap.Error(err))
		}
		fmt.Println(string(out))
		return
	}

	fmt.Printf("Search results for: %s\n\n", response.Query)
	for i, res := range response.Results {
		fmt.Printf("--- Result %d (%s) ---\n", i+1, res.ChunkType)
		fmt.Printf("Title: %s\n", res.Title)
		fmt.Printf("Source: %s\n", res.Source)
		fmt.Printf("Score: %.4f\n", res.Score)
		fmt.Printf("Snippet: %s\n\n", res.Snippet)
	}
	if len(response.Results) == 0 {
		fmt.Println("No results.")
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	dataDir := fs.String("data-dir", "", "base directory for cache and chunk files")
	_ = fs.Parse(os.Args[2:])

	cfg := loadAndValidate(*configPath, *dataDir)
	logger := zap.NewNop()
	c, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize components: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	count, err := c.Store.Count(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to reach vector store: %v\n", err)
		os.Exit(1)
	}
	cacheBytes := c.Cache.SizeBytes()

	fmt.Printf("Collection: %s\n", cfg.Storage.CollectionName)
	fmt.Printf("  chunks:       %d\n", count)
	fmt.Printf("  qdrant:       %s:%d\n", cfg.Storage.QdrantHost, cfg.Storage.QdrantPort)
	fmt.Printf("Embedding cache: %s\n", cfg.Storage.CacheDir)
	fmt.Printf("  size:         %d bytes (ceiling %d)\n", cacheBytes, cfg.Storage.CacheMaxBytes)
	fmt.Printf("Embedding model: %s (%d dimensions)\n", cfg.Embedding.Model, cfg.Embedding.Dimensions)
}

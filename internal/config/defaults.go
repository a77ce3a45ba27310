package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.KeepAliveSeconds == 0 {
		cfg.Server.KeepAliveSeconds = 15
	}
	if cfg.Storage.QdrantHost == "" {
		cfg.Storage.QdrantHost = "localhost"
	}
	if cfg.Storage.QdrantPort == 0 {
		cfg.Storage.QdrantPort = 6334
	}
	if cfg.Storage.CollectionName == "" {
		cfg.Storage.CollectionName = "pytorch_docs"
	}
	if cfg.Storage.CacheDir == "" {
		cfg.Storage.CacheDir = "./data/embedding_cache"
	}
	if cfg.Storage.CacheMaxBytes == 0 {
		cfg.Storage.CacheMaxBytes = 1 << 30 // 1 GiB
	}
	if cfg.Storage.ChunksPath == "" {
		cfg.Storage.ChunksPath = "./data/chunks.json"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-large"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 3072
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 20
	}
	if cfg.Embedding.BatchPauseMillis == 0 {
		cfg.Embedding.BatchPauseMillis = 500
	}
	if cfg.Embedding.TimeoutSeconds == 0 {
		cfg.Embedding.TimeoutSeconds = 60
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 5
	}
	if cfg.Search.InsertBatchSize == 0 {
		cfg.Search.InsertBatchSize = 50
	}
	if cfg.Tool.Name == "" {
		cfg.Tool.Name = "search_pytorch_docs"
	}
	if cfg.Tool.Description == "" {
		cfg.Tool.Description = "Search PyTorch documentation or examples. Call when the user asks " +
			"about a PyTorch API, error message, best-practice or needs a code snippet."
	}
}

package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port      int              `json:"port"`
	JWTSecret string           `json:"jwt_secret"`
	LogConfig logger.LogConfig `json:"log_config"`
	Database  DatabaseConfig   `json:"database"`
	FileStore FileStoreConfig  `json:"file_store"`
	AI        AIConfig         `json:"ai"`
	Ingest    IngestConfig     `json:"ingest"`
	Retrieval RetrievalConfig  `json:"retrieval"`
	Answer    AnswerConfig     `json:"answer"`
	Reaper    ReaperConfig     `json:"reaper"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ProviderConfig selects a registered ai provider; Data is passed to the
// provider factory untouched.
type ProviderConfig struct {
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Data     interface{} `json:"data"`
	// Fallbacks are tried in order when the primary provider fails.
	Fallbacks []ProviderConfig `json:"fallbacks"`
}

type AIConfig struct {
	Chat      ProviderConfig `json:"chat"`
	Embedding ProviderConfig `json:"embedding"`
	// Dimension must match the vector column width and the model output;
	// a mismatch is a deployment error, not a runtime fallback.
	Dimension int `json:"dimension"`
}

type IngestConfig struct {
	DefaultChunkSize  int      `json:"default_chunk_size"`
	DefaultOverlap    int      `json:"default_overlap"`
	EmbedConcurrency  int      `json:"embed_concurrency"`
	EmbedRetries      int      `json:"embed_retries"`
	MaxFileSizeBytes  int64    `json:"max_file_size_bytes"`
	AllowedExtensions []string `json:"allowed_extensions"`
}

type RetrievalConfig struct {
	TopK            int `json:"top_k"`
	MaxContextChars int `json:"max_context_chars"`
	CacheSize       int `json:"cache_size"`
	CacheTTLMinutes int `json:"cache_ttl_minutes"`
}

type AnswerConfig struct {
	TimeoutSeconds int `json:"timeout_seconds"`
	MaxAttempts    int `json:"max_attempts"`
}

type ReaperConfig struct {
	Spec         string `json:"spec"`
	LeaseMinutes int    `json:"lease_minutes"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.AI.Embedding.Provider == "" || cfg.AI.Embedding.Model == "" {
		return nil, fmt.Errorf("ai.embedding provider/model are required")
	}
	if cfg.AI.Chat.Provider == "" || cfg.AI.Chat.Model == "" {
		return nil, fmt.Errorf("ai.chat provider/model are required")
	}
	if cfg.AI.Dimension <= 0 {
		return nil, fmt.Errorf("ai.dimension is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.Ingest.DefaultChunkSize <= 0 {
		cfg.Ingest.DefaultChunkSize = 1000
	}
	if cfg.Ingest.DefaultOverlap <= 0 || cfg.Ingest.DefaultOverlap >= cfg.Ingest.DefaultChunkSize {
		cfg.Ingest.DefaultOverlap = cfg.Ingest.DefaultChunkSize / 5
	}
	if cfg.Ingest.EmbedConcurrency <= 0 {
		cfg.Ingest.EmbedConcurrency = 4
	}
	if cfg.Ingest.EmbedRetries <= 0 {
		cfg.Ingest.EmbedRetries = 3
	}
	if cfg.Ingest.MaxFileSizeBytes <= 0 {
		cfg.Ingest.MaxFileSizeBytes = 10 << 20
	}
	if len(cfg.Ingest.AllowedExtensions) == 0 {
		cfg.Ingest.AllowedExtensions = []string{".txt", ".md", ".pdf"}
	}
	if cfg.Retrieval.TopK <= 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.MaxContextChars <= 0 {
		cfg.Retrieval.MaxContextChars = 8000
	}
	if cfg.Retrieval.CacheSize <= 0 {
		cfg.Retrieval.CacheSize = 10000
	}
	if cfg.Retrieval.CacheTTLMinutes <= 0 {
		cfg.Retrieval.CacheTTLMinutes = 120
	}
	if cfg.Answer.TimeoutSeconds <= 0 {
		cfg.Answer.TimeoutSeconds = 15
	}
	if cfg.Answer.MaxAttempts <= 0 {
		cfg.Answer.MaxAttempts = 3
	}
	if cfg.Reaper.Spec == "" {
		cfg.Reaper.Spec = "*/5 * * * *"
	}
	if cfg.Reaper.LeaseMinutes <= 0 {
		cfg.Reaper.LeaseMinutes = 30
	}
	return &cfg, nil
}

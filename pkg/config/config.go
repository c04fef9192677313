package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/barekit/givingfaq/pkg/store"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "GIVINGFAQ"

// Config is the application configuration.
type Config struct {
	Debug  bool         `mapstructure:"debug"`
	OpenAI OpenAIConfig `mapstructure:"openai"`
	Source SourceConfig `mapstructure:"source"`
	Store  StoreConfig  `mapstructure:"store"`
	Index  IndexConfig  `mapstructure:"index"`
	Server ServerConfig `mapstructure:"server"`
}

// OpenAIConfig configures both the embedding and the generation service.
type OpenAIConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	ChatModel      string        `mapstructure:"chat_model"`
	EmbeddingModel string        `mapstructure:"embedding_model"`
	Temperature    float64       `mapstructure:"temperature"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
}

// SourceConfig selects the row store the knowledge base is built from.
type SourceConfig struct {
	Type            string `mapstructure:"type"` // xlsx | gsheets
	Path            string `mapstructure:"path"`
	Sheet           string `mapstructure:"sheet"`
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	Range           string `mapstructure:"range"`
	CredentialsFile string `mapstructure:"credentials_file"`
	CredentialsJSON string `mapstructure:"credentials_json"`
}

// StoreConfig selects where the built knowledge base is persisted.
type StoreConfig struct {
	Type             string `mapstructure:"type"`
	ConnectionString string `mapstructure:"connection_string"`
	Username         string `mapstructure:"username"`
	Password         string `mapstructure:"password"`
	DBName           string `mapstructure:"db_name"`
	Key              string `mapstructure:"key"`
}

// IndexConfig selects the vector index used for nearest-neighbor lookups.
type IndexConfig struct {
	Type        string `mapstructure:"type"` // flat | qdrant | pgvector
	QdrantHost  string `mapstructure:"qdrant_host"`
	QdrantPort  int    `mapstructure:"qdrant_port"`
	Collection  string `mapstructure:"collection"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"`
}

const (
	SourceXLSX    = "xlsx"
	SourceGSheets = "gsheets"

	IndexFlat     = "flat"
	IndexQdrant   = "qdrant"
	IndexPgvector = "pgvector"
)

// StoreConfig converts to the store factory configuration.
func (c StoreConfig) StoreConfig() store.Config {
	return store.Config{
		Type:             store.Type(c.Type),
		ConnectionString: c.ConnectionString,
		Username:         c.Username,
		Password:         c.Password,
		DBName:           c.DBName,
		Key:              c.Key,
	}
}

// Load reads .env (if present), the optional YAML file at path and GIVINGFAQ_* environment variables.
// OPENAI_API_KEY is honoured as well.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("openai.api_key", envPrefix+"_OPENAI_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the selected backends and their required settings.
func (c *Config) Validate() error {
	var errs []error

	switch c.Source.Type {
	case SourceXLSX:
		if c.Source.Path == "" {
			errs = append(errs, errors.New("source.path is required for xlsx"))
		}
	case SourceGSheets:
		if c.Source.SpreadsheetID == "" {
			errs = append(errs, errors.New("source.spreadsheet_id is required for gsheets"))
		}
		if c.Source.CredentialsFile == "" && c.Source.CredentialsJSON == "" {
			errs = append(errs, errors.New("source.credentials_file or source.credentials_json is required for gsheets"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source type %q", c.Source.Type))
	}

	if !slices.Contains(store.Types(), store.Type(c.Store.Type)) {
		errs = append(errs, fmt.Errorf("unknown store type %q", c.Store.Type))
	}

	switch c.Index.Type {
	case IndexFlat, IndexQdrant:
	case IndexPgvector:
		if c.Index.PostgresDSN == "" {
			errs = append(errs, errors.New("index.postgres_dsn is required for pgvector"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown index type %q", c.Index.Type))
	}

	switch c.Server.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		errs = append(errs, fmt.Errorf("unknown server mode %q", c.Server.Mode))
	}

	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		errs = append(errs, fmt.Errorf("openai.temperature %v out of range [0, 2]", c.OpenAI.Temperature))
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	// OpenAI
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.chat_model", "gpt-3.5-turbo")
	v.SetDefault("openai.embedding_model", "") // build: embedder default, serve: the knowledge base model
	v.SetDefault("openai.temperature", 0.3)
	v.SetDefault("openai.timeout", 30*time.Second)
	v.SetDefault("openai.max_retries", 2)

	// Source
	v.SetDefault("source.type", SourceXLSX)
	v.SetDefault("source.path", "data/faq.xlsx")
	v.SetDefault("source.sheet", "")
	v.SetDefault("source.spreadsheet_id", "")
	v.SetDefault("source.range", "")
	v.SetDefault("source.credentials_file", "")
	v.SetDefault("source.credentials_json", "")

	// Store
	v.SetDefault("store.type", string(store.TypeFile))
	v.SetDefault("store.connection_string", "data/knowledge.json")
	v.SetDefault("store.username", "")
	v.SetDefault("store.password", "")
	v.SetDefault("store.db_name", "")
	v.SetDefault("store.key", "")

	// Index
	v.SetDefault("index.type", IndexFlat)
	v.SetDefault("index.qdrant_host", "localhost")
	v.SetDefault("index.qdrant_port", 6334)
	v.SetDefault("index.collection", "givingfaq")
	v.SetDefault("index.postgres_dsn", "")

	// Server
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
}

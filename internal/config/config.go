package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/finrag/internal/domain"
)

// Store drivers.
const (
	DriverRedis  = "redis"
	DriverValkey = "valkey"
	DriverMemory = "memory"
)

// Config holds the finrag configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Documents DocumentsConfig `yaml:"documents"`
	Upload    UploadConfig    `yaml:"upload"`
	Search    SearchConfig    `yaml:"search"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	HealthProbeSec  int `yaml:"health_probe_timeout_sec"`
}

// StoreConfig selects and configures the vector store.
type StoreConfig struct {
	Driver           string     `yaml:"driver"` // redis, valkey, memory (default: redis)
	Addrs            []string   `yaml:"addrs"`
	Username         string     `yaml:"username"`
	Password         string     `yaml:"password"`
	DB               int        `yaml:"db"`
	ReadinessTimeout int        `yaml:"readiness_timeout_sec"`
	Collection       string     `yaml:"collection"`
	KeyPrefix        string     `yaml:"key_prefix"`
	TextSearch       bool       `yaml:"text_search"`
	Path             string     `yaml:"path"` // memory driver only; empty keeps the collection in RAM
	WriteTimeoutSec  int        `yaml:"write_timeout_sec"`
	HNSW             HNSWConfig `yaml:"hnsw"`
}

// HNSWConfig tunes the Redis/Valkey vector index. Zero keeps the server default.
type HNSWConfig struct {
	M              int `yaml:"m"`
	EFConstruction int `yaml:"ef_construction"`
}

// EmbeddingConfig holds embedding provider and vector index settings.
type EmbeddingConfig struct {
	Provider            string      `yaml:"provider"`
	APIKey              string      `yaml:"api_key"`
	BaseURL             string      `yaml:"base_url"`
	Model               string      `yaml:"model"`
	Dimensions          int         `yaml:"dimensions"`
	DistanceMetric      string      `yaml:"distance_metric"`
	Algorithm           string      `yaml:"algorithm"`
	DocumentInstruction string      `yaml:"document_instruction"`
	QueryInstruction    string      `yaml:"query_instruction"`
	MaxBatchSize        int         `yaml:"max_batch_size"`
	Concurrency         int         `yaml:"concurrency"`
	MaxRetries          int         `yaml:"max_retries"` // negative disables retries
	TimeoutSec          int         `yaml:"timeout_sec"`
	Cache               CacheConfig `yaml:"cache"`
}

// CacheConfig controls the embedding cache kept in Redis/Valkey.
type CacheConfig struct {
	Enabled   bool   `yaml:"enabled"`
	TTLHours  int    `yaml:"ttl_hours"`
	Namespace string `yaml:"namespace"`
}

// DocumentsConfig holds chunking settings.
type DocumentsConfig struct {
	ChunkSize           int                        `yaml:"chunk_size"`
	ChunkOverlap        int                        `yaml:"chunk_overlap"`
	DocType             string                     `yaml:"doc_type"`
	SupportedExtensions []string                   `yaml:"supported_extensions"`
	Workers             int                        `yaml:"workers"`
	MaxFileBytes        int64                      `yaml:"max_file_bytes"`
	Types               map[string]DocTypeSettings `yaml:"types"`
}

// DocTypeSettings overrides chunk settings for one document type.
type DocTypeSettings struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// DocumentSettings is the resolved chunk configuration for one document type.
type DocumentSettings struct {
	DocType             string
	ChunkSize           int
	ChunkOverlap        int
	SupportedExtensions []string
	Workers             int
	MaxFileBytes        int64
}

// UploadConfig holds multipart upload settings.
type UploadConfig struct {
	MaxBytes   int64  `yaml:"max_bytes"`
	StagingDir string `yaml:"staging_dir"`
}

// SearchConfig holds result count limits.
type SearchConfig struct {
	DefaultNResults int `yaml:"default_n_results"`
	MaxNResults     int `yaml:"max_n_results"`
}

// envOverrides are chunking knobs settable straight from the environment.
type envOverrides struct {
	ChunkSize           int      `env:"FINRAG_CHUNK_SIZE"`
	ChunkOverlap        *int     `env:"FINRAG_CHUNK_OVERLAP"`
	DocType             string   `env:"FINRAG_DOC_TYPE"`
	Workers             int      `env:"FINRAG_WORKERS"`
	SupportedExtensions []string `env:"FINRAG_SUPPORTED_EXTENSIONS" envSeparator:","`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit YAML path.
// A .env file in the working directory is loaded first when present.
func LoadFile(configPath string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

func (c *Config) applyEnvOverrides() error {
	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return fmt.Errorf("failed to parse env overrides: %w", err)
	}

	if ov.ChunkSize != 0 {
		c.Documents.ChunkSize = ov.ChunkSize
	}
	if ov.ChunkOverlap != nil {
		c.Documents.ChunkOverlap = *ov.ChunkOverlap
	}
	if ov.DocType != "" {
		c.Documents.DocType = ov.DocType
	}
	if ov.Workers != 0 {
		c.Documents.Workers = ov.Workers
	}
	if len(ov.SupportedExtensions) > 0 {
		c.Documents.SupportedExtensions = ov.SupportedExtensions
	}
	return nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.HealthProbeSec <= 0 {
		c.HTTP.HealthProbeSec = 3
	}

	if c.Store.Driver == "" {
		c.Store.Driver = DriverRedis
	}
	if c.Store.ReadinessTimeout <= 0 {
		c.Store.ReadinessTimeout = 10
	}
	if c.Store.Collection == "" {
		c.Store.Collection = "house_finance_documents"
	}
	if c.Store.KeyPrefix == "" {
		c.Store.KeyPrefix = domain.KeyPrefix
	}

	vec := domain.DefaultVectorConfig()
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = vec.Provider
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = vec.Model
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = vec.Dimensions
	}
	if c.Embedding.DistanceMetric == "" {
		c.Embedding.DistanceMetric = vec.DistanceMetric
	}
	if c.Embedding.Algorithm == "" {
		c.Embedding.Algorithm = vec.Algorithm
	}
	if c.Embedding.MaxBatchSize <= 0 {
		c.Embedding.MaxBatchSize = 256
	}
	if c.Embedding.Concurrency <= 0 {
		c.Embedding.Concurrency = 1
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 60
	}
	if c.Embedding.Cache.TTLHours <= 0 {
		c.Embedding.Cache.TTLHours = 7 * 24
	}

	if c.Documents.ChunkSize <= 0 {
		c.Documents.ChunkSize = 1000
	}
	if c.Documents.ChunkOverlap < 0 {
		c.Documents.ChunkOverlap = 0
	}
	if c.Documents.DocType == "" {
		c.Documents.DocType = "financial"
	}
	if len(c.Documents.SupportedExtensions) == 0 {
		c.Documents.SupportedExtensions = []string{".txt", ".md", ".pdf"}
	}
	if c.Documents.Workers <= 0 {
		c.Documents.Workers = 4
	}
	if c.Documents.MaxFileBytes <= 0 {
		c.Documents.MaxFileBytes = 50 << 20
	}

	if c.Upload.MaxBytes <= 0 {
		c.Upload.MaxBytes = 32 << 20
	}
	if c.Search.MaxNResults <= 0 {
		c.Search.MaxNResults = 50
	}
	if c.Search.DefaultNResults <= 0 {
		c.Search.DefaultNResults = 5
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Store.Driver {
	case DriverRedis, DriverValkey:
		if len(c.Store.Addrs) == 0 {
			return fmt.Errorf("store.addrs is required for driver %q", c.Store.Driver)
		}
	case DriverMemory:
		if !strings.EqualFold(c.Embedding.DistanceMetric, "cosine") {
			return fmt.Errorf("store.driver memory supports only cosine distance, got %q", c.Embedding.DistanceMetric)
		}
	default:
		return fmt.Errorf("store.driver must be one of redis, valkey, memory, got %q", c.Store.Driver)
	}

	if c.Store.HNSW.M < 0 || c.Store.HNSW.EFConstruction < 0 {
		return fmt.Errorf("store.hnsw params must be non-negative, got m=%d ef_construction=%d",
			c.Store.HNSW.M, c.Store.HNSW.EFConstruction)
	}

	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}

	if c.Documents.ChunkSize <= 0 {
		return fmt.Errorf("documents.chunk_size must be positive, got %d", c.Documents.ChunkSize)
	}
	for name, t := range c.Documents.Types {
		if t.ChunkSize < 0 || t.ChunkOverlap < 0 {
			return fmt.Errorf("documents.types.%s: chunk settings must be non-negative", name)
		}
	}

	if c.Search.DefaultNResults > c.Search.MaxNResults {
		return fmt.Errorf("search.default_n_results (%d) exceeds search.max_n_results (%d)",
			c.Search.DefaultNResults, c.Search.MaxNResults)
	}
	return nil
}

// DocumentSettings resolves the chunk settings for docType ("" selects documents.doc_type).
// Per-type values override the global ones field by field.
func (c *Config) DocumentSettings(docType string) DocumentSettings {
	if docType == "" {
		docType = c.Documents.DocType
	}
	docType = strings.ToLower(strings.TrimSpace(docType))

	s := DocumentSettings{
		DocType:             docType,
		ChunkSize:           c.Documents.ChunkSize,
		ChunkOverlap:        c.Documents.ChunkOverlap,
		SupportedExtensions: c.Documents.SupportedExtensions,
		Workers:             c.Documents.Workers,
		MaxFileBytes:        c.Documents.MaxFileBytes,
	}
	if t, ok := c.Documents.Types[docType]; ok {
		if t.ChunkSize > 0 {
			s.ChunkSize = t.ChunkSize
		}
		if t.ChunkOverlap > 0 {
			s.ChunkOverlap = t.ChunkOverlap
		}
	}
	return s
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

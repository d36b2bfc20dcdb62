package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/talentmatch/internal/domain"
)

// Config holds the talentmatch server configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Matching  MatchingConfig  `yaml:"matching"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
// Empty Addrs disables snapshot persistence and the embedding cache.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool { return len(d.Addrs) > 0 }

// MatchingConfig holds the engine tuning knobs.
type MatchingConfig struct {
	Dimension          int     `yaml:"dimension"`
	Alpha              float64 `yaml:"alpha"`
	DefaultWeight      float64 `yaml:"default_weight"`
	DefaultK           int     `yaml:"default_k"`
	MaxK               int     `yaml:"max_k"`
	MaxBatchSize       int     `yaml:"max_batch_size"`
	Workers            int     `yaml:"workers"`
	QueryDeadlineMs    int     `yaml:"query_deadline_ms"` // 0 = none
	IndexStrategy      string  `yaml:"index_strategy"`    // exact, ivf
	IVFNList           int     `yaml:"ivf_nlist"`         // 0 = sqrt(population)
	IVFNProbe          int     `yaml:"ivf_nprobe"`
	StalenessThreshold float64 `yaml:"staleness_threshold"`
	Shards             int     `yaml:"shards"`
	RebuildCheckSec    int     `yaml:"rebuild_check_sec"`
	PersistIntervalSec int     `yaml:"persist_interval_sec"`

	// alphaSet distinguishes an explicit alpha of 0 from an absent key.
	alphaSet bool
}

// UnmarshalYAML records whether alpha was given explicitly.
func (m *MatchingConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain MatchingConfig
	if err := node.Decode((*plain)(m)); err != nil {
		return err //nolint:wrapcheck // yaml decoder error
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "alpha" {
			m.alphaSet = true
		}
	}
	return nil
}

// Engine converts the section to the domain configuration.
func (m MatchingConfig) Engine() domain.MatchConfig {
	return domain.MatchConfig{
		Dimension:          m.Dimension,
		Alpha:              m.Alpha,
		DefaultWeight:      m.DefaultWeight,
		DefaultK:           m.DefaultK,
		MaxK:               m.MaxK,
		MaxBatchSize:       m.MaxBatchSize,
		Workers:            m.Workers,
		QueryDeadline:      time.Duration(m.QueryDeadlineMs) * time.Millisecond,
		Strategy:           domain.IndexStrategy(m.IndexStrategy),
		IVFNList:           m.IVFNList,
		IVFNProbe:          m.IVFNProbe,
		StalenessThreshold: m.StalenessThreshold,
		Shards:             m.Shards,
	}
}

// KafkaConfig holds the optional entity event consumer settings.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

// Enabled reports whether the consumer is configured.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// EmbeddingConfig holds the optional text embedding provider settings.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"` // requested from the API; 0 = model default
	Instruction string `yaml:"instruction"`
	CacheTTLSec int    `yaml:"cache_ttl_sec"`
}

// Enabled reports whether a provider is configured.
func (e EmbeddingConfig) Enabled() bool { return e.APIKey != "" && e.Model != "" }

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

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

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	c.applyMatchingDefaults()
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.CacheTTLSec <= 0 {
		c.Embedding.CacheTTLSec = 7 * 24 * 3600
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "talentmatch"
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "talentmatch:"
	}
}

func (c *Config) applyMatchingDefaults() {
	def := domain.DefaultMatchConfig()
	m := &c.Matching
	if m.Dimension <= 0 {
		m.Dimension = def.Dimension
	}
	if !m.alphaSet {
		m.Alpha = def.Alpha
	}
	if m.DefaultWeight <= 0 {
		m.DefaultWeight = def.DefaultWeight
	}
	if m.DefaultK <= 0 {
		m.DefaultK = def.DefaultK
	}
	if m.MaxK <= 0 {
		m.MaxK = def.MaxK
	}
	if m.MaxBatchSize <= 0 {
		m.MaxBatchSize = def.MaxBatchSize
	}
	if m.Workers <= 0 {
		m.Workers = def.Workers
	}
	if m.IndexStrategy == "" {
		m.IndexStrategy = string(def.Strategy)
	}
	if m.IVFNProbe <= 0 {
		m.IVFNProbe = def.IVFNProbe
	}
	if m.StalenessThreshold <= 0 {
		m.StalenessThreshold = def.StalenessThreshold
	}
	if m.Shards <= 0 {
		m.Shards = def.Shards
	}
	if m.RebuildCheckSec <= 0 {
		m.RebuildCheckSec = 30
	}
	if m.PersistIntervalSec <= 0 {
		m.PersistIntervalSec = 60
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "valkey", "redis":
	default:
		return fmt.Errorf("database.driver must be \"valkey\" or \"redis\", got %q", c.Database.Driver)
	}

	m := c.Matching
	if m.Alpha < 0 || m.Alpha > 1 {
		return fmt.Errorf("matching.alpha must be between 0 and 1, got %g", m.Alpha)
	}
	if m.DefaultK > m.MaxK {
		return fmt.Errorf("matching.default_k (%d) must not exceed matching.max_k (%d)", m.DefaultK, m.MaxK)
	}
	if m.QueryDeadlineMs < 0 {
		return fmt.Errorf("matching.query_deadline_ms must not be negative, got %d", m.QueryDeadlineMs)
	}
	if !domain.IndexStrategy(m.IndexStrategy).IsValid() {
		return fmt.Errorf("matching.index_strategy must be \"exact\" or \"ivf\", got %q", m.IndexStrategy)
	}
	if m.IVFNList < 0 {
		return fmt.Errorf("matching.ivf_nlist must not be negative, got %d", m.IVFNList)
	}

	if c.Embedding.Enabled() && c.Embedding.Dimensions > 0 && c.Embedding.Dimensions != m.Dimension {
		return fmt.Errorf("embedding.dimensions (%d) must equal matching.dimension (%d)",
			c.Embedding.Dimensions, m.Dimension)
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when kafka.brokers is set")
	}
	return nil
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

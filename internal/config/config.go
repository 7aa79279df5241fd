package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server" envconfig:"SERVER"`
	Logging       LoggingConfig       `yaml:"logging" envconfig:"LOGGING"`
	Data          DataConfig          `yaml:"data" envconfig:"DATA"`
	Watch         WatchConfig         `yaml:"watch" envconfig:"WATCH"`
	Observability ObservabilityConfig `yaml:"observability" envconfig:"OBSERVABILITY"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	AllowedOrigins  []string      `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"` // json | text
	Output   string `yaml:"output" envconfig:"OUTPUT"` // console | stderr | file | both
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// DataConfig locates input files, exported series and the series store.
type DataConfig struct {
	InputDir         string `yaml:"input_dir" envconfig:"INPUT_DIR"`
	OutputDir        string `yaml:"output_dir" envconfig:"OUTPUT_DIR"`
	StorePath        string `yaml:"store_path" envconfig:"STORE_PATH"`
	CacheEntries     int    `yaml:"cache_entries" envconfig:"CACHE_ENTRIES"`
	BatchConcurrency int    `yaml:"batch_concurrency" envconfig:"BATCH_CONCURRENCY"`
	MaxBatchFiles    int    `yaml:"max_batch_files" envconfig:"MAX_BATCH_FILES"`
}

// WatchConfig controls re-aggregation of changed input files.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled" envconfig:"ENABLED"`
	Debounce time.Duration `yaml:"debounce" envconfig:"DEBOUNCE"`
}

// ObservabilityConfig contains tracing and metrics configuration
type ObservabilityConfig struct {
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`   // stdout | none
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER"` // prometheus | none
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// Load builds the configuration from defaults, then the YAML file (if any),
// then CHEMO_* environment variables. Later sources win.
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile is Load with an explicit config file path. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// No default tags: envconfig leaves unset fields alone, so file values survive.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile overlays YAML values onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server read and write timeouts must be positive")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid logging format %q: want json or text", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Output) {
	case "console", "stderr":
	case "file", "both":
		if c.Logging.FilePath == "" {
			return fmt.Errorf("logging output %q needs a file_path", c.Logging.Output)
		}
	default:
		return fmt.Errorf("invalid logging output %q", c.Logging.Output)
	}

	if c.Data.InputDir == "" {
		return fmt.Errorf("data input_dir is required")
	}
	if c.Data.BatchConcurrency < 1 {
		return fmt.Errorf("data batch_concurrency must be at least 1")
	}
	if c.Data.MaxBatchFiles < 1 {
		return fmt.Errorf("data max_batch_files must be at least 1")
	}
	if c.Data.CacheEntries < 0 {
		return fmt.Errorf("data cache_entries must not be negative")
	}

	if c.Watch.Enabled && c.Watch.Debounce <= 0 {
		return fmt.Errorf("watch debounce must be positive")
	}

	if c.Observability.SampleRatio < 0 || c.Observability.SampleRatio > 1 {
		return fmt.Errorf("sample ratio must be within [0, 1]")
	}

	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1) {
		return fmt.Errorf("rate limit needs positive rps and burst")
	}
	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			RequestTimeout:  45 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			AllowedOrigins:  []string{"http://localhost:8501"},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Data: DataConfig{
			InputDir:         "data/hourly",
			OutputDir:        "data/series",
			StorePath:        "data/series.db",
			CacheEntries:     DefaultCacheEntries,
			BatchConcurrency: DefaultBatchConcurrency,
			MaxBatchFiles:    DefaultMaxBatchFiles,
		},
		Watch: WatchConfig{
			Enabled:  false,
			Debounce: DefaultWatchDebounce,
		},
		Observability: ObservabilityConfig{
			ServiceName:    ServiceName,
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     DefaultRateLimitRPS,
			Burst:   DefaultRateLimitBurst,
		},
	}
}

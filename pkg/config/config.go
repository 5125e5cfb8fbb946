package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	applogger "ProScalper/pkg/logger"
	xutil "ProScalper/pkg/util"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string           `yaml:"environment"`
	Log         applogger.Config `yaml:"log"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		SlowThreshold   time.Duration `yaml:"slow_threshold"`
		CORSOrigins     []string      `yaml:"cors_origins"` // empty disables CORS
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Source struct {
		Type string `yaml:"type"` // mexc or clickhouse
		MEXC struct {
			BaseURL  string        `yaml:"base_url"`
			Timeout  time.Duration `yaml:"timeout"`
			Attempts int           `yaml:"attempts"`
		} `yaml:"mexc"`
	} `yaml:"source"`
	Kafka struct {
		Enabled       bool     `yaml:"enabled"`
		Brokers       []string `yaml:"brokers"`
		SignalsTopic  string   `yaml:"signals_topic"`
		RequestsTopic string   `yaml:"requests_topic"`
		RequiredAcks  int      `yaml:"required_acks"`
		Compression   string   `yaml:"compression"`
		Producer      struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		Table            string        `yaml:"table"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	RateLimit struct {
		Enabled  bool          `yaml:"enabled"`
		Strategy string        `yaml:"strategy"` // token_bucket or window
		Capacity float64       `yaml:"capacity"`
		Refill   float64       `yaml:"refill_per_sec"`
		Window   time.Duration `yaml:"window"`
		Limit    int64         `yaml:"limit"`
	} `yaml:"ratelimit"`
	Scanner struct {
		Enabled     bool          `yaml:"enabled"`
		Symbols     []string      `yaml:"symbols"`
		Timeframe   string        `yaml:"timeframe"`
		Limit       int           `yaml:"limit"`
		Refresh     time.Duration `yaml:"refresh"`
		Concurrency int           `yaml:"concurrency"`
	} `yaml:"scanner"`
	Signal SignalConfig `yaml:"signal"`
}

// SignalConfig holds the indicator pipeline constants.
type SignalConfig struct {
	TrendPeriod         int     `yaml:"trend_period"`
	BaselinePeriod      int     `yaml:"baseline_period"`
	ATRPeriod           int     `yaml:"atr_period"`
	DeviationMultiplier float64 `yaml:"deviation_multiplier"`
	MinTick             float64 `yaml:"min_tick"`
	SignalPeriod        int     `yaml:"signal_period"`
	ClipLimit           float64 `yaml:"clip_limit"`
	Threshold           float64 `yaml:"threshold"`
}

// DefaultSignal returns the standard scalper constants.
func DefaultSignal() SignalConfig {
	return SignalConfig{
		TrendPeriod:         200,
		BaselinePeriod:      80,
		ATRPeriod:           15,
		DeviationMultiplier: 1.8,
		MinTick:             1e-7,
		SignalPeriod:        8,
		ClipLimit:           20,
		Threshold:           0.08,
	}
}

const (
	MinRefresh = 2 * time.Second
	MaxRefresh = 60 * time.Second
)

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.ApplyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	c.applyEnv(os.Getenv)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("PROSCALPER_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("SYMBOLS"); v != "" {
		c.Scanner.Symbols = xutil.SplitCSV(v)
	}
	if v := getenv("TIMEFRAME"); v != "" {
		c.Scanner.Timeframe = v
	}
	if v := getenv("SOURCE"); v != "" {
		c.Source.Type = v
	}
	if v := getenv("SERVER_PORT"); v != "" {
		c.Server.Port = xutil.ParseIntDefault(v, c.Server.Port)
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = xutil.SplitCSV(v)
		c.Kafka.Enabled = true
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Redis.Host = host
		if ok {
			c.Redis.Port = xutil.ParseIntDefault(port, c.Redis.Port)
		}
		c.Redis.Enabled = true
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Default returns a config populated with every default value.
func Default() *Config {
	c := &Config{}
	c.Signal = DefaultSignal()
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero-valued settings.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Source.Type == "" {
		c.Source.Type = "mexc"
	}
	if c.Source.MEXC.BaseURL == "" {
		c.Source.MEXC.BaseURL = "https://contract.mexc.com"
	}
	if c.Source.MEXC.Timeout == 0 {
		c.Source.MEXC.Timeout = 10 * time.Second
	}
	if c.Source.MEXC.Attempts == 0 {
		c.Source.MEXC.Attempts = 3
	}
	if c.Kafka.SignalsTopic == "" {
		c.Kafka.SignalsTopic = "proscalper.signals"
	}
	if c.Kafka.RequestsTopic == "" {
		c.Kafka.RequestsTopic = "proscalper.scan_requests"
	}
	if c.Kafka.Consumer.GroupID == "" {
		c.Kafka.Consumer.GroupID = "proscalper"
	}
	if c.ClickHouse.Database == "" {
		c.ClickHouse.Database = "proscalper"
	}
	if c.ClickHouse.Table == "" {
		c.ClickHouse.Table = "ohlcv"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "proscalper"
	}
	if c.RateLimit.Strategy == "" {
		c.RateLimit.Strategy = "token_bucket"
	}
	if c.RateLimit.Capacity == 0 {
		c.RateLimit.Capacity = 20
	}
	if c.RateLimit.Refill == 0 {
		c.RateLimit.Refill = 5
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Minute
	}
	if c.RateLimit.Limit == 0 {
		c.RateLimit.Limit = 300
	}
	if c.Scanner.Timeframe == "" {
		c.Scanner.Timeframe = "5m"
	}
	if c.Scanner.Limit == 0 {
		c.Scanner.Limit = 300
	}
	if c.Scanner.Refresh == 0 {
		c.Scanner.Refresh = 5 * time.Second
	}
	if c.Scanner.Refresh < MinRefresh {
		c.Scanner.Refresh = MinRefresh
	}
	if c.Scanner.Refresh > MaxRefresh {
		c.Scanner.Refresh = MaxRefresh
	}
	if c.Signal == (SignalConfig{}) {
		c.Signal = DefaultSignal()
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Source.Type {
	case "mexc":
		if c.Source.MEXC.BaseURL == "" {
			return fmt.Errorf("source.mexc.base_url is required")
		}
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required when source.type is 'clickhouse'")
		}
	default:
		return fmt.Errorf("source.type must be 'mexc' or 'clickhouse', got '%s'", c.Source.Type)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.RateLimit.Strategy != "token_bucket" && c.RateLimit.Strategy != "window" {
		return fmt.Errorf("ratelimit.strategy must be 'token_bucket' or 'window', got '%s'", c.RateLimit.Strategy)
	}
	if c.Scanner.Enabled && len(c.Scanner.Symbols) == 0 {
		return fmt.Errorf("scanner.symbols cannot be empty when scanner is enabled")
	}
	if c.Scanner.Concurrency < 0 {
		return fmt.Errorf("scanner.concurrency must be >= 0, got %d", c.Scanner.Concurrency)
	}
	if c.Scanner.Limit < 2 {
		return fmt.Errorf("scanner.limit must be >= 2, got %d", c.Scanner.Limit)
	}
	if c.Signal.TrendPeriod < 1 || c.Signal.BaselinePeriod < 1 || c.Signal.ATRPeriod < 1 || c.Signal.SignalPeriod < 1 {
		return fmt.Errorf("signal periods must be >= 1")
	}
	if c.Signal.Threshold < 0 || c.Signal.Threshold >= 1 {
		return fmt.Errorf("signal.threshold must be in [0, 1), got %v", c.Signal.Threshold)
	}
	return nil
}

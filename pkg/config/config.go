package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"BitDCA/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RateLimit       struct {
			Enabled bool    `yaml:"enabled" default:"true"`
			RPS     float64 `yaml:"rps" default:"5"`
			Burst   int     `yaml:"burst" default:"20"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Market struct {
		Symbol   string        `yaml:"symbol" default:"BTC"`
		BaseURL  string        `yaml:"base_url" default:"https://api.coingecko.com/api/v3"`
		APIKey   string        `yaml:"api_key"`
		Timeout  time.Duration `yaml:"timeout" default:"10s"`
		CacheTTL time.Duration `yaml:"cache_ttl" default:"60s"`
		Rate     struct {
			RPS   float64 `yaml:"rps" default:"0.5"`
			Burst int     `yaml:"burst" default:"4"`
		} `yaml:"rate"`
		Breaker struct {
			MaxRequests      uint32        `yaml:"max_requests" default:"1"`
			Interval         time.Duration `yaml:"interval" default:"60s"`
			Timeout          time.Duration `yaml:"timeout" default:"30s"`
			FailureThreshold uint32        `yaml:"failure_threshold" default:"3"`
		} `yaml:"breaker"`
	} `yaml:"market"`
	Engine struct {
		DefaultStrategy string        `yaml:"default_strategy" default:"deviation"`
		MinPoints       int           `yaml:"min_points" default:"30"`
		SessionTTL      time.Duration `yaml:"session_ttl" default:"30m"`
		HalvingEpoch    time.Time     `yaml:"halving_epoch"`
		Deviation       struct {
			Window         int     `yaml:"window" default:"200"`
			Variant        string  `yaml:"variant" default:"symmetric"`
			MultiplierMode string  `yaml:"multiplier_mode" default:"linear"`
			MinMultiplier  float64 `yaml:"min_multiplier" default:"0.5"`
			MaxMultiplier  float64 `yaml:"max_multiplier" default:"1.5"`
		} `yaml:"deviation"`
		Tanh struct {
			K      float64 `yaml:"k" default:"20"`
			Window int     `yaml:"window" default:"30"`
		} `yaml:"tanh"`
		Blend struct {
			CycleLength     float64 `yaml:"cycle_length" default:"1460"`
			PhaseShift      float64 `yaml:"phase_shift" default:"180"`
			K               float64 `yaml:"k" default:"20"`
			Window          int     `yaml:"window" default:"108"`
			CycleWeight     float64 `yaml:"cycle_weight" default:"0.6"`
			LiquidityWeight float64 `yaml:"liquidity_weight" default:"0.4"`
			MultiplierMode  string  `yaml:"multiplier_mode" default:"direct"`
			MinMultiplier   float64 `yaml:"min_multiplier" default:"0.5"`
			MaxMultiplier   float64 `yaml:"max_multiplier" default:"1.5"`
		} `yaml:"blend"`
	} `yaml:"engine"`
	Redis struct {
		Enabled      bool          `yaml:"enabled"`
		Addr         string        `yaml:"addr" default:"localhost:6379"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		Prefix       string        `yaml:"prefix" default:"bitdca"`
		PoolSize     int           `yaml:"pool_size" default:"10"`
		MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
		PoolTimeout  time.Duration `yaml:"pool_timeout" default:"5s"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"dca.risk.snapshots"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id" default:"dca-snapshot-archiver"`
			Workers    int           `yaml:"workers" default:"2"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"bitdca"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Newsletter struct {
		Store      string `yaml:"store" default:"memory"`
		SQLitePath string `yaml:"sqlite_path" default:"data/newsletter.db"`
		Queue      struct {
			Enabled bool   `yaml:"enabled"`
			Name    string `yaml:"name" default:"newsletter"`
			Workers int    `yaml:"workers" default:"1"`
		} `yaml:"queue"`
	} `yaml:"newsletter"`
}

// DefaultHalvingEpoch is block 840,000, the fourth halving.
var DefaultHalvingEpoch = time.Date(2024, time.April, 20, 0, 9, 27, 0, time.UTC)

// Default returns a configuration populated only from struct defaults.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	c.Engine.HalvingEpoch = DefaultHalvingEpoch
	return &c
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if c.Engine.HalvingEpoch.IsZero() {
		c.Engine.HalvingEpoch = DefaultHalvingEpoch
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from the environment lookup.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("CG_API_KEY"); v != "" {
		c.Market.APIKey = v
	}
	if v := getenv("DCA_STRATEGY"); v != "" {
		c.Engine.DefaultStrategy = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	c.Server.Port = util.ParseIntDefault(getenv("PORT"), c.Server.Port)
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Market.BaseURL == "" {
		return fmt.Errorf("market.base_url is required")
	}
	switch c.Engine.DefaultStrategy {
	case "deviation", "tanh", "blend":
	default:
		return fmt.Errorf("engine.default_strategy must be 'deviation', 'tanh' or 'blend', got '%s'", c.Engine.DefaultStrategy)
	}
	if c.Engine.MinPoints < 2 {
		return fmt.Errorf("engine.min_points must be at least 2, got %d", c.Engine.MinPoints)
	}
	if v := c.Engine.Deviation.Variant; v != "symmetric" && v != "asymmetric" {
		return fmt.Errorf("engine.deviation.variant must be 'symmetric' or 'asymmetric', got '%s'", v)
	}
	for name, mode := range map[string]string{
		"engine.deviation.multiplier_mode": c.Engine.Deviation.MultiplierMode,
		"engine.blend.multiplier_mode":     c.Engine.Blend.MultiplierMode,
	} {
		if mode != "linear" && mode != "direct" {
			return fmt.Errorf("%s must be 'linear' or 'direct', got '%s'", name, mode)
		}
	}
	if c.Engine.Tanh.K <= 0 || c.Engine.Blend.K <= 0 {
		return fmt.Errorf("engine tanh.k and blend.k must be positive")
	}
	if c.Engine.Blend.CycleLength <= 0 {
		return fmt.Errorf("engine.blend.cycle_length must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	switch c.Newsletter.Store {
	case "memory", "sqlite":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("newsletter.store 'redis' requires redis.enabled")
		}
	default:
		return fmt.Errorf("newsletter.store must be 'memory', 'sqlite' or 'redis', got '%s'", c.Newsletter.Store)
	}
	if c.Newsletter.Queue.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("newsletter.queue requires redis.enabled")
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	xutil "FxCast/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		CORS            bool          `yaml:"cors"`
		RateLimit       struct {
			Capacity     float64 `yaml:"capacity"`
			RefillPerSec float64 `yaml:"refill_per_sec"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Log struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		Output     string `yaml:"output"`
		TimeFormat string `yaml:"time_format"`
		Collector  struct {
			Enabled        bool          `yaml:"enabled"`
			Topic          string        `yaml:"topic"`
			Interval       time.Duration `yaml:"interval"`
			CountThreshold int           `yaml:"count_threshold"`
		} `yaml:"collector"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	FRED struct {
		APIKey    string        `yaml:"api_key"`
		BaseURL   string        `yaml:"base_url"`
		Timeout   time.Duration `yaml:"timeout"`
		Limit     int           `yaml:"limit"`
		SortOrder string        `yaml:"sort_order"`
		// ObservationStart bounds the training fetch ("2006-01-02").
		ObservationStart string `yaml:"observation_start"`
	} `yaml:"fred"`
	// Series maps indicator names (EURUSD, DXY, CPI, FEDFUNDS, GDP) to FRED series ids.
	Series   map[string]string `yaml:"series"`
	Features struct {
		CarryForward bool `yaml:"carry_forward"`
	} `yaml:"features"`
	Model struct {
		ArtifactPath   string  `yaml:"artifact_path"`
		TrainFraction  float64 `yaml:"train_fraction"`
		MinRows        int     `yaml:"min_rows"`
		Trees          int     `yaml:"trees"`
		MaxDepth       int     `yaml:"max_depth"`
		MinSamplesLeaf int     `yaml:"min_samples_leaf"`
		MaxFeatures    int     `yaml:"max_features"`
		Seed           int64   `yaml:"seed"`
		Workers        int     `yaml:"workers"`
		// Source selects where training observations come from: "fred" or "clickhouse".
		Source string `yaml:"source"`
	} `yaml:"model"`
	Scenario struct {
		Variation   float64 `yaml:"variation"`
		BlendWeight float64 `yaml:"blend_weight"`
		History     int     `yaml:"history"`
	} `yaml:"scenario"`
	Files struct {
		EvaluationTable string `yaml:"evaluation_table"`
		ForecastTable   string `yaml:"forecast_table"`
		AuditWorkbook   string `yaml:"audit_workbook"`
	} `yaml:"files"`
	Cache struct {
		TTL   time.Duration `yaml:"ttl"`
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	// Queue runs on-demand training through a Redis job queue.
	Queue struct {
		Enabled    bool          `yaml:"enabled"`
		Addr       string        `yaml:"addr"`
		Password   string        `yaml:"password"`
		DB         int           `yaml:"db"`
		KeyPrefix  string        `yaml:"key_prefix"`
		Workers    int           `yaml:"workers"`
		RetryLimit int           `yaml:"retry_limit"`
		RetryDelay time.Duration `yaml:"retry_delay"`
		StatusTTL  time.Duration `yaml:"status_ttl"`
	} `yaml:"queue"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
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
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Analytics struct {
		ServiceURL string        `yaml:"service_url"`
		Timeout    time.Duration `yaml:"timeout"`
		Attempts   int           `yaml:"attempts"`
		// UseRemoteRegressor scores scenarios through the service instead of the local artifact.
		UseRemoteRegressor bool `yaml:"use_remote_regressor"`
		// UseRemoteForecast fetches the decomposition band from the service instead of the CSV table.
		UseRemoteForecast bool `yaml:"use_remote_forecast"`
	} `yaml:"analytics"`
}

// Default returns a configuration with every optional field populated.
func Default() *Config {
	var c Config
	c.Environment = "development"
	c.Server.Port = 8080
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 30 * time.Second
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Server.CORS = true
	c.Server.RateLimit.Capacity = 20
	c.Server.RateLimit.RefillPerSec = 5
	c.Log.Level = "info"
	c.Log.Format = "console"
	c.Log.Output = "stdout"
	c.Log.Collector.Topic = "fxcast.logs"
	c.Log.Collector.Interval = 30 * time.Second
	c.Log.Collector.CountThreshold = 100
	c.Metrics.Enabled = true
	c.Metrics.Path = "/metrics"
	c.FRED.BaseURL = "https://api.stlouisfed.org"
	c.FRED.Timeout = 15 * time.Second
	c.FRED.Limit = 10000
	c.FRED.SortOrder = "asc"
	c.FRED.ObservationStart = "2010-01-01"
	c.Series = map[string]string{
		"EURUSD":   "DEXUSEU",
		"DXY":      "DTWEXBGS",
		"CPI":      "CPIAUCSL",
		"FEDFUNDS": "FEDFUNDS",
		"GDP":      "GDP",
	}
	c.Model.ArtifactPath = "data/modelo_multivariable.json"
	c.Model.TrainFraction = 0.8
	c.Model.MinRows = 30
	c.Model.Trees = 100
	c.Model.MinSamplesLeaf = 1
	c.Model.Seed = 42
	c.Model.Source = "fred"
	c.Scenario.Variation = 0.02
	c.Scenario.BlendWeight = 0.5
	c.Scenario.History = 30
	c.Files.EvaluationTable = "data/test_multivariable.csv"
	c.Files.ForecastTable = "data/forecast_prophet.csv"
	c.Files.AuditWorkbook = "data/auditoria_modelos.xlsx"
	c.Queue.Addr = "localhost:6379"
	c.Queue.KeyPrefix = "fxcast:queue"
	c.Queue.Workers = 1
	c.Queue.RetryLimit = 1
	c.Queue.RetryDelay = 30 * time.Second
	c.Queue.StatusTTL = 24 * time.Hour
	c.Kafka.Topic = "fxcast.predictions"
	c.Kafka.RequiredAcks = -1
	c.Kafka.Compression = "gzip"
	c.Kafka.Consumer.GroupID = "fxcast-archiver"
	c.Kafka.Consumer.Workers = 1
	c.ClickHouse.Port = 9000
	c.ClickHouse.Database = "fxcast"
	c.Analytics.Timeout = 3 * time.Second
	c.Analytics.Attempts = 3
	return &c
}

// Load reads and parses a YAML configuration file on top of Default().
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

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
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("FXCAST_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		c.Server.Port = xutil.ParseIntDefault(v, c.Server.Port)
	}
	if v := os.Getenv("FRED_API_KEY"); v != "" {
		c.FRED.APIKey = v
	}
	if v := os.Getenv("FRED_BASE_URL"); v != "" {
		c.FRED.BaseURL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv("QUEUE_REDIS_ADDR"); v != "" {
		c.Queue.Addr = v
	}
	if v := os.Getenv("ANALYTICS_SERVICE_URL"); v != "" {
		c.Analytics.ServiceURL = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.FRED.BaseURL == "" {
		return fmt.Errorf("fred.base_url is required")
	}
	if c.FRED.SortOrder != "asc" && c.FRED.SortOrder != "desc" {
		return fmt.Errorf("fred.sort_order must be 'asc' or 'desc', got '%s'", c.FRED.SortOrder)
	}
	for _, name := range []string{"EURUSD", "DXY", "CPI", "FEDFUNDS", "GDP"} {
		if c.Series[name] == "" {
			return fmt.Errorf("series.%s is required", name)
		}
	}
	if c.Model.TrainFraction <= 0 || c.Model.TrainFraction >= 1 {
		return fmt.Errorf("model.train_fraction must be in (0, 1), got %v", c.Model.TrainFraction)
	}
	if c.Model.Trees < 1 {
		return fmt.Errorf("model.trees must be positive")
	}
	if c.Model.Source != "fred" && c.Model.Source != "clickhouse" {
		return fmt.Errorf("model.source must be 'fred' or 'clickhouse', got '%s'", c.Model.Source)
	}
	if c.Model.Source == "clickhouse" && !c.ClickHouse.Enabled {
		return fmt.Errorf("model.source 'clickhouse' requires clickhouse.enabled")
	}
	if c.Scenario.Variation < 0 || c.Scenario.Variation >= 1 {
		return fmt.Errorf("scenario.variation must be in [0, 1), got %v", c.Scenario.Variation)
	}
	if c.Scenario.BlendWeight < 0 || c.Scenario.BlendWeight > 1 {
		return fmt.Errorf("scenario.blend_weight must be in [0, 1], got %v", c.Scenario.BlendWeight)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	if c.Cache.Redis.Enabled && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required when redis is enabled")
	}
	if c.Queue.Enabled && c.Queue.Addr == "" {
		return fmt.Errorf("queue.addr is required when the queue is enabled")
	}
	if c.Queue.Enabled && c.Queue.Workers < 1 {
		return fmt.Errorf("queue.workers must be positive")
	}
	if c.Queue.RetryLimit < 0 {
		return fmt.Errorf("queue.retry_limit cannot be negative")
	}
	if (c.Analytics.UseRemoteRegressor || c.Analytics.UseRemoteForecast) && c.Analytics.ServiceURL == "" {
		return fmt.Errorf("analytics.service_url is required for remote models")
	}
	return nil
}

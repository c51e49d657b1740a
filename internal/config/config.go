package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EngineConfig holds the tuning knobs of the aggregation pipeline.
type EngineConfig struct {
	MaxSample             int    `yaml:"max_sample"`
	SampleStrategy        string `yaml:"sample_strategy"` // "reservoir", "shuffle" or "auto"
	SubBatchSize          int    `yaml:"sub_batch_size"`
	BackpressureThreshold int    `yaml:"backpressure_threshold"`
	ProgressInterval      string `yaml:"progress_interval"`

	// Default field names used when a session does not override them.
	XField        string `yaml:"x_field"`
	YField        string `yaml:"y_field"`
	ValueField    string `yaml:"value_field"`
	CategoryField string `yaml:"category_field"`
	IDField       string `yaml:"id_field"`
}

// ProgressIntervalDuration parses the coalescing interval.
func (c EngineConfig) ProgressIntervalDuration() (time.Duration, error) {
	if c.ProgressInterval == "" {
		return 100 * time.Millisecond, nil
	}
	d, err := time.ParseDuration(c.ProgressInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid progress_interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("progress_interval must be positive, got %s", c.ProgressInterval)
	}
	return d, nil
}

// NATSConfig holds the connection settings for the chunk and progress bus.
type NATSConfig struct {
	URL             string `yaml:"url"`
	ChunkSubject    string `yaml:"chunk_subject"`    // prefix, requestId appended
	ProgressSubject string `yaml:"progress_subject"` // prefix, requestId appended
	BufferSize      int    `yaml:"buffer_size"`
}

// ClickHouseConfig holds the connection settings for the result store.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// GobConfig holds the settings for the gob file writer.
type GobConfig struct {
	RootPath string `yaml:"root_path"`
}

// TextConfig holds the settings for the text summary writer.
type TextConfig struct {
	Path string `yaml:"path"`
}

// WriterDef defines a single result writer from the config file.
type WriterDef struct {
	Type       string           `yaml:"type"` // "clickhouse", "gob" or "text"
	Enabled    bool             `yaml:"enabled"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Gob        GobConfig        `yaml:"gob"`
	Text       TextConfig       `yaml:"text"`
}

// SMTPConfig holds the settings for the email failure notifier.
type SMTPConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// APIConfig holds the settings for the HTTP control API.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Engine  EngineConfig `yaml:"engine"`
	NATS    NATSConfig   `yaml:"nats"`
	Writers []WriterDef  `yaml:"writers"`
	SMTP    SMTPConfig   `yaml:"smtp"`
	API     APIConfig    `yaml:"api"`
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Engine.MaxSample <= 0 {
		c.Engine.MaxSample = 10000
	}
	if c.Engine.SampleStrategy == "" {
		c.Engine.SampleStrategy = "auto"
	}
	if c.Engine.SubBatchSize <= 0 {
		c.Engine.SubBatchSize = 1000
	}
	if c.Engine.BackpressureThreshold <= 0 {
		c.Engine.BackpressureThreshold = 10
	}
	if c.Engine.XField == "" {
		c.Engine.XField = "longitude"
	}
	if c.Engine.YField == "" {
		c.Engine.YField = "latitude"
	}
	if c.Engine.ValueField == "" {
		c.Engine.ValueField = "value"
	}
	if c.Engine.CategoryField == "" {
		c.Engine.CategoryField = "unit"
	}
	if c.Engine.IDField == "" {
		c.Engine.IDField = "id"
	}
	if c.NATS.URL == "" {
		c.NATS.URL = "nats://127.0.0.1:4222"
	}
	if c.NATS.ChunkSubject == "" {
		c.NATS.ChunkSubject = "geostream.chunks"
	}
	if c.NATS.ProgressSubject == "" {
		c.NATS.ProgressSubject = "geostream.progress"
	}
	if c.NATS.BufferSize <= 0 {
		c.NATS.BufferSize = 64
	}
	if c.API.ListenAddr == "" {
		c.API.ListenAddr = ":8090"
	}
}

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"canvas-analytics-etl/pkg/errors"
)

type Config struct {
	App       AppConfig       `yaml:"app"`
	Server    ServerConfig    `yaml:"server"`
	Canvas    CanvasConfig    `yaml:"canvas"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Storage   StorageConfig   `yaml:"storage"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Canonical CanonicalConfig `yaml:"canonical"`
	Import    ImportConfig    `yaml:"import"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Env     string `yaml:"env"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type CanvasConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Token      string        `yaml:"token"`
	CourseIDs  []string      `yaml:"course_ids"`
	Timeout    time.Duration `yaml:"timeout"`
	RetryLimit int           `yaml:"retry_limit"`
	Backoff    time.Duration `yaml:"backoff"`
	PerPage    int           `yaml:"per_page"`
}

type DatabaseConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	Charset            string        `yaml:"charset"`
	ParseTime          bool          `yaml:"parse_time"`
	Loc                string        `yaml:"loc"`
	MaxConnections     int           `yaml:"max_connections"`
	MaxIdleConnections int           `yaml:"max_idle_connections"`
	ConnectionLifetime time.Duration `yaml:"connection_lifetime"`
}

type RedisConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	PoolSize  int    `yaml:"pool_size"`
	RunQueue  string `yaml:"run_queue"`
	DLQSuffix string `yaml:"dlq_suffix"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type ArtifactsConfig struct {
	Dir            string `yaml:"dir"`
	ArchiveRawDump bool   `yaml:"archive_raw_dump"`
}

type FetchConfig struct {
	WorkerCount int `yaml:"worker_count"`
}

type CanonicalConfig struct {
	BucketByDueDate bool `yaml:"bucket_by_due_date"`
}

type ImportConfig struct {
	BatchSize int `yaml:"batch_size"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Token from the environment takes precedence over the config file
	// so the file can be committed without credentials.
	if token := os.Getenv("CANVAS_TOKEN"); token != "" {
		config.Canvas.Token = token
	}

	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Canvas.Timeout == 0 {
		c.Canvas.Timeout = 30 * time.Second
	}
	if c.Canvas.RetryLimit == 0 {
		c.Canvas.RetryLimit = 3
	}
	if c.Canvas.Backoff == 0 {
		c.Canvas.Backoff = 2 * time.Second
	}
	if c.Canvas.PerPage == 0 {
		c.Canvas.PerPage = 100
	}
	if c.Fetch.WorkerCount == 0 {
		c.Fetch.WorkerCount = 10
	}
	if c.Import.BatchSize == 0 {
		c.Import.BatchSize = 2000
	}
	if c.Artifacts.Dir == "" {
		c.Artifacts.Dir = "data_exports"
	}
}

// Validate checks the fields without which a pipeline run cannot start.
func (c *Config) Validate() error {
	if c.Canvas.Token == "" {
		return errors.ErrMissingToken
	}
	if len(c.Canvas.CourseIDs) == 0 {
		return errors.ErrNoCourses
	}
	if c.Canvas.BaseURL == "" {
		return fmt.Errorf("canvas base_url is required")
	}
	return nil
}

// MySQL DSN format: [username[:password]@][protocol[(address)]]/dbname[?param1=value1&...&paramN=valueN]
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port,
		c.Database.Name, c.Database.Charset, c.Database.ParseTime, c.Database.Loc)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

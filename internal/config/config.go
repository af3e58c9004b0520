package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port         int           `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"readTimeout"`
		WriteTimeout time.Duration `yaml:"writeTimeout"`
		IdleTimeout  time.Duration `yaml:"idleTimeout"`
		CORSOrigins  []string      `yaml:"corsOrigins"`
		MaxUploadMB  int64         `yaml:"maxUploadMB"`
	} `yaml:"server"`

	// Auth maps tenant → API key. Empty disables auth.
	Auth map[string]string `yaml:"auth"`

	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rateLimit"`

	LLM struct {
		BaseURL   string        `yaml:"baseURL"`
		APIKey    string        `yaml:"apiKey"`
		Model     string        `yaml:"model"`
		Timeout   time.Duration `yaml:"timeout"`
		MaxTokens int           `yaml:"maxTokens"`
	} `yaml:"llm"`

	Panel struct {
		Size               int   `yaml:"size"`
		QuestionsPerExpert int   `yaml:"questionsPerExpert"`
		Concurrent         bool  `yaml:"concurrent"`
		IsolateFailures    *bool `yaml:"isolateFailures"`
	} `yaml:"panel"`

	Sandbox struct {
		Image       string        `yaml:"image"`
		Timeout     time.Duration `yaml:"timeout"`
		Memory      string        `yaml:"memory"`
		Network     bool          `yaml:"network"`
		Concurrency int           `yaml:"concurrency"`
	} `yaml:"sandbox"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres | "" (disabled)
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Prefix   string        `yaml:"prefix"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
		File        string `yaml:"file"`
		MaxSizeMB   int    `yaml:"maxSizeMB"`
		MaxBackups  int    `yaml:"maxBackups"`
		MaxAgeDays  int    `yaml:"maxAgeDays"`
	} `yaml:"log"`
}

// Load baca .env (kalau ada) lalu file config.yaml, env override, dan default
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML, applies env overrides and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	override := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override("ROUNDTABLE_LLM_API_KEY", &c.LLM.APIKey)
	override("ROUNDTABLE_LLM_BASE_URL", &c.LLM.BaseURL)
	override("ROUNDTABLE_LLM_MODEL", &c.LLM.Model)
	override("ROUNDTABLE_DB_PASSWORD", &c.Database.Password)
	override("ROUNDTABLE_REDIS_ADDR", &c.Redis.Addr)
}

// Validate fills defaults and rejects impossible values.
func (c *Config) Validate() error {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	// turns can take minutes
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 5 * time.Minute
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = 20
	}

	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = 5
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 10
	}

	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4.1-nano"
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 120 * time.Second
	}

	if c.Panel.Size == 0 {
		c.Panel.Size = 3
	}
	if c.Panel.Size != 3 {
		return fmt.Errorf("panel.size must be 3, got %d", c.Panel.Size)
	}
	if c.Panel.QuestionsPerExpert == 0 {
		c.Panel.QuestionsPerExpert = 3
	}
	if c.Panel.QuestionsPerExpert < 0 {
		return fmt.Errorf("panel.questionsPerExpert must be positive")
	}
	if c.Panel.IsolateFailures == nil {
		t := true
		c.Panel.IsolateFailures = &t
	}

	if c.Sandbox.Image == "" {
		c.Sandbox.Image = "roundtable-sandbox:latest"
	}
	if c.Sandbox.Timeout == 0 {
		c.Sandbox.Timeout = 60 * time.Second
	}
	if c.Sandbox.Memory == "" {
		c.Sandbox.Memory = "512m"
	}
	if c.Sandbox.Concurrency == 0 {
		c.Sandbox.Concurrency = 4
	}

	switch c.Database.Driver {
	case "":
	case "mysql":
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
	case "postgres":
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	default:
		return fmt.Errorf("database.driver must be mysql, postgres or empty, got %q", c.Database.Driver)
	}

	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "roundtable"
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 24 * time.Hour
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	return nil
}

func (c *Config) IsolateFailures() bool {
	return c.Panel.IsolateFailures == nil || *c.Panel.IsolateFailures
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is loaded once in main and passed into constructors. Nothing
// else in the codebase reads the environment directly (the logger is
// the one exception, since it exists before config does).
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Media         MediaConfig         `mapstructure:"media"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

type TranscriptionConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	Language     string        `mapstructure:"language"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxPolls     int           `mapstructure:"max_polls"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type MediaConfig struct {
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

type SchedulerConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	CleanupCronSpec string `mapstructure:"cleanup_cron_spec"`
}

type PipelineConfig struct {
	SinglePassLimit      int           `mapstructure:"single_pass_limit"`
	ChunkMaxLen          int           `mapstructure:"chunk_max_len"`
	InterCallDelay       time.Duration `mapstructure:"inter_call_delay"`
	MaxAttempts          int           `mapstructure:"max_attempts"`
	BackoffBase          time.Duration `mapstructure:"backoff_base"`
	WindowSize           int           `mapstructure:"window_size"`
	WindowOverlap        int           `mapstructure:"window_overlap"`
	WindowedAfterMinutes int           `mapstructure:"windowed_after_minutes"`
}

// Load reads config.yaml if present, then lets environment variables
// override everything (SERVER_PORT, LLM_API_KEY, DATABASE_HOST, ...).
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", "8080")

	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.max_tokens", 1500)
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.http_timeout", 60*time.Second)

	v.SetDefault("transcription.base_url", "https://api.assemblyai.com/v2")
	v.SetDefault("transcription.language", "en")
	v.SetDefault("transcription.poll_interval", 5*time.Second)
	v.SetDefault("transcription.max_polls", 60)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "3306")
	v.SetDefault("database.user", "root")
	v.SetDefault("database.dbname", "sales_insights")

	v.SetDefault("media.path", "./media")
	v.SetDefault("media.retention_days", 30)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.cleanup_cron_spec", "0 0 3 * * *")

	v.SetDefault("pipeline.single_pass_limit", 100000)
	v.SetDefault("pipeline.chunk_max_len", 100000)
	v.SetDefault("pipeline.inter_call_delay", time.Second)
	v.SetDefault("pipeline.max_attempts", 3)
	v.SetDefault("pipeline.backoff_base", time.Second)
	v.SetDefault("pipeline.window_size", 100000)
	v.SetDefault("pipeline.window_overlap", 10000)
	v.SetDefault("pipeline.windowed_after_minutes", 120)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Pipeline.ChunkMaxLen <= 0 {
		return fmt.Errorf("pipeline.chunk_max_len must be positive, got %d", c.Pipeline.ChunkMaxLen)
	}
	if c.Pipeline.MaxAttempts < 1 {
		return fmt.Errorf("pipeline.max_attempts must be at least 1, got %d", c.Pipeline.MaxAttempts)
	}
	if c.Pipeline.WindowOverlap >= c.Pipeline.WindowSize {
		return fmt.Errorf("pipeline.window_overlap (%d) must be smaller than window_size (%d)",
			c.Pipeline.WindowOverlap, c.Pipeline.WindowSize)
	}
	return nil
}

// DSN builds the MySQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		d.User, d.Password, d.Host, d.Port, d.DBName)
}

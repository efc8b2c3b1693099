// Package config loads listpager configuration from a YAML file and the
// environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/listpager/pkg/client"
	"github.com/Sternrassler/listpager/pkg/logging"
	"github.com/Sternrassler/listpager/pkg/pagination"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// Version is reported by the CLI and the User-Agent header.
const Version = "0.1.0"

// Config is the complete listpager configuration.
type Config struct {
	API    APIConfig    `yaml:"api"`
	Paging PagingConfig `yaml:"paging"`
	Redis  RedisConfig  `yaml:"redis"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// APIConfig configures the content API client.
type APIConfig struct {
	BaseURL                 string        `yaml:"base_url"`
	UserAgent               string        `yaml:"user_agent"`
	Token                   string        `yaml:"token"`
	Timeout                 time.Duration `yaml:"timeout"`
	MaxRetries              int           `yaml:"max_retries"`
	InitialBackoff          time.Duration `yaml:"initial_backoff"`
	MaxBackoff              time.Duration `yaml:"max_backoff"`
	SessionInvalidatedCodes []int         `yaml:"session_invalidated_codes"`
	SuccessCode             int           `yaml:"success_code"`
}

// PagingConfig configures the fetch adapter shared by all screens.
type PagingConfig struct {
	PageSize    int           `yaml:"page_size"`
	PageTimeout time.Duration `yaml:"page_timeout"`
}

// RedisConfig enables shared rate limit state and session fan-out.
// An empty URL keeps both in memory.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// ServerConfig configures the screen host.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the built-in configuration.
func Default() Config {
	api := client.DefaultConfig("", "listpager/"+Version)
	src := pagination.DefaultConfig()
	return Config{
		API: APIConfig{
			UserAgent:               api.UserAgent,
			Timeout:                 api.HTTPTimeout,
			MaxRetries:              api.MaxRetries,
			InitialBackoff:          api.InitialBackoff,
			MaxBackoff:              api.MaxBackoff,
			SessionInvalidatedCodes: api.SessionInvalidatedCodes,
			SuccessCode:             api.SuccessCode,
		},
		Paging: PagingConfig{
			PageSize:    src.PageSize,
			PageTimeout: src.Timeout,
		},
		Server: ServerConfig{Listen: ":8080"},
		Log:    LogConfig{Level: string(logging.LevelInfo)},
	}
}

// Load reads path (if not empty) over the defaults, then applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.API.BaseURL = getEnv("LISTPAGER_BASE_URL", c.API.BaseURL)
	c.API.Token = getEnv("LISTPAGER_TOKEN", c.API.Token)
	c.API.UserAgent = getEnv("USER_AGENT", c.API.UserAgent)
	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)
	c.Server.Listen = getEnv("LISTPAGER_LISTEN", c.Server.Listen)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)

	if v := os.Getenv("LISTPAGER_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LISTPAGER_PAGE_SIZE: %w", err)
		}
		c.Paging.PageSize = n
	}
	return nil
}

// Validate checks the configuration for values no component accepts.
func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required (or set LISTPAGER_BASE_URL)")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an http(s) URL (got %q)", c.API.BaseURL)
	}
	if c.API.UserAgent == "" {
		return fmt.Errorf("api.user_agent is required")
	}
	if c.API.MaxRetries < 0 {
		return fmt.Errorf("api.max_retries must be >= 0 (got %d)", c.API.MaxRetries)
	}
	if c.Paging.PageSize <= 0 {
		return fmt.Errorf("paging.page_size must be > 0 (got %d)", c.Paging.PageSize)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Logging returns the logger configuration. Validate has checked the level.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.Log.Level); err == nil {
		cfg.Level = level
	}
	cfg.Pretty = c.Log.Pretty
	return cfg
}

// Client returns the content API client configuration. rdb may be nil.
func (c Config) Client(rdb redis.UniversalClient) client.Config {
	cfg := client.DefaultConfig(c.API.BaseURL, c.API.UserAgent)
	cfg.Redis = rdb
	if c.API.Token != "" {
		cfg.Token = client.StaticToken(c.API.Token)
	}
	if c.API.Timeout > 0 {
		cfg.HTTPTimeout = c.API.Timeout
	}
	cfg.MaxRetries = c.API.MaxRetries
	if c.API.InitialBackoff > 0 {
		cfg.InitialBackoff = c.API.InitialBackoff
	}
	if c.API.MaxBackoff > 0 {
		cfg.MaxBackoff = c.API.MaxBackoff
	}
	if len(c.API.SessionInvalidatedCodes) > 0 {
		cfg.SessionInvalidatedCodes = c.API.SessionInvalidatedCodes
	}
	cfg.SuccessCode = c.API.SuccessCode
	return cfg
}

// Source returns the fetch adapter configuration.
func (c Config) Source() pagination.Config {
	return pagination.Config{
		PageSize: c.Paging.PageSize,
		Timeout:  c.Paging.PageTimeout,
	}
}

// RedisOptions parses the Redis URL. It returns nil when Redis is disabled.
// A bare host:port is accepted as well as redis:// and rediss:// URLs.
func (c Config) RedisOptions() (*redis.Options, error) {
	if c.Redis.URL == "" {
		return nil, nil
	}
	if !strings.Contains(c.Redis.URL, "://") {
		return &redis.Options{Addr: c.Redis.URL}, nil
	}
	opts, err := redis.ParseURL(c.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("redis.url: %w", err)
	}
	return opts, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

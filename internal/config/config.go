package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// Token store backends.
const (
	TokenStoreMemory = "memory"
	TokenStoreFile   = "file"
	TokenStoreRedis  = "redis"
)

const (
	defaultAPIBaseURL     = "http://localhost:7000"
	defaultRequestTimeout = 10 * time.Second
	defaultDataDir        = ".kapee"
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	APIBaseURL     string `yaml:"apiBaseURL"`
	LogLevel       string `yaml:"logLevel"`
	RequestTimeout string `yaml:"requestTimeout"`
	TokenStore     string `yaml:"tokenStore"`
	DataDir        string `yaml:"dataDir"`
	RedisAddr      string `yaml:"redisAddr"`
	RedisPassword  string `yaml:"redisPassword"`
	RedisKeyPrefix string `yaml:"redisKeyPrefix"`
}

// Load reads config from path. An empty path falls back to KAPEE_CONFIG,
// then ConfigPath. A missing file leaves defaults and env overrides in
// effect.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = os.Getenv("KAPEE_CONFIG")
	}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	if v := os.Getenv("KAPEE_API_URL"); v != "" {
		cfg.APIBaseURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("KAPEE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	if v := os.Getenv("KAPEE_REQUEST_TIMEOUT"); v != "" {
		cfg.RequestTimeout = strings.TrimSpace(v)
	}
	if v := os.Getenv("KAPEE_TOKEN_STORE"); v != "" {
		cfg.TokenStore = strings.TrimSpace(v)
	}
	if v := os.Getenv("KAPEE_DATA_DIR"); v != "" {
		cfg.DataDir = strings.TrimSpace(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
}

func applyDefaults(cfg *FileConfig) {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	cfg.TokenStore = strings.ToLower(strings.TrimSpace(cfg.TokenStore))
	if cfg.TokenStore == "" {
		cfg.TokenStore = TokenStoreFile
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = defaultDataDir
	}
}

func validateConfig(cfg FileConfig) error {
	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: apiBaseURL must be an absolute http(s) URL, got %q", cfg.APIBaseURL)
	}
	switch cfg.TokenStore {
	case TokenStoreMemory, TokenStoreFile:
	case TokenStoreRedis:
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return errors.New("config: redisAddr is required when tokenStore is redis (set in config.yaml or REDIS_ADDR)")
		}
	default:
		return fmt.Errorf("config: tokenStore must be memory, file or redis, got %q", cfg.TokenStore)
	}
	if _, err := ParseRequestTimeout(cfg.RequestTimeout); err != nil {
		return err
	}
	return nil
}

// ParseRequestTimeout parses the optional requestTimeout duration string.
func ParseRequestTimeout(value string) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return defaultRequestTimeout, nil
	}
	dur, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid requestTimeout duration: %w", err)
	}
	if dur <= 0 {
		return 0, errors.New("config: requestTimeout must be > 0")
	}
	return dur, nil
}

// Timeout returns the parsed request timeout. Load has already validated it.
func (c FileConfig) Timeout() time.Duration {
	dur, err := ParseRequestTimeout(c.RequestTimeout)
	if err != nil {
		return defaultRequestTimeout
	}
	return dur
}

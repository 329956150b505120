package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

const (
	ProviderPerplexity = "perplexity"
	ProviderMock       = "mock"

	defaultAPIKeyEnv  = "PERPLEXITY_API_KEY"
	defaultServerAddr = ":3000"
	defaultBaseURL    = "https://api.perplexity.ai/"
	defaultTimeout    = 30
)

// Config holds the server and model settings.
type Config struct {
	ServerAddr string    `json:"server_addr,omitempty" yaml:"server_addr,omitempty"`
	LogMode    string    `json:"log_mode,omitempty" yaml:"log_mode,omitempty"`
	LLM        LLMConfig `json:"llm" yaml:"llm"`
}

// LLMConfig 模型服务配置；api_key 为空时从 api_key_env 指定的环境变量读取。
type LLMConfig struct {
	Provider       string `json:"provider,omitempty" yaml:"provider,omitempty"`
	APIKey         string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	APIKeyEnv      string `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	BaseURL        string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
}

// Timeout bounds each upstream call.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Load reads .env, then the optional config file (JSON, or YAML by extension), then environment overrides.
// A missing config file is not an error.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, eris.Wrap(err, "load .env")
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, eris.Wrapf(err, "read config %s", path)
		default:
			if err := decode(path, data, &cfg); err != nil {
				return Config{}, eris.Wrapf(err, "parse config %s", path)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func (c *Config) applyEnvOverrides() {
	keyEnv := c.LLM.APIKeyEnv
	if keyEnv == "" {
		keyEnv = defaultAPIKeyEnv
	}
	if v := strings.TrimSpace(os.Getenv(keyEnv)); v != "" {
		c.LLM.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("PERPLEXITY_BASE_URL")); v != "" {
		c.LLM.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		c.ServerAddr = ":" + strings.TrimPrefix(v, ":")
	}
	if v := strings.TrimSpace(os.Getenv("LOG_MODE")); v != "" {
		c.LogMode = v
	}
}

func (c *Config) applyDefaults() {
	if c.ServerAddr == "" {
		c.ServerAddr = defaultServerAddr
	}
	if c.LogMode == "" {
		c.LogMode = "dev"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderPerplexity
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultBaseURL
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultTimeout
	}
}

// Validate checks the settings a host needs before serving; a missing API key is fatal.
func (c Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderMock:
		return nil
	case ProviderPerplexity:
		if c.LLM.APIKey == "" {
			env := c.LLM.APIKeyEnv
			if env == "" {
				env = defaultAPIKeyEnv
			}
			return eris.Errorf("%s environment variable is required", env)
		}
		return nil
	default:
		return eris.Errorf("llm provider %s not supported", c.LLM.Provider)
	}
}

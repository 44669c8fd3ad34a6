// Package config loads cubeflow settings from a file, a .env file and the environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no config path is given and it exists.
const DefaultFile = "cubeflow.yaml"

// Vena holds the data-service credentials.
type Vena struct {
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	User     string `yaml:"user" json:"user"`
	Key      string `yaml:"key" json:"-"`
}

// LLM selects the completion backend.
type LLM struct {
	Endpoint     string `yaml:"endpoint" json:"endpoint"`
	Deployment   string `yaml:"deployment" json:"deployment"`
	APIVersion   string `yaml:"api_version" json:"api_version"`
	APIKey       string `yaml:"api_key" json:"-"`
	LocalModel   string `yaml:"local_model" json:"local_model"`
	LocalBaseURL string `yaml:"local_base_url" json:"local_base_url"`
}

// Redis enables the shared transcript store and conversation lock.
type Redis struct {
	URL    string        `yaml:"url" json:"url"`
	Prefix string        `yaml:"prefix" json:"prefix"`
	TTL    time.Duration `yaml:"ttl" json:"ttl"`
}

// Archive controls what reaches the transcript store.
type Archive struct {
	// EncryptionKey is a base64-encoded 32-byte AES key; empty disables encryption.
	EncryptionKey string   `yaml:"encryption_key" json:"-"`
	FallbackKeys  []string `yaml:"fallback_keys" json:"-"`
	// RedactPatterns are regular expressions masked before saving.
	RedactPatterns []string `yaml:"redact_patterns" json:"redact_patterns"`
}

// Config is built once at startup and passed down explicitly.
type Config struct {
	Vena        Vena          `yaml:"vena" json:"vena"`
	LLM         LLM           `yaml:"llm" json:"llm"`
	Redis       Redis         `yaml:"redis" json:"redis"`
	Archive     Archive       `yaml:"archive" json:"archive"`
	LogLevel    string        `yaml:"log_level" json:"log_level"`
	LogFormat   string        `yaml:"log_format" json:"log_format"`
	ToolTimeout time.Duration `yaml:"tool_timeout" json:"tool_timeout"`
	MaxSteps    int           `yaml:"max_steps" json:"max_steps"`
	Addr        string        `yaml:"addr" json:"addr"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LogLevel:    "info",
		LogFormat:   "text",
		ToolTimeout: 30 * time.Second,
		MaxSteps:    16,
		Addr:        ":8080",
		Redis: Redis{
			Prefix: "cubeflow:",
			TTL:    24 * time.Hour,
		},
	}
}

// Load reads path (YAML or JSON), then the .env file, then the environment.
// Later sources override earlier ones. A missing path falls back to DefaultFile,
// and a missing DefaultFile is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := loadFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return cfg, err
		}
	}

	// .env never overrides variables already set in the process.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("failed to read .env: %w", err)
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays environment variables on cfg.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"VENA_ENDPOINT":          &cfg.Vena.Endpoint,
		"VENA_USER":              &cfg.Vena.User,
		"VENA_KEY":               &cfg.Vena.Key,
		"OPENAI_ENDPOINT":        &cfg.LLM.Endpoint,
		"OPENAI_DEPLOYMENT_NAME": &cfg.LLM.Deployment,
		"OPENAI_API_VERSION":     &cfg.LLM.APIVersion,
		"OPENAI_API_KEY":         &cfg.LLM.APIKey,
		"LOCAL_MODEL_OVERRIDE":   &cfg.LLM.LocalModel,
		"LOCAL_MODEL_BASE_URL":   &cfg.LLM.LocalBaseURL,
		"CUBEFLOW_REDIS_URL":     &cfg.Redis.URL,
		"CUBEFLOW_LOG_LEVEL":     &cfg.LogLevel,
		"CUBEFLOW_LOG_FORMAT":    &cfg.LogFormat,
		"CUBEFLOW_ADDR":          &cfg.Addr,
		"CUBEFLOW_ARCHIVE_KEY":   &cfg.Archive.EncryptionKey,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("CUBEFLOW_TOOL_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CUBEFLOW_TOOL_TIMEOUT: %w", err)
		}
		cfg.ToolTimeout = d
	}
	if v, ok := lookup("CUBEFLOW_MAX_STEPS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CUBEFLOW_MAX_STEPS: %w", err)
		}
		cfg.MaxSteps = n
	}
	return nil
}

// Validate reports every missing setting needed to run queries.
func (c Config) Validate() error {
	var errs []error
	if c.Vena.Endpoint == "" {
		errs = append(errs, errors.New("vena endpoint is required (VENA_ENDPOINT)"))
	}
	if c.Vena.User == "" || c.Vena.Key == "" {
		errs = append(errs, errors.New("vena credentials are required (VENA_USER, VENA_KEY)"))
	}
	if c.LLM.LocalModel == "" {
		if c.LLM.Deployment == "" {
			errs = append(errs, errors.New("a model deployment is required (OPENAI_DEPLOYMENT_NAME or LOCAL_MODEL_OVERRIDE)"))
		}
		if c.LLM.APIKey == "" && (c.LLM.Endpoint == "" || c.LLM.APIVersion == "") {
			errs = append(errs, errors.New("azure openai requires OPENAI_ENDPOINT and OPENAI_API_VERSION"))
		}
	}
	if c.MaxSteps < 0 {
		errs = append(errs, fmt.Errorf("max_steps must not be negative, got %d", c.MaxSteps))
	}
	return errors.Join(errs...)
}

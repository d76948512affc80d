// Package config loads the ragfile command configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the root of the configuration file.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Container ContainerConfig `yaml:"container"`
	Generator GeneratorConfig `yaml:"generator"`
	Storage   StorageConfig   `yaml:"storage"`
	Bench     BenchConfig     `yaml:"bench"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// ContainerConfig controls how containers are written.
type ContainerConfig struct {
	Alignment int    `yaml:"alignment" validate:"oneof=4 8 16"`
	Precision int    `yaml:"precision" validate:"oneof=16 32"`
	ByteOrder string `yaml:"byte_order" validate:"oneof=little big"`
}

// GeneratorConfig points at an OpenAI-compatible server.
type GeneratorConfig struct {
	BaseURL        string        `yaml:"base_url" validate:"required,url"`
	APIKey         string        `yaml:"api_key"`
	ChatModel      string        `yaml:"chat_model" validate:"required"`
	EmbeddingModel string        `yaml:"embedding_model" validate:"required"`
	Prompt         string        `yaml:"prompt" validate:"required,contains=%s"`
	Keywords       []string      `yaml:"keywords" validate:"min=1,dive,required,excludes=-"`
	Concurrency    int           `yaml:"concurrency" validate:"min=1,max=64"`
	BatchSize      int           `yaml:"batch_size" validate:"min=1"`
	RateLimit      float64       `yaml:"rate_limit" validate:"gte=0"`
	Burst          int           `yaml:"burst" validate:"min=1"`
	MaxRetries     int           `yaml:"max_retries" validate:"gte=0"`
	Timeout        time.Duration `yaml:"timeout" validate:"gte=0"`
}

// StorageConfig selects the blob store used by publish.
type StorageConfig struct {
	Backend    string `yaml:"backend" validate:"oneof=local s3 minio"`
	Dir        string `yaml:"dir" validate:"required_if=Backend local"`
	Bucket     string `yaml:"bucket" validate:"required_unless=Backend local"`
	Prefix     string `yaml:"prefix"`
	Region     string `yaml:"region"`
	Endpoint   string `yaml:"endpoint" validate:"required_if=Backend minio"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Secure     bool   `yaml:"secure"`
	CacheBytes int64  `yaml:"cache_bytes" validate:"gte=0"`
}

// BenchConfig holds keyword benchmark defaults.
type BenchConfig struct {
	NumKeywords   int `yaml:"num_keywords" validate:"min=1"`
	KeywordLength int `yaml:"str_length" validate:"min=1"`
	ContentLength int `yaml:"content_length" validate:"gte=0"`
	Readers       int `yaml:"readers" validate:"gte=0"`
	Iterations    int `yaml:"iterations" validate:"gte=0"`
}

// MetricsConfig configures the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Container: ContainerConfig{
			Alignment: 8,
			Precision: 32,
			ByteOrder: "little",
		},
		Generator: GeneratorConfig{
			BaseURL:        "http://localhost:11434/v1/",
			APIKey:         "ollama",
			ChatModel:      "gemma3:1b",
			EmbeddingModel: "all-minilm",
			Prompt:         "Write a concise technical paragraph explaining the concept of %s for a software engineer.",
			Keywords:       []string{"AI", "RAG", "Graph", "Cybersecurity", "Distributed Systems"},
			Concurrency:    2,
			BatchSize:      16,
			Burst:          1,
			MaxRetries:     2,
			Timeout:        5 * time.Minute,
		},
		Storage: StorageConfig{
			Backend: "local",
			Dir:     ".",
		},
		Bench: BenchConfig{
			NumKeywords:   10000,
			KeywordLength: 8,
			ContentLength: 64,
			Readers:       4,
			Iterations:    100,
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	return formatValidationError(validate.Struct(c))
}

func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("config: %w", err)
	}

	msgs := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		field := strings.TrimPrefix(e.Namespace(), "Config.")
		switch e.Tag() {
		case "required", "required_if", "required_unless":
			msgs = append(msgs, fmt.Sprintf("%s: field is required", field))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s: must be one of [%s], got %v", field, e.Param(), e.Value()))
		case "min", "gte":
			msgs = append(msgs, fmt.Sprintf("%s: must be at least %s", field, e.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s: must not exceed %s", field, e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s: validation failed (%s)", field, e.Tag()))
		}
	}
	return fmt.Errorf("config: %s", strings.Join(msgs, "; "))
}

// Package config loads runtime configuration from the environment and an
// optional .env file.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile           = ".env"
	defaultPort              = "8080"
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultLogLevel          = "info"
	defaultTopic             = "products"
	defaultImageMaxBytes     = 1 << 20
	defaultShutdownTimeout   = 30 * time.Second
	defaultTaskTimeout       = 2 * time.Minute
	defaultDeleteConcurrency = 8
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server  ServerConfig
	Spanner SpannerConfig
	Storage StorageConfig
	PubSub  PubSubConfig
	Images  ImagesConfig
	Tasks   TasksConfig
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LogLevel     string
}

// SpannerConfig identifies the document store.
type SpannerConfig struct {
	Database string
}

// StorageConfig configures the image bucket.
type StorageConfig struct {
	Bucket            string
	BaseURL           string
	DeleteConcurrency int
}

// PubSubConfig configures replication publishing.
type PubSubConfig struct {
	ProjectID string
	Topic     string
}

// ImagesConfig configures image payload handling.
type ImagesConfig struct {
	// CDNHost is the base URL stored image links are built on.
	CDNHost  string
	MaxBytes int
}

// TasksConfig configures post-commit task dispatching.
type TasksConfig struct {
	// Timeout bounds each post-commit task. Zero leaves tasks unbounded.
	Timeout         time.Duration
	ShutdownTimeout time.Duration
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: missing or invalid %s", strings.Join(e.fields, ", "))
}

// Fields returns the offending keys, sorted.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises loading.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile reads path instead of .env. An empty path disables the file.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap layers values above the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv ignores the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load builds a Config. Explicit values win over the process environment,
// which wins over the .env file.
func Load(_ context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if value, ok := options.envMap[key]; ok {
			return value, true
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		value, ok := dotEnvValues[key]
		return value, ok
	}

	var invalid []string
	durationField := func(key string, fallback time.Duration) time.Duration {
		d, err := durationWithDefault(lookup, key, fallback)
		if err != nil {
			invalid = append(invalid, key)
		}
		return d
	}
	intField := func(key string, fallback int) int {
		n, err := intWithDefault(lookup, key, fallback)
		if err != nil {
			invalid = append(invalid, key)
		}
		return n
	}

	baseURL := strings.TrimRight(stringWithDefault(lookup, "BUCKET_BASE_URL", ""), "/")
	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "HTTP_PORT", defaultPort),
			ReadTimeout:  durationField("HTTP_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationField("HTTP_WRITE_TIMEOUT", defaultWriteTimeout),
			LogLevel:     stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel),
		},
		Spanner: SpannerConfig{
			Database: stringWithDefault(lookup, "SPANNER_DATABASE", ""),
		},
		Storage: StorageConfig{
			Bucket:            stringWithDefault(lookup, "GCS_BUCKET", ""),
			BaseURL:           baseURL,
			DeleteConcurrency: intField("STORAGE_DELETE_CONCURRENCY", defaultDeleteConcurrency),
		},
		PubSub: PubSubConfig{
			ProjectID: stringWithDefault(lookup, "PUBSUB_PROJECT_ID", ""),
			Topic:     stringWithDefault(lookup, "PUBSUB_TOPIC", defaultTopic),
		},
		Images: ImagesConfig{
			CDNHost:  strings.TrimRight(stringWithDefault(lookup, "CDN_HOST_NAME", baseURL), "/"),
			MaxBytes: intField("IMAGE_MAX_BYTES", defaultImageMaxBytes),
		},
		Tasks: TasksConfig{
			Timeout:         durationField("TASKS_TIMEOUT", defaultTaskTimeout),
			ShutdownTimeout: durationField("TASKS_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
	}

	if err := validateConfig(cfg, invalid); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config, invalid []string) error {
	missing := append([]string(nil), invalid...)
	required := map[string]string{
		"SPANNER_DATABASE":  cfg.Spanner.Database,
		"GCS_BUCKET":        cfg.Storage.Bucket,
		"BUCKET_BASE_URL":   cfg.Storage.BaseURL,
		"PUBSUB_PROJECT_ID": cfg.PubSub.ProjectID,
	}
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}
	if cfg.Storage.DeleteConcurrency <= 0 {
		missing = append(missing, "STORAGE_DELETE_CONCURRENCY")
	}
	if cfg.Images.MaxBytes <= 0 {
		missing = append(missing, "IMAGE_MAX_BYTES")
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &ValidationError{fields: dedupe(missing)}
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) (time.Duration, error) {
	value, ok := lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback, err
	}
	return d, nil
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) (int, error) {
	value, ok := lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback, err
	}
	return n, nil
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i > 0 && s == sorted[i-1] {
			continue
		}
		out = append(out, s)
	}
	return out
}

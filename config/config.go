// Package config provides the typed, environment-driven configuration
// layer for docpipe's components (spec §6.5), following the
// EnvConfig/Validator pattern used across the codebase this module grew out
// of: prefixed env-var lookups with typed defaults, plus a fluent validator
// that accumulates errors instead of failing on the first one.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/docpipe/docpipe/queue"
	"github.com/docpipe/docpipe/worker"
)

// EnvConfig provides utilities for loading configuration from environment
// variables under an optional prefix.
type EnvConfig struct {
	prefix string
}

// NewEnvConfig creates a new environment configuration loader.
func NewEnvConfig(prefix string) *EnvConfig {
	return &EnvConfig{prefix: prefix}
}

func (ec *EnvConfig) GetString(key, defaultValue string) string {
	if value := os.Getenv(ec.buildKey(key)); value != "" {
		return value
	}
	return defaultValue
}

func (ec *EnvConfig) GetInt(key string, defaultValue int) int {
	if value := os.Getenv(ec.buildKey(key)); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (ec *EnvConfig) GetBool(key string, defaultValue bool) bool {
	if value := os.Getenv(ec.buildKey(key)); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func (ec *EnvConfig) GetDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(ec.buildKey(key)); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func (ec *EnvConfig) GetFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(ec.buildKey(key)); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func (ec *EnvConfig) GetStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(ec.buildKey(key)); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return defaultValue
}

func (ec *EnvConfig) buildKey(key string) string {
	if ec.prefix != "" {
		return ec.prefix + "_" + key
	}
	return key
}

// QueueConfig is spec §6.5's Queue configuration block.
type QueueConfig struct {
	Backend               string // "redis" | "memory"
	RedisURL              string
	MaxConcurrentWorkers  int
	ProcessingTimeout     time.Duration
	RetryMaxAttempts      int
	StaleJobCheckInterval time.Duration
	HeartbeatInterval     time.Duration
	StaleWorkerTimeout    time.Duration
}

// LoadQueueConfig loads queue configuration from environment.
func LoadQueueConfig(prefix string) QueueConfig {
	env := NewEnvConfig(prefix)
	return QueueConfig{
		Backend:               env.GetString("QUEUE_BACKEND", "redis"),
		RedisURL:              env.GetString("QUEUE_REDIS_URL", "redis://localhost:6379/0"),
		MaxConcurrentWorkers:  env.GetInt("QUEUE_MAX_CONCURRENT_WORKERS", 3),
		ProcessingTimeout:     env.GetDuration("QUEUE_PROCESSING_TIMEOUT", queue.DefaultProcessingTimeout),
		RetryMaxAttempts:      env.GetInt("QUEUE_RETRY_MAX_ATTEMPTS", queue.DefaultMaxRetries),
		StaleJobCheckInterval: env.GetDuration("QUEUE_STALE_JOB_CHECK_INTERVAL", 60*time.Second),
		HeartbeatInterval:     env.GetDuration("QUEUE_HEARTBEAT_INTERVAL", queue.DefaultHeartbeatInterval),
		StaleWorkerTimeout:    env.GetDuration("QUEUE_STALE_WORKER_TIMEOUT", queue.DefaultStaleWorkerTimeout),
	}
}

// WorkerPoolConfig derives a worker.Config from the queue block (spec §4.7).
func (c QueueConfig) WorkerPoolConfig() worker.Config {
	cfg := worker.DefaultConfig()
	cfg.MaxConcurrentWorkers = c.MaxConcurrentWorkers
	cfg.ProcessingTimeout = c.ProcessingTimeout
	cfg.HeartbeatInterval = c.HeartbeatInterval
	cfg.StaleWorkerTimeout = c.StaleWorkerTimeout
	cfg.StaleJobCheckInterval = c.StaleJobCheckInterval
	cfg.MaxRetries = c.RetryMaxAttempts
	return cfg
}

// StoreConfig is spec §6.5's Store configuration block.
type StoreConfig struct {
	Type string // "redis" | "filesystem"
	URL  string // redis URL, or filesystem path
	TTL  time.Duration
}

// LoadStoreConfig loads document store configuration from environment.
func LoadStoreConfig(prefix string) StoreConfig {
	env := NewEnvConfig(prefix)
	return StoreConfig{
		Type: env.GetString("STORE_TYPE", "filesystem"),
		URL:  env.GetString("STORE_URL", "./docpipe-data/documents.db"),
		TTL:  env.GetDuration("STORE_TTL", 30*24*time.Hour),
	}
}

// ProviderConfig is one entry of the Model Gateway's per-provider block
// (spec §6.5).
type ProviderConfig struct {
	ID               string   `yaml:"id"`
	ModelID          string   `yaml:"model_id"`
	Enabled          bool     `yaml:"enabled"`
	CostPerKInput    float64  `yaml:"cost_per_1k_input"`
	CostPerKOutput   float64  `yaml:"cost_per_1k_output"`
	AvgLatencyMS     int      `yaml:"avg_latency_ms"`
	MaxContextTokens int      `yaml:"max_context"`
	QualityScore     float64  `yaml:"quality_score"`
	Capabilities     []string `yaml:"capabilities"`
	PreferredFor     []string `yaml:"preferred_for"`
}

// GatewayConfig is spec §6.5's Model Gateway configuration block.
type GatewayConfig struct {
	DefaultProvider     string
	SelectionStrategy   string
	Providers           []ProviderConfig
	TaskModelOverrides  map[string]string
	FallbackChain       []string
}

// LoadGatewayConfig loads the parts of the gateway config that map
// naturally onto scalar env vars; the per-provider list is expected to come
// from a YAML file (see LoadProvidersFile) since it is structured data spec
// §6.5 enumerates as a list of objects.
func LoadGatewayConfig(prefix string) GatewayConfig {
	env := NewEnvConfig(prefix)
	return GatewayConfig{
		DefaultProvider:   env.GetString("GATEWAY_DEFAULT_PROVIDER", "heuristic"),
		SelectionStrategy: env.GetString("GATEWAY_SELECTION_STRATEGY", "balanced"),
		FallbackChain:     env.GetStringSlice("GATEWAY_FALLBACK_CHAIN", []string{"heuristic"}),
	}
}

// Validator accumulates configuration validation errors instead of failing
// on the first one, so a misconfigured deployment reports everything wrong
// at once.
type Validator struct {
	errors []string
}

func NewValidator() *Validator { return &Validator{} }

func (v *Validator) RequireString(field, value string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
	}
}

func (v *Validator) RequirePositiveInt(field string, value int) {
	if value <= 0 {
		v.errors = append(v.errors, fmt.Sprintf("%s must be positive", field))
	}
}

func (v *Validator) RequirePositiveDuration(field string, value time.Duration) {
	if value <= 0 {
		v.errors = append(v.errors, fmt.Sprintf("%s must be positive", field))
	}
}

func (v *Validator) RequireOneOf(field, value string, allowed []string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
		return
	}
	for _, option := range allowed {
		if value == option {
			return
		}
	}
	v.errors = append(v.errors, fmt.Sprintf("%s must be one of: %s", field, strings.Join(allowed, ", ")))
}

func (v *Validator) IsValid() bool { return len(v.errors) == 0 }
func (v *Validator) Errors() []string { return v.errors }

func (v *Validator) Validate() error {
	if v.IsValid() {
		return nil
	}
	return fmt.Errorf("configuration validation failed: %s", strings.Join(v.errors, "; "))
}

// ValidateQueueConfig checks the invariants spec §6.5 implies (positive
// worker count, non-negative retry budget, a recognized backend).
func ValidateQueueConfig(c QueueConfig) error {
	v := NewValidator()
	v.RequireOneOf("Queue.Backend", c.Backend, []string{"redis", "memory"})
	v.RequirePositiveInt("Queue.MaxConcurrentWorkers", c.MaxConcurrentWorkers)
	v.RequirePositiveDuration("Queue.ProcessingTimeout", c.ProcessingTimeout)
	if c.RetryMaxAttempts < 0 {
		v.errors = append(v.errors, "Queue.RetryMaxAttempts must be >= 0")
	}
	return v.Validate()
}

// ValidateStoreConfig checks the Store block's invariants.
func ValidateStoreConfig(c StoreConfig) error {
	v := NewValidator()
	v.RequireOneOf("Store.Type", c.Type, []string{"redis", "filesystem"})
	v.RequireString("Store.URL", c.URL)
	return v.Validate()
}

// AllConfig is the composed configuration for the docpipe process.
type AllConfig struct {
	Queue   QueueConfig
	Store   StoreConfig
	Gateway GatewayConfig
}

// Load builds AllConfig from environment, using prefix for every variable
// (e.g. prefix "DOCPIPE" reads DOCPIPE_QUEUE_BACKEND).
func Load(prefix string) (AllConfig, error) {
	cfg := AllConfig{
		Queue:   LoadQueueConfig(prefix),
		Store:   LoadStoreConfig(prefix),
		Gateway: LoadGatewayConfig(prefix),
	}
	if err := ValidateQueueConfig(cfg.Queue); err != nil {
		return AllConfig{}, err
	}
	if err := ValidateStoreConfig(cfg.Store); err != nil {
		return AllConfig{}, err
	}
	return cfg, nil
}

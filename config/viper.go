package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// providerFile is the YAML shape of the Model Gateway's per-provider list
// (spec §6.5), too structured for flat env vars.
type providerFile struct {
	Providers          []ProviderConfig  `yaml:"providers"`
	TaskModelOverrides map[string]string `yaml:"task_model_overrides"`
}

// LoadProvidersFile parses a YAML provider list (SPEC_FULL §11's
// "gopkg.in/yaml.v3" domain-stack entry) into a GatewayConfig's structured
// fields, leaving DefaultProvider/SelectionStrategy/FallbackChain to the
// scalar env-driven LoadGatewayConfig.
func LoadProvidersFile(path string) ([]ProviderConfig, map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("config: read providers file: %w", err)
	}
	var pf providerFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, nil, fmt.Errorf("config: parse providers file: %w", err)
	}
	return pf.Providers, pf.TaskModelOverrides, nil
}

// NewViper builds the viper layer that composes flags > env > config file >
// default for the cobra CLI (SPEC_FULL §10.3), mirroring the precedence the
// original composition root used.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("DOCPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("queue.backend", "redis")
	v.SetDefault("queue.max_concurrent_workers", 3)
	v.SetDefault("queue.processing_timeout", "300s")
	v.SetDefault("queue.retry_max_attempts", 3)
	v.SetDefault("queue.stale_job_check_interval", "60s")
	v.SetDefault("store.type", "filesystem")
	v.SetDefault("store.url", "./docpipe-data/documents.db")
	v.SetDefault("gateway.default_provider", "heuristic")
	v.SetDefault("gateway.selection_strategy", "balanced")

	if configFile == "" {
		return v, nil
	}
	v.SetConfigFile(configFile)
	// A missing config file just means "use env/flags/defaults"; any other
	// read error (bad YAML, permissions) is reported to the caller.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}
	return v, nil
}

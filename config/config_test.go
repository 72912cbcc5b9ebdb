package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docpipe/docpipe/config"
)

func TestLoadQueueConfigUsesDefaultsWithoutEnv(t *testing.T) {
	c := config.LoadQueueConfig("DOCPIPE_TEST_EMPTY")
	assert.Equal(t, "redis", c.Backend)
	assert.Equal(t, 3, c.MaxConcurrentWorkers)
	assert.Equal(t, 300*time.Second, c.ProcessingTimeout)
}

func TestLoadQueueConfigHonorsEnvOverride(t *testing.T) {
	t.Setenv("DOCPIPE_TEST_QUEUE_BACKEND", "memory")
	t.Setenv("DOCPIPE_TEST_QUEUE_MAX_CONCURRENT_WORKERS", "7")
	c := config.LoadQueueConfig("DOCPIPE_TEST")
	assert.Equal(t, "memory", c.Backend)
	assert.Equal(t, 7, c.MaxConcurrentWorkers)
}

func TestValidateQueueConfigRejectsUnknownBackend(t *testing.T) {
	c := config.QueueConfig{Backend: "carrier-pigeon", MaxConcurrentWorkers: 1, ProcessingTimeout: time.Second}
	err := config.ValidateQueueConfig(c)
	assert.Error(t, err)
}

func TestLoadProvidersFileParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/providers.yaml"
	require.NoError(t, os.WriteFile(path, []byte(`
providers:
  - id: heuristic
    model_id: heuristic-v1
    enabled: true
    quality_score: 0.3
task_model_overrides:
  summarization: heuristic
`), 0o644))

	providers, overrides, err := config.LoadProvidersFile(path)
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, "heuristic", providers[0].ID)
	assert.Equal(t, "heuristic", overrides["summarization"])
}

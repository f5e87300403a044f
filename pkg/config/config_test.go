package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "nats://localhost:4222", cfg.Broker.URL)
	assert.Equal(t, "localhost", cfg.VectorStore.Host)
	assert.Equal(t, 6334, cfg.VectorStore.Port)
	assert.Equal(t, "sentinel_events", cfg.VectorStore.CollectionName)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, Alerters{"logging"}, cfg.Alerters)
	assert.Equal(t, 300*1e9, float64(cfg.Scheduler.DefaultPollInterval))
	assert.Contains(t, cfg.ReadinessTimeout, "ranker")
}

func TestLoadInvalidLLMProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "cohere")
	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "LLM_PROVIDER")
}

func TestLoadInvalidInteger(t *testing.T) {
	t.Setenv("QDRANT_PORT", "not-a-port")
	_, err := Load()
	assert.Error(t, err)
}

func TestAlertersHas(t *testing.T) {
	a := Alerters{"logging", "fake_message"}
	assert.True(t, a.Has("logging"))
	assert.False(t, a.Has("pagerduty"))
}

func TestLoadRankerConfigRequiresOther(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/ranking.yaml"
	err := writeFile(path, `
ranking_parameters:
  importance_weight: 0.6
  recency_weight: 0.4
category_importance_scores:
  Security: 2.0
recency_decay:
  half_life_hours: 24
  max_score: 1.0
`)
	require.NoError(t, err)

	_, err = LoadRankerConfig(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Other")
}

func TestLoadRankerConfigValid(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/ranking.yaml"
	err := writeFile(path, `
ranking_parameters:
  importance_weight: 0.6
  recency_weight: 0.4
category_importance_scores:
  Security: 2.0
  Other: 1.0
recency_decay:
  half_life_hours: 24
  max_score: 1.0
`)
	require.NoError(t, err)

	cfg, err := LoadRankerConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2.0, cfg.CategoryImportance["Security"])
	assert.Equal(t, 1.0, cfg.CategoryImportance["Other"])
	assert.Equal(t, 24.0, cfg.RecencyDecay.HalfLifeHours)
}

func TestLoadInspectorConfig(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/inspector.yaml"
	err := writeFile(path, `
anomaly_detectors:
  - type: keyword_match
    parameters:
      keywords: [lottery, giveaway]
  - type: content_length
    parameters:
      min_length: 10
      max_length: 10000
`)
	require.NoError(t, err)

	cfg, err := LoadInspectorConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.AnomalyDetectors, 2)
	assert.Equal(t, "keyword_match", cfg.AnomalyDetectors[0].Kind)
	assert.Equal(t, []any{"lottery", "giveaway"}, cfg.AnomalyDetectors[0].Params["keywords"])
	assert.Equal(t, "content_length", cfg.AnomalyDetectors[1].Kind)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

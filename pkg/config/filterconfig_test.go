package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFilterConfigDefault(t *testing.T) {
	cfg, err := LoadFilterConfig("")
	require.NoError(t, err)
	assert.Contains(t, cfg.RelevancePrompt, "{article_content}")
	assert.Contains(t, cfg.CategoryPrompt, "{article_content}")
}

func TestLoadFilterConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"relevance_prompt: \"Is this relevant? {article_content}\"\n"+
			"category_prompt: \"Categorize: {article_content}\"\n",
	), 0o644))

	cfg, err := LoadFilterConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Is this relevant? {article_content}", cfg.RelevancePrompt)
	assert.Equal(t, "Categorize: {article_content}", cfg.CategoryPrompt)
}

func TestLoadFilterConfigMissingField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filter.yaml")
	require.NoError(t, os.WriteFile(path, []byte("relevance_prompt: \"only one field\"\n"), 0o644))

	_, err := LoadFilterConfig(path)
	assert.Error(t, err)
}

func TestLoadFilterConfigMissingFile(t *testing.T) {
	_, err := LoadFilterConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

package config

import (
	"os"

	"github.com/opus-domini/sentinel/pkg/sentinelerr"
	"gopkg.in/yaml.v3"
)

// FilterConfig is the filter worker's YAML configuration file: the two
// prompt templates it sends to the LLM classifier, each interpolating
// {article_content}.
type FilterConfig struct {
	RelevancePrompt string `yaml:"relevance_prompt"`
	CategoryPrompt  string `yaml:"category_prompt"`
}

// defaultFilterConfig is used when no filter config file is supplied;
// the prompts mirror the original implementation's filter_config.yaml.
var defaultFilterConfig = FilterConfig{
	RelevancePrompt: "Is the following article relevant to cybersecurity, infrastructure, or operational news? " +
		"Answer with RELEVANT, POTENTIALLY_RELEVANT, or NOT_RELEVANT.\n\nArticle:\n{article_content}",
	CategoryPrompt: "List the categories (comma-separated) that best describe this article.\n\nArticle:\n{article_content}",
}

// LoadFilterConfig reads a filter config file from path, or returns
// defaultFilterConfig if path is empty.
func LoadFilterConfig(path string) (*FilterConfig, error) {
	if path == "" {
		cfg := defaultFilterConfig
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &sentinelerr.ConfigError{Var: path, Reason: err.Error()}
	}
	var cfg FilterConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &sentinelerr.ConfigError{Var: path, Reason: err.Error()}
	}
	if cfg.RelevancePrompt == "" || cfg.CategoryPrompt == "" {
		return nil, &sentinelerr.ConfigError{Var: path, Reason: "relevance_prompt and category_prompt are both required"}
	}
	return &cfg, nil
}

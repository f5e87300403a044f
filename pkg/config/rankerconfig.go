package config

import (
	"fmt"
	"os"

	"github.com/opus-domini/sentinel/pkg/sentinelerr"
	"gopkg.in/yaml.v3"
)

// RankingParameters weights the two halves of the final score:
// final_score = importance_weight*importance_score + recency_weight*recency_score.
type RankingParameters struct {
	ImportanceWeight float64 `yaml:"importance_weight"`
	RecencyWeight    float64 `yaml:"recency_weight"`
}

// RecencyDecay parameterizes the exponential recency curve:
// recency_score = max_score * 0.5^(age_seconds / (half_life_hours*3600)).
type RecencyDecay struct {
	HalfLifeHours float64 `yaml:"half_life_hours"`
	MaxScore      float64 `yaml:"max_score"`
}

// RankerConfig is the ranker worker's YAML configuration file: per-category
// importance weights plus the scoring parameters above. CategoryImportance
// MUST contain an "Other" entry, used as the fallback weight for any
// category the file doesn't name explicitly.
type RankerConfig struct {
	RankingParameters  RankingParameters  `yaml:"ranking_parameters"`
	CategoryImportance map[string]float64 `yaml:"category_importance_scores"`
	RecencyDecay       RecencyDecay       `yaml:"recency_decay"`
}

// LoadRankerConfig reads and validates a ranker config file from path.
func LoadRankerConfig(path string) (*RankerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &sentinelerr.ConfigError{Var: path, Reason: err.Error()}
	}
	var cfg RankerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &sentinelerr.ConfigError{Var: path, Reason: err.Error()}
	}
	if _, ok := cfg.CategoryImportance["Other"]; !ok {
		return nil, &sentinelerr.ConfigError{Var: path, Reason: "category_importance_scores must define \"Other\""}
	}
	if cfg.RecencyDecay.HalfLifeHours <= 0 {
		return nil, &sentinelerr.ConfigError{Var: path, Reason: fmt.Sprintf("recency_decay.half_life_hours must be positive, got %v", cfg.RecencyDecay.HalfLifeHours)}
	}
	return &cfg, nil
}

// DetectorSpec is one entry of the inspector's anomaly_detectors array: a
// named detector type plus its detector-specific parameters.
type DetectorSpec struct {
	Kind   string         `yaml:"type"`
	Params map[string]any `yaml:"parameters"`
}

// InspectorConfig is the inspector worker's YAML configuration file.
type InspectorConfig struct {
	AnomalyDetectors []DetectorSpec `yaml:"anomaly_detectors"`
}

// LoadInspectorConfig reads and validates an inspector config file from path.
func LoadInspectorConfig(path string) (*InspectorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &sentinelerr.ConfigError{Var: path, Reason: err.Error()}
	}
	var cfg InspectorConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &sentinelerr.ConfigError{Var: path, Reason: err.Error()}
	}
	return &cfg, nil
}

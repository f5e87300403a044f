package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/opus-domini/sentinel/pkg/config"
	"github.com/opus-domini/sentinel/pkg/sentinelerr"
)

// Classifier answers a single prompt with the model's raw text response.
// Both the filter worker (relevance, category) and the inspector's
// llm_anomaly_detector call through this one capability.
type Classifier interface {
	Classify(ctx context.Context, prompt string) (string, error)
}

// New builds the Classifier named by cfg.Provider. It returns a
// ConfigError for any provider other than "openai" or "anthropic", or a
// missing API key, since config.Load already validates the provider name
// but not the key's presence.
func New(cfg config.LLM, httpClient *http.Client) (Classifier, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	switch cfg.Provider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, &sentinelerr.ConfigError{Var: "OPENAI_API_KEY", Reason: "required when LLM_PROVIDER=openai"}
		}
		return &openAIClassifier{model: cfg.ModelName, apiKey: cfg.OpenAIKey, http: httpClient}, nil
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, &sentinelerr.ConfigError{Var: "ANTHROPIC_API_KEY", Reason: "required when LLM_PROVIDER=anthropic"}
		}
		return &anthropicClassifier{model: cfg.ModelName, apiKey: cfg.AnthropicKey, http: httpClient}, nil
	default:
		return nil, &sentinelerr.ConfigError{Var: "LLM_PROVIDER", Reason: fmt.Sprintf("unsupported provider %q", cfg.Provider)}
	}
}

type openAIClassifier struct {
	model  string
	apiKey string
	http   *http.Client
}

func (c *openAIClassifier) Classify(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", &sentinelerr.DependencyError{Dependency: "openai", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.openai.com/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &sentinelerr.DependencyError{Dependency: "openai", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &sentinelerr.DependencyError{Dependency: "openai", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &sentinelerr.DependencyError{Dependency: "openai", Err: err}
	}
	if resp.StatusCode >= 400 {
		return "", &sentinelerr.DependencyError{Dependency: "openai", Err: fmt.Errorf("status %d: %s", resp.StatusCode, data)}
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", &sentinelerr.DependencyError{Dependency: "openai", Err: err}
	}
	if len(parsed.Choices) == 0 {
		return "", &sentinelerr.DependencyError{Dependency: "openai", Err: fmt.Errorf("empty choices in response")}
	}
	return parsed.Choices[0].Message.Content, nil
}

type anthropicClassifier struct {
	model  string
	apiKey string
	http   *http.Client
}

func (c *anthropicClassifier) Classify(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model":      c.model,
		"max_tokens": 256,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", &sentinelerr.DependencyError{Dependency: "anthropic", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.anthropic.com/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", &sentinelerr.DependencyError{Dependency: "anthropic", Err: err}
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &sentinelerr.DependencyError{Dependency: "anthropic", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &sentinelerr.DependencyError{Dependency: "anthropic", Err: err}
	}
	if resp.StatusCode >= 400 {
		return "", &sentinelerr.DependencyError{Dependency: "anthropic", Err: fmt.Errorf("status %d: %s", resp.StatusCode, data)}
	}

	var parsed struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", &sentinelerr.DependencyError{Dependency: "anthropic", Err: err}
	}
	if len(parsed.Content) == 0 {
		return "", &sentinelerr.DependencyError{Dependency: "anthropic", Err: fmt.Errorf("empty content in response")}
	}
	return parsed.Content[0].Text, nil
}

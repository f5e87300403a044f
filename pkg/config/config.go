// Package config loads Sentinel's environment-variable configuration
// surface. Every pipeline service reads a subset of these variables at
// startup; an unparsable value is a ConfigError and fatal before any
// broker or store connection is attempted.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/opus-domini/sentinel/pkg/sentinelerr"
)

// Broker holds NATS JetStream connection settings.
type Broker struct {
	URL                  string
	ConnectTimeout       time.Duration
	ReconnectTimeWait    time.Duration
	MaxReconnectAttempts int
}

// VectorStore holds Qdrant connection and collection settings.
type VectorStore struct {
	Host           string
	Port           int
	CollectionName string
	EmbeddingModel string
}

// Registry holds the Source registry's database connection string.
type Registry struct {
	DatabaseURL string
}

// LLM holds the pluggable classifier provider settings.
type LLM struct {
	Provider     string // "openai" | "anthropic"
	ModelName    string
	OpenAIKey    string
	AnthropicKey string
}

// Scheduler holds the scheduler's default polling cadence.
type Scheduler struct {
	DefaultPollInterval time.Duration
}

// Guardian holds the dead-letter alerter settings.
type Guardian struct {
	FakeChatWebhookURL string
}

// Alerters is the parsed ALERTERS csv, e.g. ["logging", "fake_message"].
type Alerters []string

// Has reports whether name is present in the alerter list.
func (a Alerters) Has(name string) bool {
	for _, n := range a {
		if n == name {
			return true
		}
	}
	return false
}

// Config aggregates every env-derived setting a Sentinel service may need.
// Individual cmd/sentinel subcommands read only the fields relevant to the
// service they start.
type Config struct {
	Broker      Broker
	VectorStore VectorStore
	Registry    Registry
	LLM         LLM
	Scheduler   Scheduler
	Alerters    Alerters
	Guardian    Guardian

	// ReadinessTimeout, keyed by component name (ranker, filter, inspector,
	// connector, api, guardian, web, scheduler), per §6's
	// "<COMPONENT>_READINESS_TIME_OUT" variables.
	ReadinessTimeout map[string]time.Duration
}

// Load reads the environment and returns a fully populated Config, or a
// ConfigError describing the first malformed variable encountered.
func Load() (*Config, error) {
	cfg := &Config{
		ReadinessTimeout: make(map[string]time.Duration),
	}

	pollInterval, err := durationSecondsEnv("SCHEDULER_DEFAULT_POLL_INTERVAL", 300)
	if err != nil {
		return nil, err
	}
	cfg.Scheduler.DefaultPollInterval = pollInterval

	for _, component := range []string{
		"RANKER", "FILTER", "INSPECTOR", "CONNECTOR", "API", "GUARDIAN", "WEB", "SCHEDULER",
	} {
		d, err := durationMillisEnv(component+"_READINESS_TIME_OUT", 500)
		if err != nil {
			return nil, err
		}
		cfg.ReadinessTimeout[strings.ToLower(component)] = d
	}

	cfg.Broker.URL = envOr("NATS_URL", "nats://localhost:4222")
	if cfg.Broker.ConnectTimeout, err = durationSecondsEnv("NATS_CONNECT_TIMEOUT", 5); err != nil {
		return nil, err
	}
	if cfg.Broker.ReconnectTimeWait, err = durationSecondsEnv("NATS_RECONNECT_TIME_WAIT", 2); err != nil {
		return nil, err
	}
	if cfg.Broker.MaxReconnectAttempts, err = intEnv("NATS_MAX_RECONNECT_ATTEMPTS", 60); err != nil {
		return nil, err
	}

	cfg.VectorStore.Host = envOr("QDRANT_HOST", "localhost")
	if cfg.VectorStore.Port, err = intEnv("QDRANT_PORT", 6334); err != nil {
		return nil, err
	}
	cfg.VectorStore.CollectionName = envOr("QDRANT_COLLECTION_NAME", "sentinel_events")
	cfg.VectorStore.EmbeddingModel = envOr("EMBEDDING_MODEL_NAME", "all-MiniLM-L6-v2")

	cfg.Registry.DatabaseURL = os.Getenv("DATABASE_URL")

	cfg.LLM.Provider = envOr("LLM_PROVIDER", "openai")
	if cfg.LLM.Provider != "openai" && cfg.LLM.Provider != "anthropic" {
		return nil, &sentinelerr.ConfigError{Var: "LLM_PROVIDER", Reason: fmt.Sprintf("must be openai or anthropic, got %q", cfg.LLM.Provider)}
	}
	cfg.LLM.ModelName = envOr("LLM_MODEL_NAME", "gpt-4o-mini")
	cfg.LLM.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	cfg.LLM.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")

	alertersRaw := envOr("ALERTERS", "logging")
	for _, a := range strings.Split(alertersRaw, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			cfg.Alerters = append(cfg.Alerters, a)
		}
	}

	cfg.Guardian.FakeChatWebhookURL = os.Getenv("FAKE_CHAT_WEBHOOK_URL")

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &sentinelerr.ConfigError{Var: key, Reason: err.Error()}
	}
	return n, nil
}

func durationSecondsEnv(key string, fallbackSeconds int) (time.Duration, error) {
	n, err := intEnv(key, fallbackSeconds)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

func durationMillisEnv(key string, fallbackMillis int) (time.Duration, error) {
	n, err := intEnv(key, fallbackMillis)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Millisecond, nil
}

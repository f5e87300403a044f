package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/opus-domini/sentinel/pkg/broker"
	"github.com/opus-domini/sentinel/pkg/config"
	"github.com/opus-domini/sentinel/pkg/filter"
	"github.com/opus-domini/sentinel/pkg/health"
	"github.com/opus-domini/sentinel/pkg/llm"
	"github.com/opus-domini/sentinel/pkg/log"
	"github.com/opus-domini/sentinel/pkg/vectorstore"
)

const embeddingDimensions = 384

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Run the relevance+category filter worker",
	RunE:  runFilter,
}

func init() {
	filterCmd.Flags().String("addr", ":8083", "Readiness beacon listen address")
	filterCmd.Flags().String("config", "", "Filter prompt config YAML path (defaults built in if unset)")
}

func runFilter(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	filterCfg, err := config.LoadFilterConfig(configPath)
	if err != nil {
		return fmt.Errorf("load filter config: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	b, err := broker.Connect(ctx, cfg.Broker)
	if err != nil {
		return fmt.Errorf("connect broker: %w", err)
	}
	defer b.Close()

	store, err := vectorstore.Connect(cfg.VectorStore, vectorstore.NewStubEmbedder(embeddingDimensions))
	if err != nil {
		return fmt.Errorf("connect vector store: %w", err)
	}
	defer store.Close()
	if err := store.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	classifier, err := llm.New(cfg.LLM, nil)
	if err != nil {
		return fmt.Errorf("build llm classifier: %w", err)
	}

	worker := filter.New(b, store, classifier, *filterCfg)
	if err := worker.EnsureStreams(ctx); err != nil {
		return fmt.Errorf("ensure streams: %w", err)
	}

	beacon := health.NewBeacon(Version, cfg.ReadinessTimeout["filter"])
	beacon.Register("broker", health.NewTCPChecker(b.ConnectedAddr()))
	beacon.Register("vectorstore", health.NewTCPChecker(fmt.Sprintf("%s:%d", cfg.VectorStore.Host, cfg.VectorStore.Port)))
	if cfg.LLM.Provider == "openai" {
		beacon.Register("llm", health.NewHTTPChecker("https://api.openai.com/v1/models").
			WithHeader("Authorization", "Bearer "+cfg.LLM.OpenAIKey))
	} else {
		beacon.Register("llm", health.NewHTTPChecker("https://api.anthropic.com/v1/models").
			WithHeader("x-api-key", cfg.LLM.AnthropicKey).
			WithHeader("anthropic-version", "2023-06-01"))
	}

	errCh := make(chan error, 2)
	go func() { errCh <- worker.Run(ctx) }()
	go func() { errCh <- beacon.Start(ctx, addr) }()

	log.WithComponent("filter").Info().Str("addr", addr).Msg("filter started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.WithComponent("filter").Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			log.WithComponent("filter").Error().Err(err).Msg("filter stopped unexpectedly")
		}
	}

	cancel()
	log.WithComponent("filter").Info().Msg("shutdown complete")
	return nil
}

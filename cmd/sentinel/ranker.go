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
	"github.com/opus-domini/sentinel/pkg/health"
	"github.com/opus-domini/sentinel/pkg/log"
	"github.com/opus-domini/sentinel/pkg/ranker"
	"github.com/opus-domini/sentinel/pkg/vectorstore"
)

var rankerCmd = &cobra.Command{
	Use:   "ranker",
	Short: "Run the importance/recency scoring worker",
	RunE:  runRanker,
}

func init() {
	rankerCmd.Flags().String("addr", ":8084", "Readiness beacon listen address")
	rankerCmd.Flags().String("config", "./config/ranker.yaml", "Ranker scoring config YAML path")
}

func runRanker(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	rankerCfg, err := config.LoadRankerConfig(configPath)
	if err != nil {
		return fmt.Errorf("load ranker config: %w", err)
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

	worker := ranker.New(b, store, *rankerCfg)
	if err := worker.EnsureStreams(ctx); err != nil {
		return fmt.Errorf("ensure streams: %w", err)
	}

	beacon := health.NewBeacon(Version, cfg.ReadinessTimeout["ranker"])
	beacon.Register("broker", health.NewTCPChecker(b.ConnectedAddr()))
	beacon.Register("vectorstore", health.NewTCPChecker(fmt.Sprintf("%s:%d", cfg.VectorStore.Host, cfg.VectorStore.Port)))

	errCh := make(chan error, 2)
	go func() { errCh <- worker.Run(ctx) }()
	go func() { errCh <- beacon.Start(ctx, addr) }()

	log.WithComponent("ranker").Info().Str("addr", addr).Msg("ranker started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.WithComponent("ranker").Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			log.WithComponent("ranker").Error().Err(err).Msg("ranker stopped unexpectedly")
		}
	}

	cancel()
	log.WithComponent("ranker").Info().Msg("shutdown complete")
	return nil
}

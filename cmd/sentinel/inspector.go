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
	"github.com/opus-domini/sentinel/pkg/inspector"
	"github.com/opus-domini/sentinel/pkg/llm"
	"github.com/opus-domini/sentinel/pkg/log"
	"github.com/opus-domini/sentinel/pkg/vectorstore"
)

var inspectorCmd = &cobra.Command{
	Use:   "inspector",
	Short: "Run the anomaly detection worker",
	RunE:  runInspector,
}

func init() {
	inspectorCmd.Flags().String("addr", ":8085", "Readiness beacon listen address")
	inspectorCmd.Flags().String("config", "./config/inspector.yaml", "Inspector detector config YAML path")
}

func runInspector(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	inspectorCfg, err := config.LoadInspectorConfig(configPath)
	if err != nil {
		return fmt.Errorf("load inspector config: %w", err)
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

	var classifier llm.Classifier
	for _, spec := range inspectorCfg.AnomalyDetectors {
		if spec.Kind == "llm_anomaly_detector" {
			classifier, err = llm.New(cfg.LLM, nil)
			if err != nil {
				return fmt.Errorf("build llm classifier: %w", err)
			}
			break
		}
	}

	detectors, err := inspector.BuildDetectors(inspectorCfg.AnomalyDetectors, classifier)
	if err != nil {
		return fmt.Errorf("build detectors: %w", err)
	}

	worker := inspector.New(b, store, detectors)
	if err := worker.EnsureStreams(ctx); err != nil {
		return fmt.Errorf("ensure streams: %w", err)
	}

	beacon := health.NewBeacon(Version, cfg.ReadinessTimeout["inspector"])
	beacon.Register("broker", health.NewTCPChecker(b.ConnectedAddr()))
	beacon.Register("vectorstore", health.NewTCPChecker(fmt.Sprintf("%s:%d", cfg.VectorStore.Host, cfg.VectorStore.Port)))

	errCh := make(chan error, 2)
	go func() { errCh <- worker.Run(ctx) }()
	go func() { errCh <- beacon.Start(ctx, addr) }()

	log.WithComponent("inspector").Info().Str("addr", addr).Msg("inspector started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.WithComponent("inspector").Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			log.WithComponent("inspector").Error().Err(err).Msg("inspector stopped unexpectedly")
		}
	}

	cancel()
	log.WithComponent("inspector").Info().Msg("shutdown complete")
	return nil
}

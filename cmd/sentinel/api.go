package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/opus-domini/sentinel/pkg/broker"
	"github.com/opus-domini/sentinel/pkg/config"
	"github.com/opus-domini/sentinel/pkg/health"
	"github.com/opus-domini/sentinel/pkg/log"
	"github.com/opus-domini/sentinel/pkg/retrieval"
	"github.com/opus-domini/sentinel/pkg/vectorstore"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Run the read-side retrieval and ingest HTTP API",
	RunE:  runAPI,
}

func init() {
	apiCmd.Flags().String("addr", ":8080", "Retrieval API listen address")
	apiCmd.Flags().String("beacon-addr", ":8087", "Readiness beacon listen address")
}

func runAPI(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	beaconAddr, _ := cmd.Flags().GetString("beacon-addr")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
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

	service := retrieval.New(store, b)
	if err := service.EnsureStreams(ctx); err != nil {
		return fmt.Errorf("ensure streams: %w", err)
	}

	beacon := health.NewBeacon(Version, cfg.ReadinessTimeout["api"])
	beacon.Register("broker", health.NewTCPChecker(b.ConnectedAddr()))
	beacon.Register("vectorstore", health.NewTCPChecker(fmt.Sprintf("%s:%d", cfg.VectorStore.Host, cfg.VectorStore.Port)))

	server := &http.Server{
		Addr:         addr,
		Handler:      service.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() { errCh <- server.ListenAndServe() }()
	go func() { errCh <- beacon.Start(ctx, beaconAddr) }()

	log.WithComponent("api").Info().Str("addr", addr).Str("beacon_addr", beaconAddr).Msg("retrieval api started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.WithComponent("api").Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.WithComponent("api").Error().Err(err).Msg("api server stopped unexpectedly")
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)

	log.WithComponent("api").Info().Msg("shutdown complete")
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/opus-domini/sentinel/pkg/broker"
	"github.com/opus-domini/sentinel/pkg/config"
	"github.com/opus-domini/sentinel/pkg/connector"
	"github.com/opus-domini/sentinel/pkg/dedup"
	"github.com/opus-domini/sentinel/pkg/health"
	"github.com/opus-domini/sentinel/pkg/log"
)

var connectorCmd = &cobra.Command{
	Use:   "connector",
	Short: "Run the scrape/dedup/emit connector",
	RunE:  runConnector,
}

func init() {
	connectorCmd.Flags().String("addr", ":8082", "Readiness beacon listen address")
	connectorCmd.Flags().String("data-dir", "./sentinel-connector-data", "Dedup table data directory")
	connectorCmd.Flags().Duration("scrape-timeout", 15*time.Second, "HTTP scraper request timeout")
}

func runConnector(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	scrapeTimeout, _ := cmd.Flags().GetDuration("scrape-timeout")

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

	store, err := dedup.Open(dataDir)
	if err != nil {
		return fmt.Errorf("open dedup store: %w", err)
	}
	defer store.Close()

	scraper := connector.NewHTTPScraper(scrapeTimeout)
	worker := connector.New(b, store, scraper)
	if err := worker.EnsureStreams(ctx); err != nil {
		return fmt.Errorf("ensure streams: %w", err)
	}

	beacon := health.NewBeacon(Version, cfg.ReadinessTimeout["connector"])
	beacon.Register("broker", health.NewTCPChecker(b.ConnectedAddr()))

	errCh := make(chan error, 2)
	go func() { errCh <- worker.Run(ctx) }()
	go func() { errCh <- beacon.Start(ctx, addr) }()

	log.WithComponent("connector").Info().Str("addr", addr).Str("data_dir", dataDir).Msg("connector started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.WithComponent("connector").Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			log.WithComponent("connector").Error().Err(err).Msg("connector stopped unexpectedly")
		}
	}

	cancel()
	log.WithComponent("connector").Info().Msg("shutdown complete")
	return nil
}

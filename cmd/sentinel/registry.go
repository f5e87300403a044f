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
	"github.com/opus-domini/sentinel/pkg/registrydb"
	"github.com/opus-domini/sentinel/pkg/sourceapi"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Run the Source CRUD HTTP API",
	RunE:  runRegistry,
}

func init() {
	registryCmd.Flags().String("addr", ":8088", "Source CRUD API listen address")
	registryCmd.Flags().String("beacon-addr", ":8089", "Readiness beacon listen address")
}

func runRegistry(cmd *cobra.Command, _ []string) error {
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

	reg, err := registrydb.Connect(ctx, cfg.Registry.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect registry db: %w", err)
	}
	defer reg.Close()

	service := sourceapi.New(reg, b)
	if err := service.EnsureStreams(ctx); err != nil {
		return fmt.Errorf("ensure streams: %w", err)
	}

	beacon := health.NewBeacon(Version, cfg.ReadinessTimeout["web"])
	beacon.Register("broker", health.NewTCPChecker(b.ConnectedAddr()))
	beacon.Register("registry", health.NewTCPChecker(reg.ConnectedAddr()))

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

	log.WithComponent("registry").Info().Str("addr", addr).Str("beacon_addr", beaconAddr).Msg("source registry api started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.WithComponent("registry").Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.WithComponent("registry").Error().Err(err).Msg("registry server stopped unexpectedly")
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)

	log.WithComponent("registry").Info().Msg("shutdown complete")
	return nil
}

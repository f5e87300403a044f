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
	"github.com/opus-domini/sentinel/pkg/registrydb"
	"github.com/opus-domini/sentinel/pkg/scheduler"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the source polling scheduler",
	RunE:  runScheduler,
}

func init() {
	schedulerCmd.Flags().String("addr", ":8081", "Readiness beacon listen address")
}

func runScheduler(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")

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

	sched := scheduler.New(reg, b, cfg.Scheduler)
	if err := sched.EnsureStreams(ctx); err != nil {
		return fmt.Errorf("ensure streams: %w", err)
	}

	beacon := health.NewBeacon(Version, cfg.ReadinessTimeout["scheduler"])
	beacon.Register("broker", health.NewTCPChecker(b.ConnectedAddr()))
	beacon.Register("registry", health.NewTCPChecker(reg.ConnectedAddr()))

	errCh := make(chan error, 2)
	go func() { errCh <- sched.Start(ctx) }()
	go func() { errCh <- beacon.Start(ctx, addr) }()

	log.WithComponent("scheduler").Info().Str("addr", addr).Msg("scheduler started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.WithComponent("scheduler").Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			log.WithComponent("scheduler").Error().Err(err).Msg("scheduler stopped unexpectedly")
		}
	}

	cancel()
	log.WithComponent("scheduler").Info().Msg("shutdown complete")
	return nil
}

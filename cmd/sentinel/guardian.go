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
	"github.com/opus-domini/sentinel/pkg/guardian"
	"github.com/opus-domini/sentinel/pkg/health"
	"github.com/opus-domini/sentinel/pkg/log"
)

var guardianCmd = &cobra.Command{
	Use:   "guardian",
	Short: "Run the dead-letter advisory consumer and alerters",
	RunE:  runGuardian,
}

func init() {
	guardianCmd.Flags().String("addr", ":8086", "Readiness beacon listen address")
}

func runGuardian(cmd *cobra.Command, _ []string) error {
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

	var alerters []guardian.Alerter
	if cfg.Alerters.Has("logging") {
		alerters = append(alerters, guardian.NewLogAlerter())
	}
	if cfg.Alerters.Has("fake_message") {
		chatAlerter, err := guardian.NewFakeChatAlerter(cfg.Guardian.FakeChatWebhookURL, &http.Client{Timeout: 10 * time.Second})
		if err != nil {
			return fmt.Errorf("build fake chat alerter: %w", err)
		}
		alerters = append(alerters, chatAlerter)
	}
	if len(alerters) == 0 {
		return fmt.Errorf("no alerters configured, set ALERTERS to at least one of: logging, fake_message")
	}

	worker := guardian.New(b, alerters)
	if err := worker.EnsureStreams(ctx); err != nil {
		return fmt.Errorf("ensure streams: %w", err)
	}

	beacon := health.NewBeacon(Version, cfg.ReadinessTimeout["guardian"])
	beacon.Register("broker", health.NewTCPChecker(b.ConnectedAddr()))

	errCh := make(chan error, 2)
	go func() { errCh <- worker.Run(ctx) }()
	go func() { errCh <- beacon.Start(ctx, addr) }()

	log.WithComponent("guardian").Info().Str("addr", addr).Msg("guardian started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.WithComponent("guardian").Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			log.WithComponent("guardian").Error().Err(err).Msg("guardian stopped unexpectedly")
		}
	}

	cancel()
	log.WithComponent("guardian").Info().Msg("shutdown complete")
	return nil
}

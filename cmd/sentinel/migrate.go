package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opus-domini/sentinel/pkg/config"
	"github.com/opus-domini/sentinel/pkg/log"
	"github.com/opus-domini/sentinel/pkg/registrydb"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bootstrap the Source registry database schema",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := registrydb.Migrate(cmd.Context(), cfg.Registry.DatabaseURL); err != nil {
		return fmt.Errorf("migrate registry schema: %w", err)
	}

	log.WithComponent("migrate").Info().Msg("registry schema up to date")
	return nil
}

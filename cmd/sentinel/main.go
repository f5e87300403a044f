package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opus-domini/sentinel/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Sentinel - a newsfeed processing pipeline",
	Long: `Sentinel ingests news sources, filters and ranks articles with a
pluggable LLM classifier, scores them for recency and importance, flags
anomalies, and serves the result over a read-side retrieval API.

Each stage of the pipeline is a subcommand of this single binary.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Sentinel version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(schedulerCmd)
	rootCmd.AddCommand(connectorCmd)
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(rankerCmd)
	rootCmd.AddCommand(inspectorCmd)
	rootCmd.AddCommand(guardianCmd)
	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(registryCmd)
	rootCmd.AddCommand(migrateCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

// Command engine ingests job postings from company career sites and serves the
// operator API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	flagDataDir string
	flagConfig  string
)

var rootCmd = &cobra.Command{
	Use:           "engine",
	Short:         "ATS job ingestion engine",
	Long:          "engine pulls postings from Greenhouse, Lever and Workday career sites, normalizes them and keeps one row per posting.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Data directory (default $JOBINGEST_DATA_DIR or ./data)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default <data-dir>/config.yml)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

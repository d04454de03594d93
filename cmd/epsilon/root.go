package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/epsilon/pkg/cli"
)

var (
	// Global flags
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "epsilon",
	Short: "Epsilon - differential privacy budget accountant",
	Long: `Epsilon guards a dataset behind a privacy budget. Every statistic released
from the dataset is charged against the budget, and requests are clamped to
whatever budget remains.

It provides:
  - Budget accounting for noisy means, counts and sums
  - An HTTP API for releases, filters, resets and the audit ledger
  - A persistent ledger of every charge and reset attempt
  - Prometheus metrics, OpenTelemetry tracing and health checks`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format (text, json, yaml, csv)")
}

// formatter resolves the --output flag.
func formatter() (cli.Formatter, error) {
	format, err := cli.ParseOutputFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return cli.NewFormatter(format), nil
}

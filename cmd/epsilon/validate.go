package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mercator-hq/epsilon/pkg/cli"
	"mercator-hq/epsilon/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load the configuration file with environment overrides and report every
invalid field.

Examples:
  epsilon validate --config /etc/epsilon/config.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return validateConfig(cmd.OutOrStdout(), cfgFile)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(w io.Writer, path string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(w, "✗ %s is invalid:\n", path)
			for _, fe := range verr.Errors {
				fmt.Fprintf(w, "  - %s\n", fe.Error())
			}
			return cli.NewConfigError(path, fmt.Sprintf("%d invalid field(s)", len(verr.Errors)))
		}
		return cli.NewConfigError(path, err.Error())
	}

	fmt.Fprintf(w, "✓ %s is valid\n", path)
	fmt.Fprintf(w, "  budget:    %v\n", cfg.Accountant.TotalBudget)
	fmt.Fprintf(w, "  mechanism: %s\n", cfg.Mechanism.Kind)
	fmt.Fprintf(w, "  ledger:    %s\n", cfg.Ledger.Backend)
	fmt.Fprintf(w, "  listen:    %s\n", cfg.Server.ListenAddress)
	return nil
}

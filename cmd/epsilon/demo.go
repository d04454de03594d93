package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"mercator-hq/epsilon/pkg/accountant"
	"mercator-hq/epsilon/pkg/mechanism"
)

// demoData and demoBudget seed the walkthrough accountant.
var (
	demoData   = []float64{10, 20, 30, 40}
	demoBudget = 10.0
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Walk through two mean releases against a small budget",
	Long: `Build an accountant over [10, 20, 30, 40] with a budget of 10 and release
two noisy means. The first costs 0.65. The second asks for 40 and is clamped
to the 9.35 that remains, leaving the budget fully used.

Examples:
  epsilon demo`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDemo(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

func runDemo(ctx context.Context, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	engine, err := mechanism.NewNoiseEngine(mechanism.NoiseConfig{Kind: mechanism.Laplace})
	if err != nil {
		return err
	}

	acct, err := accountant.New(ctx, engine, demoData,
		accountant.WithTotalBudget(demoBudget),
		accountant.WithLogger(slog.New(slog.DiscardHandler)),
	)
	if err != nil {
		return err
	}
	defer acct.Close()

	params := accountant.MeanParams{Lower: 0, Upper: 40, N: len(demoData)}
	for _, cost := range []float64{0.65, 40} {
		mean, err := acct.InternalMean(ctx, cost, params)
		if err != nil {
			return fmt.Errorf("mean at cost %v: %w", cost, err)
		}
		fmt.Fprintf(w, "mean(cost=%v) = %.4f\n", cost, mean)
		fmt.Fprintf(w, "used budget: %v of %v\n", acct.Used(), acct.Total())
	}
	return nil
}

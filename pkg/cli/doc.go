/*
Package cli provides command-line helpers for the epsilon command.

Output Formatting:

Commands print results as text, JSON, YAML or CSV, selected with --output:

	format, err := cli.ParseOutputFormat(flagValue)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(os.Stdout, result)

Results that implement Tabular render as an aligned table in text mode and
are the only values accepted by the CSV formatter.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli

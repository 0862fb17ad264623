/*
Package cli provides command-line helpers shared by the healthimpact
commands: output formatting, progress reporting, signal handling and exit
codes.

Output Formatting:

Commands print results as text, JSON or CSV. Tabular results use Table so
every format can render them:

	table := &cli.Table{Headers: []string{"symbol", "name"}}
	table.AddRow("As", "Arsenic")
	format, err := cli.ParseOutputFormat(flagValue)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(os.Stdout, table)

Progress Reporting:

Batch evaluation reports progress on stderr so stdout stays parseable:

	progress := cli.NewProgressReporter(os.Stderr, "samples")
	progress.Start(int64(len(samples)))
	for i := range samples {
		// evaluate
		progress.Update(int64(i + 1))
	}
	progress.Finish()

Exit Codes:

ExitCode maps ConfigError to 2 and InputError to 3; every other error
exits 1.
*/
package cli

/*
Package cli holds helpers shared by the porthole commands.

Output: results that implement Tabular print as aligned tables in text mode
and as indented JSON with --output json:

	formatter := cli.NewFormatter(format)
	if err := formatter.FormatTo(cmd.OutOrStdout(), result); err != nil {
		return err
	}

Errors: ConfigError and CommandError wrap failures so that main can choose an
exit code with ExitCode.

Signals: SetupSignalHandler cancels the serve context on SIGINT or SIGTERM,
and ReloadSignals delivers SIGHUP for configuration reloads.
*/
package cli

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/porthole/pkg/cli"
	"mercator-hq/porthole/pkg/config"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "porthole",
	Short: "Porthole - token-authenticated proxy for user containers",
	Long: `Porthole forwards HTTP requests to per-user containers.

Each proxy route maps <prefix>/<identity>/<path> to the host port Docker
publishes for a fixed container port. Access is controlled by a per-supervisor
proxy token that users read and rotate through the token endpoint.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "porthole.yaml", "config file path")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format: text, json")
}

// loadConfig reads the config file with PORTHOLE_* environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}
	return cfg, nil
}

func formatter() (cli.Formatter, error) {
	format, err := cli.ParseOutputFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return cli.NewFormatter(format), nil
}

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mercator-hq/porthole/pkg/cli"
	"mercator-hq/porthole/pkg/supervisor"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and supervisor directory",
	Long: `Load the config file (with PORTHOLE_* overrides) and the supervisor
directory it points at, and report what the server would mount.

Exit status is 2 when the configuration is invalid and 1 when the directory
cannot be loaded.

Examples:
  porthole validate --config porthole.yaml
  porthole validate -o json`,
	Args: cobra.NoArgs,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

type routeSummary struct {
	Prefix string `json:"prefix"`
	Port   int    `json:"port"`
}

type validationSummary struct {
	Routes       []routeSummary          `json:"routes"`
	TokenRoute   string                  `json:"token_route"`
	StateBackend string                  `json:"state_backend"`
	Supervisors  map[supervisor.Kind]int `json:"supervisors"`
	APIKeys      int                     `json:"api_keys"`
}

func (s validationSummary) Table() cli.Table {
	t := cli.Table{Headers: []string{"SETTING", "VALUE"}}
	for _, r := range s.Routes {
		t.Rows = append(t.Rows, []string{"route", fmt.Sprintf("%s/ -> container port %d", r.Prefix, r.Port)})
	}
	t.Rows = append(t.Rows,
		[]string{"token_route", s.TokenRoute},
		[]string{"state_backend", s.StateBackend},
		[]string{"api_keys", strconv.Itoa(s.APIKeys)},
	)
	for _, kind := range []supervisor.Kind{supervisor.KindContainer, supervisor.KindTokenized, supervisor.KindProcess} {
		t.Rows = append(t.Rows, []string{"supervisors." + string(kind), strconv.Itoa(s.Supervisors[kind])})
	}
	return t
}

func validateConfig(cmd *cobra.Command, _ []string) error {
	f, err := formatter()
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	specs, err := supervisor.LoadSpecs(cfg.Directory.Path)
	if err != nil {
		return cli.NewCommandError("validate", err)
	}

	summary := validationSummary{
		TokenRoute:   cfg.Proxy.TokenRoute,
		StateBackend: cfg.State.Backend,
		Supervisors:  make(map[supervisor.Kind]int),
		APIKeys:      len(cfg.Security.APIKeys),
	}
	for _, r := range cfg.Proxy.Routes {
		summary.Routes = append(summary.Routes, routeSummary{Prefix: r.Prefix, Port: r.Port})
	}
	for _, spec := range specs {
		summary.Supervisors[spec.Kind]++
	}

	return f.FormatTo(cmd.OutOrStdout(), summary)
}

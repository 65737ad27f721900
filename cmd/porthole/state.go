package main

import (
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/porthole/pkg/cli"
	"mercator-hq/porthole/pkg/supervisor"
	"mercator-hq/porthole/pkg/token"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect persisted supervisor state",
}

var stateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored supervisor records",
	Long: `List every supervisor record in the state backend with its container
and token mode. Secrets are never printed.

Examples:
  porthole state list
  porthole state list -o json`,
	Args: cobra.NoArgs,
	RunE: listState,
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.AddCommand(stateListCmd)
}

type stateEntry struct {
	Identity    string    `json:"identity"`
	Supervisor  string    `json:"supervisor"`
	ContainerID string    `json:"container_id,omitempty"`
	TokenMode   string    `json:"token_mode"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type stateList []stateEntry

func (l stateList) Table() cli.Table {
	t := cli.Table{Headers: []string{"IDENTITY", "SUPERVISOR", "CONTAINER", "TOKEN", "UPDATED"}}
	for _, e := range l {
		container := e.ContainerID
		if container == "" {
			container = "-"
		}
		t.Rows = append(t.Rows, []string{
			e.Identity,
			displayName(e.Supervisor),
			container,
			e.TokenMode,
			e.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return t
}

func listState(cmd *cobra.Command, _ []string) error {
	f, err := formatter()
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	backend, err := openPersistentBackend(&cfg.State)
	if err != nil {
		return err
	}
	defer backend.Close()

	records, err := backend.List(cmd.Context())
	if err != nil {
		return cli.NewCommandError("state list", err)
	}

	list := make(stateList, 0, len(records))
	for _, rec := range records {
		mode := "invalid"
		if s, err := token.Restore(rec.State); err == nil {
			mode = tokenMode(s)
		}
		list = append(list, stateEntry{
			Identity:    rec.Identity,
			Supervisor:  rec.Supervisor,
			ContainerID: supervisor.ContainerIDFromState(rec.State),
			TokenMode:   mode,
			UpdatedAt:   rec.UpdatedAt,
		})
	}
	return f.FormatTo(cmd.OutOrStdout(), list)
}

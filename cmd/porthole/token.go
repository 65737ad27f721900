package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/porthole/pkg/cli"
	"mercator-hq/porthole/pkg/config"
	"mercator-hq/porthole/pkg/proxy"
	"mercator-hq/porthole/pkg/supervisor/store"
	"mercator-hq/porthole/pkg/token"
)

var tokenFlags struct {
	name   string
	reveal bool
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Inspect or change persisted proxy tokens",
	Long: `Read and change the proxy token stored for a supervisor.

These commands edit the state backend directly. A running server keeps its
own copy of each token and overwrites the stored value on its next snapshot,
so use the token endpoint while the server is running and these commands
while it is stopped.`,
}

var tokenShowCmd = &cobra.Command{
	Use:   "show IDENTITY",
	Short: "Show the stored token mode of a supervisor",
	Long: `Show the stored token mode of a supervisor. The secret itself is only
printed with --reveal.

Examples:
  porthole token show alice
  porthole token show alice --name gpu --reveal -o json`,
	Args: cobra.ExactArgs(1),
	RunE: showToken,
}

var tokenSetCmd = &cobra.Command{
	Use:   "set IDENTITY disabled|allow_all|random",
	Short: "Change the stored token of a supervisor",
	Long: `Change the stored token of a supervisor, as a POST to the token
endpoint would.

  disabled   deny all proxied requests
  allow_all  allow every proxied request
  random     require a freshly generated secret

Examples:
  porthole token set alice random
  porthole token set alice disabled --name gpu`,
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{proxy.CommandDisabled, proxy.CommandAllowAll, proxy.CommandRandom},
	RunE:      setToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenShowCmd, tokenSetCmd)

	tokenCmd.PersistentFlags().StringVar(&tokenFlags.name, "name", "", "supervisor name (default supervisor when empty)")
	tokenShowCmd.Flags().BoolVar(&tokenFlags.reveal, "reveal", false, "print the secret")
	tokenSetCmd.Flags().BoolVar(&tokenFlags.reveal, "reveal", false, "print the new secret")
}

type tokenView struct {
	Identity   string  `json:"identity"`
	Supervisor string  `json:"supervisor"`
	Mode       string  `json:"mode"`
	Secret     *string `json:"secret,omitempty"`
}

func (v tokenView) Table() cli.Table {
	secret := "-"
	if v.Secret != nil {
		secret = *v.Secret
	}
	return cli.Table{
		Headers: []string{"IDENTITY", "SUPERVISOR", "MODE", "SECRET"},
		Rows:    [][]string{{v.Identity, displayName(v.Supervisor), v.Mode, secret}},
	}
}

func newTokenView(rec *store.Record, s *token.State, reveal bool) tokenView {
	v := tokenView{Identity: rec.Identity, Supervisor: rec.Supervisor, Mode: tokenMode(s)}
	if reveal && s.Mode() == token.ModeProtected {
		v.Secret = s.Secret()
	}
	return v
}

// tokenMode names a restored token, or "unset" when none was persisted.
func tokenMode(s *token.State) string {
	if !s.Present() {
		return "unset"
	}
	return s.Mode().String()
}

func displayName(name string) string {
	if name == "" {
		return "(default)"
	}
	return name
}

func showToken(cmd *cobra.Command, args []string) error {
	f, err := formatter()
	if err != nil {
		return err
	}
	return withRecord(cmd.Context(), args[0], func(_ *config.Config, _ store.Backend, rec *store.Record, s *token.State) error {
		return f.FormatTo(cmd.OutOrStdout(), newTokenView(rec, s, tokenFlags.reveal))
	})
}

func setToken(cmd *cobra.Command, args []string) error {
	f, err := formatter()
	if err != nil {
		return err
	}
	command := args[1]

	return withRecord(cmd.Context(), args[0], func(cfg *config.Config, backend store.Backend, rec *store.Record, s *token.State) error {
		switch command {
		case proxy.CommandDisabled:
			token.Set(s, nil)
		case proxy.CommandAllowAll:
			token.Set(s, token.String(""))
		case proxy.CommandRandom:
			token.Regenerate(s, cfg.Tokens.RandomLength)
		default:
			return fmt.Errorf("invalid token command %q (want disabled, allow_all or random)", command)
		}

		token.Persist(s, rec.State)
		if err := backend.Save(cmd.Context(), rec); err != nil {
			return cli.NewCommandError("token set", err)
		}
		return f.FormatTo(cmd.OutOrStdout(), newTokenView(rec, s, tokenFlags.reveal))
	})
}

// withRecord loads the stored record of a supervisor and its token.
func withRecord(ctx context.Context, identity string, fn func(*config.Config, store.Backend, *store.Record, *token.State) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	backend, err := openPersistentBackend(&cfg.State)
	if err != nil {
		return err
	}
	defer backend.Close()

	rec, err := backend.Load(ctx, identity, tokenFlags.name)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("no stored state for supervisor %q of %q", displayName(tokenFlags.name), identity)
	}
	if rec.State == nil {
		rec.State = make(map[string]any)
	}

	s, err := token.Restore(rec.State)
	if err != nil {
		return err
	}
	return fn(cfg, backend, rec, s)
}

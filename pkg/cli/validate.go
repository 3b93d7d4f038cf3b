package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/getmockd/simulator/pkg/cli/internal/output"
	"github.com/getmockd/simulator/pkg/engine"
)

// ValidateOutput is the result of the validate command.
type ValidateOutput struct {
	Config   string `json:"config,omitempty"`
	HTTP     string `json:"http"`
	Socket   string `json:"socket,omitempty"`
	Fixtures int    `json:"fixtures"`
	REST     int    `json:"rest"`
	WS       int    `json:"ws"`
	Sockets  int    `json:"socketTests"`
}

var validateFlagVals configFlags

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and fixtures without serving",
	Long: `Validate the configuration file, the environment and flag overrides, and
every fixture file they name. Fixtures are checked against the fixture
schema and registered on in-memory simulators, so a fixture that serve
would reject is reported here.`,
	Example: `  # Validate simulator.yaml in the current directory
  simulator validate

  # Validate a fixture set on its own
  simulator validate --fixtures 'fixtures/**/*.yaml' --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd.Context(), cmd.OutOrStdout(), &validateFlagVals, cmd.Flags().Changed, jsonOutput)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	addConfigFlags(validateCmd, &validateFlagVals)
}

func runValidate(ctx context.Context, w io.Writer, f *configFlags, changed func(string) bool, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(f, changed)
	if err != nil {
		return err
	}
	fixtures, err := cfg.LoadFixtures()
	if err != nil {
		return err
	}

	srv := engine.NewServer(cfg)
	if _, err := srv.LoadFixtures(ctx, fixtures); err != nil {
		return err
	}

	out := ValidateOutput{
		Config:   f.configFile,
		HTTP:     cfg.Server.Addr(),
		Fixtures: len(fixtures),
		REST:     srv.REST().Len(),
		WS:       srv.WS().Len(),
		Sockets:  srv.Socket().Len(),
	}
	if cfg.Socket.Enabled {
		out.Socket = cfg.Socket.Addr()
	}
	if asJSON {
		return output.JSON(w, out)
	}

	if len(cfg.Fixtures) > 0 && len(fixtures) == 0 {
		output.Warn(w, "no fixture files matched %v", cfg.Fixtures)
	}
	fmt.Fprintln(w, "Configuration is valid")
	tw := output.Table(w)
	fmt.Fprintf(tw, "  HTTP\t%s\n", out.HTTP)
	if out.Socket != "" {
		fmt.Fprintf(tw, "  Socket\t%s\n", out.Socket)
	} else {
		fmt.Fprintf(tw, "  Socket\tdisabled\n")
	}
	fmt.Fprintf(tw, "  Fixture files\t%d\n", out.Fixtures)
	fmt.Fprintf(tw, "  REST tests\t%d\n", out.REST)
	fmt.Fprintf(tw, "  WS tests\t%d\n", out.WS)
	fmt.Fprintf(tw, "  Socket tests\t%d\n", out.Sockets)
	return tw.Flush()
}

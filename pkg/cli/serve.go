package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/getmockd/simulator/pkg/config"
	"github.com/getmockd/simulator/pkg/engine"
	"github.com/getmockd/simulator/pkg/logging"
)

var serveFlagVals configFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the simulator",
	Long: `Start the HTTP endpoints and the TCP socket server in the foreground.

Fixture files named by the configuration or by --fixtures are registered
before the listeners accept traffic. The server shuts down gracefully on
SIGINT or SIGTERM.`,
	Example: `  # Start with defaults (HTTP on 8080, socket on 9090)
  simulator serve

  # Start with a configuration file
  simulator serve --config simulator.yaml

  # Preload fixtures and skip the socket server
  simulator serve --fixtures 'fixtures/**/*.yaml' --no-socket

  # Debug logging in JSON
  simulator serve --log-level debug --log-format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), &serveFlagVals, cmd.Flags().Changed)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addConfigFlags(serveCmd, &serveFlagVals)
}

func addConfigFlags(cmd *cobra.Command, f *configFlags) {
	cmd.Flags().StringVarP(&f.configFile, "config", "c", "", "Path to the configuration file (default: ./"+config.DefaultFileName+" when present)")
	cmd.Flags().IntVarP(&f.port, "port", "p", config.DefaultHTTPPort, "HTTP server port")
	cmd.Flags().IntVar(&f.socketPort, "socket-port", config.DefaultSocketPort, "TCP socket server port")
	cmd.Flags().BoolVar(&f.noSocket, "no-socket", false, "Disable the TCP socket server")
	cmd.Flags().StringSliceVarP(&f.fixtures, "fixtures", "f", nil, "Fixture file or glob pattern to preload (repeatable)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&f.logFormat, "log-format", "text", "Log format (text, json)")
	cmd.Flags().StringVar(&f.logFile, "log-file", "", "Also write JSON logs to this file")
}

func runServe(ctx context.Context, f *configFlags, changed func(string) bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(f, changed)
	if err != nil {
		return err
	}

	log, closer, err := logging.New(cfg.LoggingConfig())
	if err != nil {
		return err
	}
	defer closer.Close()

	srv := engine.NewServer(cfg, engine.WithLogger(log))

	fixtures, err := cfg.LoadFixtures()
	if err != nil {
		return fmt.Errorf("load fixtures: %w", err)
	}
	if _, err := srv.LoadFixtures(ctx, fixtures); err != nil {
		return fmt.Errorf("load fixtures: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	socketAddr := "disabled"
	if cfg.Socket.Enabled {
		socketAddr = cfg.Socket.Addr()
	}
	log.Info("starting simulator", "version", Version, "http", cfg.Server.Addr(), "socket", socketAddr)

	if err := srv.Run(ctx); err != nil {
		return err
	}
	log.Info("simulator stopped")
	return nil
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Persistent flags available to all subcommands
	jsonOutput bool

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "simulator",
	Short: "simulator is a service virtualization server for REST, WS and socket clients",
	Long: `simulator stands in for backend services during testing.

Tests register request/response pairs over HTTP, then the system under test
talks to the simulator over REST, XML web services or raw TCP sockets and
receives the registered responses. Call counts can be verified afterwards.

Configuration can be provided via flags, environment variables, or a
configuration file. By default, simulator looks for simulator.yaml in the
current directory.`,
	SilenceUsage:  true,
	SilenceErrors: true, // We handle errors in Execute()
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")
}

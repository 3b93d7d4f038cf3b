// Package cli provides the command-line interface for the simulator.
//
// Commands:
//   - serve: run the HTTP endpoints and the socket server in the foreground
//   - validate: check a configuration file and its fixtures without serving
//   - version: show build information
//
// Configuration is read from --config, or from simulator.yaml in the
// working directory when present. SIMULATOR_* environment variables are
// applied on top of the file and command-line flags on top of both.
//
// serve stops gracefully on SIGINT or SIGTERM.
package cli

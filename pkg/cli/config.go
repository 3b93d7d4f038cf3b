package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/getmockd/simulator/pkg/config"
)

// configFlags are the configuration flags shared by serve and validate.
type configFlags struct {
	configFile string
	port       int
	socketPort int
	noSocket   bool
	fixtures   []string
	logLevel   string
	logFormat  string
	logFile    string
}

// loadConfig builds the effective configuration: the file, then the
// environment, then the flags reported as changed. The result is validated.
func loadConfig(f *configFlags, changed func(name string) bool) (*config.Config, error) {
	cfg, err := readConfig(f.configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := applyFlags(cfg, f, changed); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readConfig(path string) (*config.Config, error) {
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		path = config.Discover(wd)
	}
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func applyFlags(cfg *config.Config, f *configFlags, changed func(name string) bool) error {
	if changed == nil {
		changed = func(string) bool { return false }
	}
	if changed("port") {
		cfg.Server.Port = f.port
	}
	if changed("socket-port") {
		cfg.Socket.Port = f.socketPort
	}
	if f.noSocket {
		cfg.Socket.Enabled = false
	}
	if changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if changed("log-format") {
		cfg.Logging.Format = f.logFormat
	}
	if changed("log-file") {
		cfg.Logging.File = f.logFile
	}
	// Fixture flags are relative to the working directory, not the
	// configuration file.
	for _, pattern := range f.fixtures {
		abs, err := filepath.Abs(pattern)
		if err != nil {
			return fmt.Errorf("resolve fixture pattern %q: %w", pattern, err)
		}
		cfg.Fixtures = append(cfg.Fixtures, abs)
	}
	return nil
}

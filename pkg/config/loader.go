package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/getmockd/simulator/pkg/logging"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound     = errors.New("configuration file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidYAML      = errors.New("invalid YAML syntax")
	ErrEmptyFile        = errors.New("configuration file is empty")
	ErrInvalidEnv       = errors.New("invalid environment variable")
)

// Environment variables read by ApplyEnv.
const (
	EnvHTTPPort   = "SIMULATOR_HTTP_PORT"
	EnvSocketPort = "SIMULATOR_SOCKET_PORT"
	EnvLogLevel   = logging.EnvLevel
	EnvLogFormat  = logging.EnvFormat
)

// DefaultFileName is the configuration file Discover looks for.
const DefaultFileName = "simulator.yaml"

// Discover returns the path of DefaultFileName in dir, or "" when there is
// none.
func Discover(dir string) string {
	path := filepath.Join(dir, DefaultFileName)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ""
	}
	return path
}

// Load reads the configuration file at path on top of Default. Relative
// fixture patterns are resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.baseDir = filepath.Dir(path)
	return cfg, nil
}

// Parse decodes YAML configuration on top of Default. Unknown keys are
// rejected.
func Parse(data []byte) (*Config, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return cfg, nil
}

func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}
	return data, nil
}

// ApplyEnv overlays the SIMULATOR_* environment variables on c.
func (c *Config) ApplyEnv() error {
	if err := envPort(EnvHTTPPort, &c.Server.Port); err != nil {
		return err
	}
	if err := envPort(EnvSocketPort, &c.Socket.Port); err != nil {
		return err
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.Logging.Level = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := os.LookupEnv(EnvLogFormat); ok {
		c.Logging.Format = strings.ToLower(strings.TrimSpace(v))
	}
	return nil
}

func envPort(name string, dst *int) error {
	v, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%w: %s=%q", ErrInvalidEnv, name, v)
	}
	*dst = n
	return nil
}

// LoggingConfig converts the logging section into a logging.Config.
func (c *Config) LoggingConfig() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(c.Logging.Level)
	lc.Format = logging.ParseFormat(c.Logging.Format)
	lc.File = c.Logging.File
	return lc
}

// ResolvePath resolves targetPath against basePath unless it is absolute.
// A leading ~/ expands to the user's home directory.
func ResolvePath(basePath, targetPath string) string {
	if filepath.IsAbs(targetPath) {
		return targetPath
	}
	if strings.HasPrefix(targetPath, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, targetPath[2:])
		}
	}
	return filepath.Join(basePath, targetPath)
}

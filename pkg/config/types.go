package config

import (
	"fmt"
	"time"
)

// Default values.
const (
	DefaultHTTPPort        = 8080
	DefaultSocketPort      = 9090
	DefaultMaxBodySize     = 10 << 20
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
	DefaultReadBufferSize  = 1024
	DefaultMetricsPath     = "/metrics"
	DefaultHealthPath      = "/healthz"
)

// Config is the simulator process configuration.
type Config struct {
	Server  ServerConfig  `json:"server" yaml:"server"`
	Socket  SocketConfig  `json:"socket" yaml:"socket"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
	// Fixtures lists glob patterns of fixture files, relative to the
	// configuration file.
	Fixtures []string `json:"fixtures,omitempty" yaml:"fixtures,omitempty" validate:"dive,required"`

	// baseDir resolves relative fixture patterns. Set by Load.
	baseDir string
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Host is the interface to bind; empty binds all interfaces.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`
	// Port is the HTTP port; 0 picks a free port.
	Port int `json:"port" yaml:"port" validate:"gte=0,lte=65535"`
	// MaxBodySize limits request bodies, in bytes.
	MaxBodySize int64 `json:"maxBodySize" yaml:"maxBodySize" validate:"gt=0"`
	// ReadTimeout and WriteTimeout bound a single HTTP exchange. Zero
	// disables the timeout.
	ReadTimeout  time.Duration `json:"readTimeout" yaml:"readTimeout" validate:"gte=0"`
	WriteTimeout time.Duration `json:"writeTimeout" yaml:"writeTimeout" validate:"gte=0"`
	// ShutdownTimeout bounds graceful shutdown of both listeners.
	ShutdownTimeout time.Duration `json:"shutdownTimeout" yaml:"shutdownTimeout" validate:"gt=0"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SocketConfig configures the raw TCP listener.
type SocketConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Host    string `json:"host,omitempty" yaml:"host,omitempty"`
	Port    int    `json:"port" yaml:"port" validate:"gte=0,lte=65535"`
	// ReadBufferSize bounds a single read, and therefore a single request.
	ReadBufferSize int `json:"readBufferSize" yaml:"readBufferSize" validate:"gt=0"`
	// NoMatchResponse replaces the default no-match reply when set.
	NoMatchResponse string `json:"noMatchResponse,omitempty" yaml:"noMatchResponse,omitempty"`
}

// Addr returns the listen address.
func (s SocketConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig configures the operational log.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `json:"format" yaml:"format" validate:"omitempty,oneof=text json"`
	// File receives a JSON copy of every record when set.
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path" validate:"omitempty,startswith=/"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultHTTPPort,
			MaxBodySize:     DefaultMaxBodySize,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Socket: SocketConfig{
			Enabled:        true,
			Port:           DefaultSocketPort,
			ReadBufferSize: DefaultReadBufferSize,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
	}
}

// BaseDir returns the directory relative fixture patterns are resolved
// against.
func (c *Config) BaseDir() string {
	if c.baseDir == "" {
		return "."
	}
	return c.baseDir
}

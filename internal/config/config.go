package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"plugin-server/internal/logger"
)

var log = logger.WithComponent("CONFIG")

const (
	DefaultHost      = "127.0.0.1"
	DefaultPort      = 5000
	DefaultRootName  = "plugins"
	DefaultIndexName = "index.json"
	DefaultEnv       = "development"
	DefaultLogLevel  = "info"
)

// AppConfig holds the resolved application configuration
type AppConfig struct {
	Env      string `yaml:"env" env:"PLUGIN_SERVER_ENV"`
	Root     string `yaml:"root" env:"PLUGIN_SERVER_ROOT"`
	Host     string `yaml:"host" env:"PLUGIN_SERVER_HOST"`
	Port     int    `yaml:"port" env:"PLUGIN_SERVER_PORT"`
	Index    string `yaml:"index" env:"PLUGIN_SERVER_INDEX"`
	LogLevel string `yaml:"logLevel" env:"PLUGIN_SERVER_LOG_LEVEL"`
	LogJSON  bool   `yaml:"logJSON" env:"PLUGIN_SERVER_LOG_JSON"`

	// MaxConnections caps concurrently open client connections; 0 is unlimited.
	MaxConnections int `yaml:"maxConnections" env:"PLUGIN_SERVER_MAX_CONNECTIONS"`
	// RateLimit is requests per second per client IP; 0 disables limiting.
	RateLimit float64 `yaml:"rateLimit" env:"PLUGIN_SERVER_RATE_LIMIT"`
	RateBurst int     `yaml:"rateBurst" env:"PLUGIN_SERVER_RATE_BURST"`

	Gzip  bool `yaml:"gzip" env:"PLUGIN_SERVER_GZIP"`
	Watch bool `yaml:"watch" env:"PLUGIN_SERVER_WATCH"`

	SentryDSN string `yaml:"sentryDSN" env:"SENTRY_DSN"`
}

// Overrides carries explicitly set command line flags. Nil fields are left
// alone.
type Overrides struct {
	Root     *string
	Host     *string
	Port     *int
	LogLevel *string
	Watch    *bool
}

// Options controls where Load reads from.
type Options struct {
	// ConfigPath is an optional YAML file.
	ConfigPath string
	// Environ replaces the process environment when non-nil.
	Environ map[string]string
	// ExecutableDir anchors the default root; empty means the running binary's directory.
	ExecutableDir string
	Overrides     Overrides
}

// Common configuration errors
var (
	ErrMissingConfigFile = errors.New("config file not found")
	ErrInvalidConfig     = errors.New("invalid configuration")
)

// ValidationError contains details about a configuration validation failure
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error: %s - %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%d config validation errors: %s (and %d more)", len(e), e[0].Error(), len(e)-1)
}

// Defaults returns the built-in configuration with root next to exeDir.
func Defaults(exeDir string) AppConfig {
	return AppConfig{
		Env:      DefaultEnv,
		Root:     filepath.Join(exeDir, DefaultRootName),
		Host:     DefaultHost,
		Port:     DefaultPort,
		Index:    DefaultIndexName,
		LogLevel: DefaultLogLevel,
		Gzip:     true,
	}
}

// Validate checks the configuration for errors
func (c *AppConfig) Validate() ValidationErrors {
	var errs ValidationErrors

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, ValidationError{Field: "port", Message: fmt.Sprintf("invalid port %d, must be 1-65535", c.Port)})
	}

	if strings.TrimSpace(c.Host) == "" {
		errs = append(errs, ValidationError{Field: "host", Message: "host is required"})
	}

	if c.Root == "" {
		errs = append(errs, ValidationError{Field: "root", Message: "root is required"})
	} else if info, err := os.Stat(c.Root); err != nil {
		errs = append(errs, ValidationError{Field: "root", Message: fmt.Sprintf("cannot access: %v", err)})
	} else if !info.IsDir() {
		errs = append(errs, ValidationError{Field: "root", Message: "path exists but is not a directory"})
	}

	if !isValidFilename(c.Index) {
		errs = append(errs, ValidationError{Field: "index", Message: fmt.Sprintf("invalid index file name %q", c.Index)})
	}

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, ValidationError{Field: "logLevel", Message: err.Error()})
	}

	if c.MaxConnections < 0 {
		errs = append(errs, ValidationError{Field: "maxConnections", Message: "must not be negative"})
	}
	if c.RateLimit < 0 {
		errs = append(errs, ValidationError{Field: "rateLimit", Message: "must not be negative"})
	}
	if c.RateBurst < 0 {
		errs = append(errs, ValidationError{Field: "rateBurst", Message: "must not be negative"})
	}

	return errs
}

// Addr returns the host:port listen address.
func (c *AppConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// IsProduction reports whether the production environment is selected.
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// Load layers defaults, the optional YAML file, environment variables and
// flag overrides, then validates the result.
func Load(opts Options) (*AppConfig, error) {
	exeDir := opts.ExecutableDir
	if exeDir == "" {
		dir, err := executableDir()
		if err != nil {
			return nil, err
		}
		exeDir = dir
	}

	cfg := Defaults(exeDir)

	if opts.ConfigPath != "" {
		data, err := os.ReadFile(opts.ConfigPath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrMissingConfigFile, opts.ConfigPath)
			}
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
	}

	envOpts := env.Options{}
	if opts.Environ != nil {
		envOpts.Environment = opts.Environ
	}

	// PORT is honoured for platform compatibility; PLUGIN_SERVER_PORT wins.
	var platform struct {
		Port int `env:"PORT"`
	}
	if err := env.ParseWithOptions(&platform, envOpts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if platform.Port != 0 {
		cfg.Port = platform.Port
	}
	if err := env.ParseWithOptions(&cfg, envOpts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	applyOverrides(&cfg, opts.Overrides)

	if cfg.Root != "" {
		abs, err := filepath.Abs(cfg.Root)
		if err != nil {
			return nil, fmt.Errorf("resolve root: %w", err)
		}
		cfg.Root = abs
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, err := range errs {
			log.Error("Validation error: %s", err.Error())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, errs.Error())
	}

	log.Info("Configuration loaded successfully | env=%s addr=%s root=%s", cfg.Env, cfg.Addr(), cfg.Root)
	return &cfg, nil
}

func applyOverrides(cfg *AppConfig, o Overrides) {
	if o.Root != nil {
		cfg.Root = *o.Root
	}
	if o.Host != nil {
		cfg.Host = *o.Host
	}
	if o.Port != nil {
		cfg.Port = *o.Port
	}
	if o.LogLevel != nil {
		cfg.LogLevel = *o.LogLevel
	}
	if o.Watch != nil {
		cfg.Watch = *o.Watch
	}
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// isValidFilename checks if a filename is safe (no path separators or traversal)
func isValidFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

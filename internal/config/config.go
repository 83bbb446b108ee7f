package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/saaskit/signupcheck/internal/model"
)

// EnvPrefix is the prefix of every environment override, e.g.
// SIGNUPCHECK_SERVER_ADDR or SIGNUPCHECK_PORTS_START.
const EnvPrefix = "SIGNUPCHECK"

// Config is the complete signupcheck configuration.
//
// Values are resolved in three layers: Default(), then the config file,
// then SIGNUPCHECK_* environment variables. The result is validated once
// at the end.
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Validation ValidationConfig `yaml:"validation" envconfig:"VALIDATION"`
	Ports      PortsConfig      `yaml:"ports" envconfig:"PORTS"`
	Subdomains SubdomainsConfig `yaml:"subdomains" envconfig:"SUBDOMAINS"`
	Docker     DockerConfig     `yaml:"docker" envconfig:"DOCKER"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`

	// Tenants are claimed subdomains/ports hosted outside the local Docker
	// daemon. They are file-only.
	Tenants []model.Tenant `yaml:"tenants" ignored:"true" validate:"dive"`

	// Plans are the subscription plans offered on the signup form.
	Plans []model.Plan `yaml:"plans" ignored:"true" validate:"dive"`
}

// ServerConfig configures the HTTP check server.
type ServerConfig struct {
	Addr            string          `yaml:"addr" envconfig:"ADDR" validate:"required"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gt=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=1"`
}

// ValidationConfig configures the client-side field validator.
type ValidationConfig struct {
	// SettleDelay is the debounce quiet period.
	SettleDelay time.Duration `yaml:"settle_delay" envconfig:"SETTLE_DELAY" validate:"gte=0"`

	// CheckTimeout bounds one remote check. Zero disables the timeout.
	CheckTimeout time.Duration `yaml:"check_timeout" envconfig:"CHECK_TIMEOUT" validate:"gte=0"`

	// ServerURL is the base URL of a running check server. Empty means
	// checks are answered in-process.
	ServerURL string `yaml:"server_url" envconfig:"SERVER_URL" validate:"omitempty,url"`
}

// PortsConfig configures tenant port rules.
type PortsConfig struct {
	Start     int   `yaml:"start" envconfig:"START" validate:"gte=8081,lte=65535"`
	Reserved  []int `yaml:"reserved" envconfig:"RESERVED" validate:"dive,gte=1,lte=65535"`
	ProbeHost bool  `yaml:"probe_host" envconfig:"PROBE_HOST"`

	// ProbeAddress is the address host probes bind on. Empty means all
	// interfaces, where Docker publishes tenant ports.
	ProbeAddress string `yaml:"probe_address" envconfig:"PROBE_ADDRESS" validate:"omitempty,ip"`
}

// SubdomainsConfig configures subdomain rules.
type SubdomainsConfig struct {
	Reserved []string `yaml:"reserved" envconfig:"RESERVED"`
}

// DockerConfig controls tenant discovery from container labels.
type DockerConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"ENABLED"`

	// Host is the daemon address, e.g. "unix:///var/run/docker.sock" or
	// "tcp://10.0.0.5:2376". Empty means DOCKER_HOST or the platform socket.
	Host string `yaml:"host" envconfig:"HOST"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8069",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     20,
				Burst:   40,
			},
		},
		Validation: ValidationConfig{
			SettleDelay:  500 * time.Millisecond,
			CheckTimeout: 10 * time.Second,
		},
		Ports: PortsConfig{
			Start:    8081,
			Reserved: []int{8080, 9069},
		},
		Subdomains: SubdomainsConfig{
			Reserved: []string{"www", "admin", "api", "mail"},
		},
		Docker: DockerConfig{Enabled: true},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Plans: []model.Plan{
			{ID: "basic", Name: "Basic", Sequence: 10, Active: true, Modules: []string{"base"}, Price: 0},
			{ID: "standard", Name: "Standard", Sequence: 20, Active: true, Modules: []string{"sale", "crm"}, Price: 29},
			{ID: "premium", Name: "Premium", Sequence: 30, Active: true, Modules: []string{"sale", "crm", "account", "stock"}, Price: 79},
		},
	}
}

// Load resolves the configuration. path may be empty, in which case only
// defaults and environment variables apply.
//
// All failures are returned as *model.CLIError with ExitConfigError.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "invalid environment override", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "invalid configuration", err)
	}
	return cfg, nil
}

// loadFile decodes path over cfg. The format is chosen by extension.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.WrapCLIError(model.ExitConfigError,
				fmt.Sprintf("config file not found: %s", path), err)
		}
		return model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to read config file %s", path), err)
	}

	if err := Decode(data, filepath.Ext(path), cfg); err != nil {
		return model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to parse config file %s", path), err)
	}
	return nil
}

// Decode parses data in the format named by ext (".yaml", ".yml",
// ".json" or ".jsonc") into cfg. Fields absent from data keep their
// current value, and unknown keys are rejected.
//
// JSON and JSONC files have comments and trailing commas stripped by
// jsonc and are then read by the YAML decoder, which accepts JSON as a
// subset, so a single set of field tags serves every format.
func Decode(data []byte, ext string, cfg *Config) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
	case ".json", ".jsonc":
		data = bytes.TrimSpace(jsonc.ToJSON(data))
	default:
		return fmt.Errorf("unsupported config format %q (want .yaml, .yml, .json or .jsonc)", ext)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks the struct tags of cfg and the cross-field rules the
// tags cannot express.
func (c *Config) Validate() error {
	if err := validate().Struct(c); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(c.Plans))
	for _, p := range c.Plans {
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("duplicate plan id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

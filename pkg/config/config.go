package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Environment identifies the deployment environment the server runs in.
// It controls cookie security and whether API docs are exposed.
type Environment string

const (
	EnvLocal       Environment = "local"
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// IsLocal reports whether the server runs on a developer machine.
func (e Environment) IsLocal() bool {
	return e == EnvLocal || e == ""
}

// IsProduction reports whether the server runs in production.
func (e Environment) IsProduction() bool {
	return e == EnvProduction
}

// Config represents the web layer configuration
type Config struct {
	Environment Environment   `yaml:"environment" envconfig:"ENVIRONMENT"`
	Server      ServerConfig  `yaml:"server" envconfig:"SERVER"`
	OpenAPI     OpenAPIConfig `yaml:"open_api" envconfig:"OPEN_API"`
	CORS        CORSConfig    `yaml:"cors" envconfig:"CORS"`
	Logging     LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host string `yaml:"host" envconfig:"HOST"`
	Port int    `yaml:"port" envconfig:"PORT"`
}

// OpenAPIConfig controls exposure of the OpenAPI schema and Swagger UI.
// The UI is never served in production unless AllowInProd is set.
type OpenAPIConfig struct {
	Enabled     bool `yaml:"enabled" envconfig:"ENABLED"`
	AllowInProd bool `yaml:"allow_in_prod" envconfig:"ALLOW_IN_PROD"`
}

// CORSConfig contains cross-origin configuration.
// Origins is a comma-separated origin list, or "*" to allow any origin.
type CORSConfig struct {
	Origins string `yaml:"origins" envconfig:"ORIGINS"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" envconfig:"FORMAT"` // json, text
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Load from YAML file if provided (overrides defaults)
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// File doesn't exist, that's ok - we'll use defaults and env vars
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("WEB", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Environment: EnvLocal,
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		OpenAPI: OpenAPIConfig{
			Enabled: true,
		},
		CORS: CORSConfig{
			Origins: "*",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Environment {
	case "", EnvLocal, EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("invalid environment: %q (must be local, development, or production)", c.Environment)
	}

	return nil
}

// Address returns the server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AllowAll reports whether any origin is allowed.
func (c *CORSConfig) AllowAll() bool {
	return strings.TrimSpace(c.Origins) == "*"
}

// OriginList returns the configured origins as a slice.
// Empty entries are dropped; a "*" configuration yields nil.
func (c *CORSConfig) OriginList() []string {
	if c.AllowAll() {
		return nil
	}
	var origins []string
	for _, o := range strings.Split(c.Origins, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

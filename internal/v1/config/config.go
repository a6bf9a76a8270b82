// Package config validates the process environment before the server
// starts. It runs before the zap logger is initialized, so it reports
// through slog.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Listen-address defaults. THEATRE_PORT overrides the port; command line
// flags override both.
const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 54321
)

// Config holds validated environment configuration
type Config struct {
	Host string
	Port int

	// GoEnv selects logger behavior: anything but "production" gets the
	// development encoder.
	GoEnv string
}

// ValidateEnv validates all supported environment variables and returns a
// Config object. Returns an error if any variable is present but invalid;
// absent variables fall back to defaults.
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var errors []string

	cfg.Host = getEnvOrDefault("THEATRE_HOST", DefaultHost)

	portStr := os.Getenv("THEATRE_PORT")
	if portStr == "" {
		cfg.Port = DefaultPort
	} else {
		port, err := strconv.Atoi(portStr)
		if err != nil || port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("THEATRE_PORT must be a valid port number between 1 and 65535 (got '%s')", portStr))
		} else {
			cfg.Port = port
		}
	}

	cfg.GoEnv = getEnvOrDefault("GO_ENV", "production")

	if len(errors) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	logValidatedConfig(cfg)

	return cfg, nil
}

// Development reports whether the process should run with development
// logging.
func (c *Config) Development() bool {
	return c.GoEnv != "production"
}

// logValidatedConfig logs the validated configuration
func logValidatedConfig(cfg *Config) {
	slog.Info("Environment configuration validated",
		"host", cfg.Host,
		"port", cfg.Port,
		"go_env", cfg.GoEnv,
	)
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

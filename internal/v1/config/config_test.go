package config

import (
	"os"
	"strings"
	"testing"
)

// setupTestEnv sets up environment variables for testing
func setupTestEnv(t *testing.T) func() {
	// Save original env vars
	origVars := map[string]string{
		"THEATRE_HOST": os.Getenv("THEATRE_HOST"),
		"THEATRE_PORT": os.Getenv("THEATRE_PORT"),
		"GO_ENV":       os.Getenv("GO_ENV"),
	}

	// Clear all env vars
	os.Unsetenv("THEATRE_HOST")
	os.Unsetenv("THEATRE_PORT")
	os.Unsetenv("GO_ENV")

	// Return cleanup function
	return func() {
		for key, val := range origVars {
			if val != "" {
				os.Setenv(key, val)
			} else {
				os.Unsetenv(key)
			}
		}
	}
}

func TestValidateEnv_Defaults(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	cfg, err := ValidateEnv()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Host != DefaultHost {
		t.Errorf("Expected THEATRE_HOST to default to '%s', got '%s'", DefaultHost, cfg.Host)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Expected THEATRE_PORT to default to %d, got %d", DefaultPort, cfg.Port)
	}
	if cfg.GoEnv != "production" {
		t.Errorf("Expected GO_ENV to default to 'production', got '%s'", cfg.GoEnv)
	}
}

func TestValidateEnv_ValidConfiguration(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	os.Setenv("THEATRE_HOST", "127.0.0.1")
	os.Setenv("THEATRE_PORT", "8080")
	os.Setenv("GO_ENV", "development")

	cfg, err := ValidateEnv()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Expected THEATRE_HOST to be '127.0.0.1', got '%s'", cfg.Host)
	}
	if cfg.Port != 8080 {
		t.Errorf("Expected THEATRE_PORT to be 8080, got %d", cfg.Port)
	}
	if cfg.GoEnv != "development" {
		t.Errorf("Expected GO_ENV to be 'development', got '%s'", cfg.GoEnv)
	}
}

func TestValidateEnv_InvalidPort(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	tests := []struct {
		name string
		port string
	}{
		{"Out of range high", "99999"},
		{"Zero", "0"},
		{"Negative", "-1"},
		{"Non-numeric", "fifty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv("THEATRE_PORT", tt.port)
			defer os.Unsetenv("THEATRE_PORT")

			_, err := ValidateEnv()
			if err == nil {
				t.Fatal("Expected error for invalid THEATRE_PORT, got nil")
			}
			if !strings.Contains(err.Error(), "THEATRE_PORT must be a valid port number") {
				t.Errorf("Expected error message about invalid THEATRE_PORT, got: %v", err)
			}
		})
	}
}

func TestDevelopment(t *testing.T) {
	tests := []struct {
		name     string
		goEnv    string
		expected bool
	}{
		{"Production", "production", false},
		{"Development", "development", true},
		{"Test", "test", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{GoEnv: tt.goEnv}
			if cfg.Development() != tt.expected {
				t.Errorf("Development() with GO_ENV='%s' = %v, expected %v", tt.goEnv, cfg.Development(), tt.expected)
			}
		})
	}
}

func TestGetEnvOrDefault(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	if got := getEnvOrDefault("THEATRE_HOST", "fallback"); got != "fallback" {
		t.Errorf("Expected 'fallback' for unset variable, got '%s'", got)
	}

	os.Setenv("THEATRE_HOST", "10.0.0.1")
	if got := getEnvOrDefault("THEATRE_HOST", "fallback"); got != "10.0.0.1" {
		t.Errorf("Expected '10.0.0.1' for set variable, got '%s'", got)
	}
}

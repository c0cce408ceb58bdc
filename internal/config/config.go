// Package config loads the gateway's runtime configuration: environment
// variables provide the baseline, and an optional YAML file (SUP_CONFIG_FILE)
// can override or extend it for settings that don't suit an env var well,
// such as the trusted-proxy CIDR list.
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Server holds the HTTP accept-layer settings.
type Server struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	TrustedProxies []string
}

// MetricsAuth guards the /metrics endpoint.
type MetricsAuth struct {
	Username string
	Password string
}

// Enabled returns true if metrics authentication is configured.
func (m *MetricsAuth) Enabled() bool {
	return m.Username != "" && m.Password != ""
}

// SecretStoreKind selects which secretstore.Store implementation to build.
type SecretStoreKind string

const (
	SecretStoreEnv  SecretStoreKind = "env"
	SecretStoreFile SecretStoreKind = "file"
)

// SecretStoreConfig configures whichever secretstore.Store the gateway
// builds at startup.
type SecretStoreConfig struct {
	Kind SecretStoreKind

	// Used when Kind == SecretStoreEnv.
	AccessKeyEnv string
	SecretKeyEnv string

	// Used when Kind == SecretStoreFile.
	FilePath       string
	ReloadSchedule string // cron spec, e.g. "*/5 * * * *"; empty disables reload
}

// Config is the gateway's full runtime configuration.
type Config struct {
	Server        Server
	SecretStore   SecretStoreConfig
	MetricsAuth   MetricsAuth
	EnforceExpiry bool
	LogLevel      string
}

// fileOverrides is the optional YAML shape layered over the environment.
// The sections are pointers so an absent section is distinguishable from
// an empty one; within a section, an empty list or string is treated as
// absent and leaves the environment value in place.
type fileOverrides struct {
	Server *struct {
		TrustedProxies []string `yaml:"trusted_proxies"`
	} `yaml:"server"`
	SecretStore *struct {
		ReloadSchedule string `yaml:"reload_schedule"`
	} `yaml:"secret_store"`
}

// Load builds a Config from environment variables, then layers an optional
// YAML file named by SUP_CONFIG_FILE on top for the settings that don't
// suit an env var well.
//
// Environment variables:
//   - SUP_HOST: listen host (default: all interfaces)
//   - SUP_PORT: listen port (default: "8443")
//   - SUP_READ_TIMEOUT / SUP_WRITE_TIMEOUT: request timeouts (default: 30s)
//   - SUP_SECRET_STORE: "env" or "file" (default: "env")
//   - SUP_ACCESS_KEY / SUP_SECRET_KEY: used when SUP_SECRET_STORE=env
//   - SUP_SECRETS_FILE: path to the YAML secrets file when SUP_SECRET_STORE=file
//   - SUP_SECRETS_RELOAD: cron spec for reloading the secrets file (optional)
//   - SUP_METRICS_USERNAME / SUP_METRICS_PASSWORD: basic auth for /metrics (optional)
//   - SUP_ENFORCE_EXPIRY: enforce X-Sup-Expires freshness (default: "true")
//   - SUP_LOG_LEVEL: slog level name (default: "info")
//   - SUP_CONFIG_FILE: optional YAML file overriding the trusted-proxy list
//     and the secrets reload schedule
func Load() (*Config, error) {
	host := os.Getenv("SUP_HOST")
	port := getEnvOrDefault("SUP_PORT", "8443")

	cfg := &Config{
		Server: Server{
			Address:      host + ":" + port,
			ReadTimeout:  parseEnvDuration("SUP_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: parseEnvDuration("SUP_WRITE_TIMEOUT", 30*time.Second),
		},
		MetricsAuth: MetricsAuth{
			Username: os.Getenv("SUP_METRICS_USERNAME"),
			Password: os.Getenv("SUP_METRICS_PASSWORD"),
		},
		EnforceExpiry: os.Getenv("SUP_ENFORCE_EXPIRY") != "false",
		LogLevel:      getEnvOrDefault("SUP_LOG_LEVEL", "info"),
	}

	switch kind := SecretStoreKind(getEnvOrDefault("SUP_SECRET_STORE", string(SecretStoreEnv))); kind {
	case SecretStoreEnv:
		cfg.SecretStore = SecretStoreConfig{
			Kind:         SecretStoreEnv,
			AccessKeyEnv: "SUP_ACCESS_KEY",
			SecretKeyEnv: "SUP_SECRET_KEY",
		}
	case SecretStoreFile:
		cfg.SecretStore = SecretStoreConfig{
			Kind:           SecretStoreFile,
			FilePath:       os.Getenv("SUP_SECRETS_FILE"),
			ReloadSchedule: os.Getenv("SUP_SECRETS_RELOAD"),
		}
	default:
		return nil, fmt.Errorf("config: unknown SUP_SECRET_STORE %q", kind)
	}

	if trusted := os.Getenv("SUP_TRUSTED_PROXIES"); trusted != "" {
		for _, proxy := range strings.Split(trusted, ",") {
			if proxy = strings.TrimSpace(proxy); proxy != "" {
				cfg.Server.TrustedProxies = append(cfg.Server.TrustedProxies, proxy)
			}
		}
	}

	if path := os.Getenv("SUP_CONFIG_FILE"); path != "" {
		if err := applyFileOverrides(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func applyFileOverrides(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}

	var overrides fileOverrides
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if overrides.Server != nil && len(overrides.Server.TrustedProxies) > 0 {
		cfg.Server.TrustedProxies = overrides.Server.TrustedProxies
	}
	if overrides.SecretStore != nil && overrides.SecretStore.ReloadSchedule != "" {
		cfg.SecretStore.ReloadSchedule = overrides.SecretStore.ReloadSchedule
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (c *Config) validate() error {
	if c.Server.Address == "" || c.Server.Address == ":" {
		return fmt.Errorf("server.address is required")
	}
	switch c.SecretStore.Kind {
	case SecretStoreEnv:
		if c.SecretStore.AccessKeyEnv == "" || c.SecretStore.SecretKeyEnv == "" {
			return fmt.Errorf("env secret store requires access/secret key env var names")
		}
	case SecretStoreFile:
		if c.SecretStore.FilePath == "" {
			return fmt.Errorf("file secret store requires SUP_SECRETS_FILE")
		}
	default:
		return fmt.Errorf("unknown secret store kind %q", c.SecretStore.Kind)
	}
	return nil
}

// Log prints the configuration through the standard log package (stderr by
// default), excluding secret values.
func (c *Config) Log() {
	log.Println("Configuration:")
	log.Printf("  Server address: %s", c.Server.Address)
	log.Printf("  Secret store: %s", c.SecretStore.Kind)
	log.Printf("  Enforce expiry: %t", c.EnforceExpiry)
	log.Printf("  Metrics auth enabled: %t", c.MetricsAuth.Enabled())
	log.Printf("  Trusted proxies: %d configured", len(c.Server.TrustedProxies))
	log.Printf("  Log level: %s", c.LogLevel)
}

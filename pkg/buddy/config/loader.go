// Package config – loader.go loads configuration from YAML files with
// credentials taken from environment variables and .env files.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR}, ${VAR:-default} and bare $VAR references.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}|\$([A-Z_][A-Z0-9_]*)`)

// LoadConfig loads path, or the first config file found in the standard
// locations when path is empty. With no file at all the defaults are used.
// Secrets and PORT are always resolved from the environment.
func LoadConfig(path string) (*Config, string, error) {
	loadEnvFiles()

	if path == "" {
		path = FindConfigFile()
	}

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("reading config file: %w", err)
		}
		cfg, err = ParseConfig([]byte(expandEnvVars(string(data))))
		if err != nil {
			return nil, "", err
		}
		checkFilePermissions(path)
	}

	resolveSecrets(cfg)
	resolvePort(cfg)
	return cfg, path, nil
}

// ParseConfig parses YAML bytes into a Config, starting from the defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	return cfg, nil
}

// FindConfigFile searches for config files in standard locations.
func FindConfigFile() string {
	candidates := []string{
		"config.yaml",
		"config.yml",
		"buddy.yaml",
		"buddy.yml",
		"configs/config.yaml",
		"configs/buddy.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	out.Services.Weather.APIKey = maskSecret(c.Services.Weather.APIKey)
	out.Services.AI.APIKey = maskSecret(c.Services.AI.APIKey)
	out.Auth.Secret = maskSecret(c.Auth.Secret)
	return &out
}

// YAML renders the config as a YAML document.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// ---------- Internal ----------

// loadEnvFiles loads .env files without overwriting existing variables.
func loadEnvFiles() {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}
}

// expandEnvVars replaces ${VAR}, ${VAR:-default} and $VAR references.
// Unset variables without a default keep their placeholder.
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		sub := envVarPattern.FindStringSubmatch(match)
		name, def, bare := sub[1], sub[2], sub[3]

		if bare != "" {
			if val, ok := os.LookupEnv(bare); ok {
				return val
			}
			return match
		}
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		if strings.Contains(match, ":-") {
			return def
		}
		return match
	})
}

// resolveSecrets fills secrets from the environment when the config value is
// empty or an unexpanded reference.
func resolveSecrets(cfg *Config) {
	if cfg.Services.Weather.APIKey == "" || isEnvReference(cfg.Services.Weather.APIKey) {
		cfg.Services.Weather.APIKey = os.Getenv("WEATHER_API_KEY")
	}
	if cfg.Services.AI.APIKey == "" || isEnvReference(cfg.Services.AI.APIKey) {
		if key := os.Getenv("OPEN_API_KEY"); key != "" {
			cfg.Services.AI.APIKey = key
		} else {
			cfg.Services.AI.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if cfg.Auth.Secret == "" || isEnvReference(cfg.Auth.Secret) {
		cfg.Auth.Secret = os.Getenv("BUDDY_SESSION_SECRET")
	}
}

// resolvePort applies the PORT variable used by hosting platforms.
func resolvePort(cfg *Config) {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Server.Addr = "0.0.0.0:" + port
	}
}

func isEnvReference(s string) bool {
	return strings.HasPrefix(s, "$")
}

func maskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "****"
	default:
		return s[:4] + "****" + s[len(s)-2:]
	}
}

// checkFilePermissions warns if the config file is group/world readable.
func checkFilePermissions(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if mode := info.Mode().Perm(); mode&0o044 != 0 {
		slog.Warn("config file has open permissions, consider restricting",
			"path", path,
			"current", fmt.Sprintf("%04o", mode),
			"recommended", "0600",
		)
	}
}

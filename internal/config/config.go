// Package config resolves newsletter-rotation settings from embedded
// defaults, an optional YAML file, an optional .env file and the environment.
package config

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/newsletter-rotation/internal/selector"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

const appName = "newsletter-rotation"

type Config struct {
	ContentDir string          `yaml:"content_dir"`
	State      string          `yaml:"state"`
	OutputDir  string          `yaml:"output_dir"`
	Schedule   string          `yaml:"schedule"`
	LogLevel   string          `yaml:"log_level"`
	LogFormat  string          `yaml:"log_format"`
	Selection  selector.Config `yaml:"selection"`
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// DefaultStateDir is where the file-backed selection state lives unless
// TRACKING_DIR or --state says otherwise.
func DefaultStateDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load builds the configuration. An empty path means DefaultConfigPath, which
// may be absent; an explicit path must exist. Values from a .env file in the
// working directory are exported before environment overrides are applied,
// without replacing variables that are already set.
func Load(path string) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	if err := applyEnv(cfg, os.Getenv); err != nil {
		return nil, err
	}

	if cfg.State == "" {
		cfg.State = DefaultStateDir()
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays the variables understood by the legacy newsletter
// scripts. CONTENT_DIR wins over PORTFOLIO_DIR.
func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("PORTFOLIO_DIR"); v != "" {
		cfg.ContentDir = filepath.Join(v, "docs")
	}
	if v := getenv("CONTENT_DIR"); v != "" {
		cfg.ContentDir = v
	}
	if v := getenv("TRACKING_DIR"); v != "" {
		cfg.State = v
	}
	if v := getenv("OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"MAX_COUNT", &cfg.Selection.MaxCount},
		{"DAYS_AGO", &cfg.Selection.DaysAgo},
		{"ROTATION_COUNT", &cfg.Selection.RotationCount},
		{"ROTATION_MEMORY", &cfg.Selection.RotationMemory},
	}
	for _, e := range ints {
		v := getenv(e.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", e.name, v)
		}
		*e.dst = n
	}

	if v := getenv("FORCE_ROTATION"); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("FORCE_ROTATION: %w", err)
		}
		cfg.Selection.ForceRotation = b
	}
	return nil
}

// parseBool accepts strconv forms plus yes/no and on/off.
func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", v)
	}
	return b, nil
}

func validate(cfg *Config) error {
	s := cfg.Selection
	for name, v := range map[string]int{
		"max_count":       s.MaxCount,
		"days_ago":        s.DaysAgo,
		"rotation_count":  s.RotationCount,
		"rotation_memory": s.RotationMemory,
	} {
		if v < 0 {
			return fmt.Errorf("selection.%s must not be negative, got %d", name, v)
		}
	}
	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", cfg.LogFormat)
	}
	return nil
}

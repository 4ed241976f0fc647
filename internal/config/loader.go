package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"convertit/internal/fileutil"
)

// Load loads configuration from the default path and environment variables.
func Load() (*Config, error) {
	return LoadFrom(getConfigPath())
}

// LoadFrom loads configuration from path, then applies environment
// overrides. A missing file is not an error.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	loadFromEnv(cfg)
	normalize(cfg)

	return cfg, nil
}

// getConfigPath returns the path to the config file.
func getConfigPath() string {
	dir := configDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

func configDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "convertit")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	if runtime.GOOS == "darwin" {
		appSupport := filepath.Join(homeDir, "Library", "Application Support", "convertit")
		if _, err := os.Stat(appSupport); err == nil {
			return appSupport
		}
	}
	return filepath.Join(homeDir, ".config", "convertit")
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// loadFromEnv loads configuration from environment variables.
// Priority: CONVERTIT_API_KEY > GEMINI_API_KEY > API_KEY
func loadFromEnv(cfg *Config) {
	if apiKey := os.Getenv("CONVERTIT_API_KEY"); apiKey != "" {
		cfg.API.GeminiKey = apiKey
	} else if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		cfg.API.GeminiKey = apiKey
	} else if apiKey := os.Getenv("API_KEY"); apiKey != "" && cfg.API.GeminiKey == "" {
		cfg.API.GeminiKey = apiKey
	}

	if model := os.Getenv("CONVERTIT_MODEL_TEXT"); model != "" {
		cfg.Models.Text = model
	}
	if provider := os.Getenv("CONVERTIT_TEXT_PROVIDER"); provider != "" {
		cfg.API.TextProvider = provider
	}
}

// normalize fills zero values that would otherwise break the runtime.
func normalize(cfg *Config) {
	if cfg.Scheduler.Interval <= 0 {
		cfg.Scheduler.Interval = DefaultSweepInterval
	}
	if cfg.Live.InputSampleRate <= 0 {
		cfg.Live.InputSampleRate = DefaultInputSampleRate
	}
	if cfg.Live.OutputSampleRate <= 0 {
		cfg.Live.OutputSampleRate = DefaultOutputSampleRate
	}
	if cfg.Live.FrameSize <= 0 {
		cfg.Live.FrameSize = DefaultFrameSize
	}
	if cfg.Settings.ReminderLeadMinutes < 0 {
		cfg.Settings.ReminderLeadMinutes = 0
	}
	if cfg.API.TextProvider == "" {
		cfg.API.TextProvider = "gemini"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.API.GeminiKey == "" {
		return ErrMissingAuth
	}
	switch c.API.TextProvider {
	case "gemini", "ollama":
	default:
		return fmt.Errorf("unknown text provider %q (expected gemini or ollama)", c.API.TextProvider)
	}
	return nil
}

// ConfigError is a configuration validation error.
type ConfigError string

func (e ConfigError) Error() string {
	return string(e)
}

const (
	ErrMissingAuth ConfigError = "missing authentication: set GEMINI_API_KEY (or CONVERTIT_API_KEY), or api.gemini_key in the config file"
)

// GetConfigPath returns the path to the config file.
func GetConfigPath() string {
	return getConfigPath()
}

// Dir returns the configuration directory, used for logs.
func Dir() string {
	return configDir()
}

// Save saves the configuration to path, or to the default path when empty.
func (c *Config) Save(path string) error {
	if path == "" {
		path = getConfigPath()
	}
	if path == "" {
		return fmt.Errorf("could not determine config path")
	}

	// 0700: the file may hold the API key
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := fileutil.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

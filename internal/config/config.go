// SPDX-License-Identifier: MPL-2.0

// Package config loads the skillpack tool configuration: defaults, an
// optional YAML config file, and SKILLPACK_* environment overrides, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/bikeshaving/skillpack/internal/issue"
)

const (
	// AppName is the application name, used for the config directory.
	AppName = "skillpack"
	// ConfigFileName is the config file name without extension.
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "yaml"
)

// configFilePathOverride is set by the --config flag.
var configFilePathOverride string

// Config is the resolved tool configuration.
type Config struct {
	// OutputDir is the default output location for packaging commands.
	OutputDir string `mapstructure:"output_dir"`
	// Format is the default output format (preserve, flat, archive, dist).
	Format string `mapstructure:"format"`
	// UI holds terminal behavior settings.
	UI UIConfig `mapstructure:"ui"`
}

// UIConfig holds terminal behavior settings.
type UIConfig struct {
	// Verbose enables debug-level logging by default.
	Verbose bool `mapstructure:"verbose"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		OutputDir: "dist",
		Format:    "archive",
	}
}

// SetConfigFilePathOverride points Load at an explicit config file instead
// of the per-user config directory.
func SetConfigFilePathOverride(path string) {
	configFilePathOverride = path
}

// ConfigDir returns the skillpack configuration directory using
// platform-specific conventions: %APPDATA% on Windows,
// ~/Library/Application Support on macOS, $XDG_CONFIG_HOME (default
// ~/.config) elsewhere.
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// Load resolves the configuration. A missing config file is not an error;
// a malformed one is.
func Load() (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("output_dir", defaults.OutputDir)
	v.SetDefault("format", defaults.Format)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFilePathOverride != "" {
		v.SetConfigFile(configFilePathOverride)
		if err := v.ReadInConfig(); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(configFilePathOverride).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file is valid YAML").
				Wrap(err).
				BuildError()
		}
	} else {
		dir, err := ConfigDir()
		if err == nil {
			v.SetConfigName(ConfigFileName)
			v.SetConfigType(ConfigFileExt)
			v.AddConfigPath(dir)
			if err := v.ReadInConfig(); err != nil {
				var notFound viper.ConfigFileNotFoundError
				if !errors.As(err, &notFound) {
					return nil, issue.NewErrorContext().
						WithOperation("load configuration").
						WithResource(filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)).
						WithSuggestion("Check that the file is valid YAML").
						Wrap(err).
						BuildError()
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("decode configuration").
			WithSuggestion("Check the field names and types in the config file").
			Wrap(err).
			BuildError()
	}
	return cfg, nil
}

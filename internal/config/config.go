// Package config loads a branchdb repository's configuration from a TOML
// file via viper, the ambient config-loading stack the rest of the example
// pack reaches for (see e.g. steveyegge-beads's use of viper.New() per
// config file, cmd/bd/doctor/config_values.go).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// DefaultBranch is the default value of Config.DefaultBranch, written into
// a fresh branchdb.toml.
const DefaultBranch = "main"

// fileName is the config file branchdb reads from a repository directory.
const fileName = "branchdb.toml"

// Config holds repository-level settings read from branchdb.toml.
type Config struct {
	// DefaultBranch is the repository's default branch name. It is loaded
	// and written, but `init` creates no branch ref from it.
	DefaultBranch string `mapstructure:"default_branch" toml:"default_branch"`
	// LogLevel is the zerolog level name the CLI logs at ("debug", "info",
	// "warn", "error"); defaults to "info".
	LogLevel string `mapstructure:"log_level" toml:"log_level"`
}

func defaults() Config {
	return Config{DefaultBranch: DefaultBranch, LogLevel: "info"}
}

// Load reads branchdb.toml from repoDir, falling back to defaults for any
// field left unset. A missing config file is not an error: fresh
// repositories have none until the user writes one.
func Load(repoDir string) (Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetConfigName("branchdb")
	v.AddConfigPath(repoDir)

	cfg := defaults()
	v.SetDefault("default_branch", cfg.DefaultBranch)
	v.SetDefault("log_level", cfg.LogLevel)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: reading %s: %w", filepath.Join(repoDir, fileName), err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding %s: %w", filepath.Join(repoDir, fileName), err)
	}
	return cfg, nil
}

// Path returns the config file path under repoDir, for callers (like
// `init`) that want to write a default one.
func Path(repoDir string) string {
	return filepath.Join(repoDir, fileName)
}

// WriteDefault writes a fresh branchdb.toml with default values into
// repoDir, encoded with BurntSushi/toml (viper reads TOML but doesn't
// write it back out in a stable, hand-editable form).
func WriteDefault(repoDir string) error {
	f, err := os.Create(Path(repoDir))
	if err != nil {
		return fmt.Errorf("config: creating %s: %w", Path(repoDir), err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(defaults()); err != nil {
		return fmt.Errorf("config: writing %s: %w", Path(repoDir), err)
	}
	return nil
}

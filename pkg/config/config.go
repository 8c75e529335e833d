// Package config loads refstore's static configuration: which
// backend engine to use, where its data lives, logging behavior, and
// the auto-reflog / hidden-refs settings (loaded; the core does not
// consult them).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is refstore's static configuration.
//
// Configuration sources, highest precedence first:
//  1. Environment variables (REFSTORE_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	// Backend selects the registered storage engine: "files" or "kv".
	Backend string `mapstructure:"backend" yaml:"backend"`

	// FilesRoot is the files backend's root directory.
	FilesRoot string `mapstructure:"files_root" yaml:"files_root"`

	// KVPath is the kv backend's badger directory.
	KVPath string `mapstructure:"kv_path" yaml:"kv_path"`

	// LogAllRefUpdates is loaded but not read by any backend: both
	// backends always auto-create reflogs for qualifying refnames
	// (HEAD and refs/{heads,remotes,notes}/...) whatever its value.
	LogAllRefUpdates bool `mapstructure:"log_all_ref_updates" yaml:"log_all_ref_updates"`

	// HideRefs lists refname prefixes, each optionally negated with
	// "!" or full-name anchored with "^". It is loaded but not applied:
	// no iteration path filters refs by it.
	HideRefs []string `mapstructure:"hide_refs" yaml:"hide_refs"`

	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// LoggingConfig controls internal/logger's behavior.
type LoggingConfig struct {
	// Level is the minimum log level: DEBUG, INFO, WARN, ERROR.
	Level string `mapstructure:"level" yaml:"level"`
	// Format is "text" (colorized for a TTY) or "json".
	Format string `mapstructure:"format" yaml:"format"`
	// Output is "stdout", "stderr", or a file path.
	Output string `mapstructure:"output" yaml:"output"`
}

// Default returns a Config with every field set to its default value.
func Default() *Config {
	cfg := &Config{
		Backend:   "files",
		FilesRoot: filepath.Join(defaultDataDir(), "refs"),
		KVPath:    filepath.Join(defaultDataDir(), "kv"),
	}
	applyLoggingDefaults(&cfg.Logging)
	return cfg
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "refstore")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "refstore")
	}
	return filepath.Join(home, ".local", "share", "refstore")
}

// Load reads configuration from path (or, if path is empty, from the
// default search location), overlays REFSTORE_* environment
// variables, and fills in defaults for anything left unset. A missing
// config file is not an error: Load falls back to Default.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("REFSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Dir(defaultConfigPath()))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// Bind every key so REFSTORE_* variables apply even to keys the
	// file does not set, or when there is no file at all.
	for _, key := range []string{"backend", "files_root", "kv_path", "log_all_ref_updates", "hide_refs", "logging.level", "logging.format", "logging.output"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	applyLoggingDefaults(&cfg.Logging)
	return cfg, nil
}

func defaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "refstore", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "refstore", "config.yaml")
	}
	return filepath.Join(home, ".config", "refstore", "config.yaml")
}

// DefaultPath returns the config file location Load searches when no
// explicit path is given.
func DefaultPath() string { return defaultConfigPath() }

// PathExists reports whether anything (file or directory) exists at path.
func PathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// WriteSample writes a commented sample configuration to path,
// creating parent directories as needed.
func WriteSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	cfg := Default()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal sample config: %w", err)
	}

	header := "# refstore sample configuration\n" +
		"# backend: \"files\" (loose+packed files) or \"kv\" (embedded badger store)\n"
	return os.WriteFile(path, append([]byte(header), data...), 0o644)
}

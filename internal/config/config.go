// Package config manages YAML-based configuration, environment overrides, and snapshot folders.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/CageChen/ctxhub/internal/aggregate"
)

// EnvPrefix is the prefix for environment overrides, e.g. CTXHUB_BUDGET.
const EnvPrefix = "CTXHUB"

// Folder is a project root that can be snapshotted, with an alias for display and lookup.
type Folder struct {
	Path   string `yaml:"path" json:"path" mapstructure:"path"`
	Alias  string `yaml:"alias" json:"alias" mapstructure:"alias"`
	GitRef string `yaml:"git_ref,omitempty" json:"git_ref,omitempty" mapstructure:"git_ref"`
}

// Config holds all configuration options for ctxhub
type Config struct {
	// Legacy single path (for backward compatibility)
	Path string `yaml:"path,omitempty" mapstructure:"path"`

	Folders []Folder `yaml:"folders,omitempty" json:"folders" mapstructure:"folders"`

	Port int  `yaml:"port" mapstructure:"port"`
	Open bool `yaml:"open" mapstructure:"open"`

	Budget     int           `yaml:"budget" mapstructure:"budget"`
	SampleSize int           `yaml:"sample_size" mapstructure:"sample_size"`
	Workers    int           `yaml:"workers" mapstructure:"workers"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	TokenModel string        `yaml:"token_model" mapstructure:"token_model"`

	// Internal: path to config file for saving
	configPath string
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Port:       8080,
		Open:       false,
		Budget:     aggregate.DefaultBudget,
		SampleSize: aggregate.DefaultSampleSize,
		Workers:    1,
		Timeout:    30 * time.Second,
		TokenModel: "gpt-4o",
	}
}

// GetConfigDir returns the config directory path
func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/ctxhub"
	}
	return filepath.Join(home, ".config", "ctxhub")
}

// GetConfigPath returns the full path to the config file
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// SetDefaults registers every config key with its default value so that
// environment variables are seen by Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("path", "")
	v.SetDefault("port", d.Port)
	v.SetDefault("open", d.Open)
	v.SetDefault("budget", d.Budget)
	v.SetDefault("sample_size", d.SampleSize)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("token_model", d.TokenModel)
}

// Load builds the configuration from defaults, a config file, CTXHUB_* environment
// variables and any flags already bound to v, in increasing order of precedence.
//
// configFile names an explicit config file; it must exist. When empty,
// ~/.config/ctxhub/config.yaml and then ./ctxhub.yaml are tried.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Determine config file path
	var cfgPath string
	if configFile != "" {
		cfgPath = configFile
	} else {
		globalConfig := GetConfigPath()
		if _, err := os.Stat(globalConfig); err == nil {
			cfgPath = globalConfig
		} else if _, err := os.Stat("ctxhub.yaml"); err == nil {
			cfgPath = "ctxhub.yaml"
		}
	}

	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if configFile != "" {
				return nil, fmt.Errorf("read config %s: %w", cfgPath, err)
			}
			cfgPath = ""
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfgPath != "" {
		cfg.configPath = cfgPath
	} else {
		// Set default config path for saving
		cfg.configPath = GetConfigPath()
	}

	cfg.migrateLegacyPath()
	return cfg, nil
}

// UsePath makes path the only folder, overriding any saved folders.
func (c *Config) UsePath(path string) {
	c.Path = path
	c.Folders = nil
	c.migrateLegacyPath()
}

// migrateLegacyPath converts single Path to Folders if Folders is empty
func (c *Config) migrateLegacyPath() {
	if len(c.Folders) == 0 && c.Path != "" {
		absPath, err := filepath.Abs(c.Path)
		if err != nil {
			absPath = c.Path
		}
		c.Folders = []Folder{{
			Path:  absPath,
			Alias: filepath.Base(absPath),
		}}
	}

	// Resolve all folder paths to absolute
	for i := range c.Folders {
		absPath, err := filepath.Abs(c.Folders[i].Path)
		if err == nil {
			c.Folders[i].Path = absPath
		}
		if c.Folders[i].Alias == "" {
			c.Folders[i].Alias = defaultAlias(c.Folders[i].Path, c.Folders[i].GitRef)
		}
	}
}

func defaultAlias(absPath, gitRef string) string {
	alias := filepath.Base(absPath)
	if gitRef != "" {
		alias = alias + "@" + gitRef
	}
	return alias
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Budget < 1 {
		errs = append(errs, fmt.Errorf("budget must be at least 1, got %d", c.Budget))
	}
	if c.SampleSize < 1 {
		errs = append(errs, fmt.Errorf("sample_size must be at least 1, got %d", c.SampleSize))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", c.Port))
	}
	seen := make(map[string]bool, len(c.Folders))
	for _, f := range c.Folders {
		if seen[f.Alias] {
			errs = append(errs, fmt.Errorf("duplicate folder alias %q", f.Alias))
		}
		seen[f.Alias] = true
	}
	return errors.Join(errs...)
}

// Options returns the aggregation options described by the config.
func (c *Config) Options() aggregate.Options {
	return aggregate.Options{
		Budget:     c.Budget,
		SampleSize: c.SampleSize,
		Workers:    c.Workers,
	}
}

// Save saves the current configuration to the config file
func (c *Config) Save() error {
	// Ensure config directory exists
	configDir := filepath.Dir(c.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	saveConfig := struct {
		Folders    []Folder      `yaml:"folders,omitempty"`
		Port       int           `yaml:"port"`
		Open       bool          `yaml:"open"`
		Budget     int           `yaml:"budget"`
		SampleSize int           `yaml:"sample_size"`
		Workers    int           `yaml:"workers"`
		Timeout    time.Duration `yaml:"timeout"`
		TokenModel string        `yaml:"token_model"`
	}{
		Folders:    c.Folders,
		Port:       c.Port,
		Open:       c.Open,
		Budget:     c.Budget,
		SampleSize: c.SampleSize,
		Workers:    c.Workers,
		Timeout:    c.Timeout,
		TokenModel: c.TokenModel,
	}

	data, err := yaml.Marshal(saveConfig)
	if err != nil {
		return err
	}

	return os.WriteFile(c.configPath, data, 0644)
}

// AddFolder adds a folder with the given path, alias and git ref. Adding the
// same path and ref twice is a no-op. An empty alias defaults to the folder name.
func (c *Config) AddFolder(path, alias, gitRef string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	for _, f := range c.Folders {
		if f.Path == absPath && f.GitRef == gitRef {
			return nil // Already exists
		}
	}

	if alias == "" {
		alias = defaultAlias(absPath, gitRef)
	}
	if _, ok := c.FolderByAlias(alias); ok {
		return fmt.Errorf("alias %q is already in use", alias)
	}

	c.Folders = append(c.Folders, Folder{
		Path:   absPath,
		Alias:  alias,
		GitRef: gitRef,
	})
	return nil
}

// RemoveFolderByIndex removes a folder by its index
func (c *Config) RemoveFolderByIndex(index int) {
	if index < 0 || index >= len(c.Folders) {
		return
	}
	c.Folders = append(c.Folders[:index], c.Folders[index+1:]...)
}

// FolderByAlias looks up a folder by alias.
func (c *Config) FolderByAlias(alias string) (Folder, bool) {
	for _, f := range c.Folders {
		if f.Alias == alias {
			return f, true
		}
	}
	return Folder{}, false
}

// GetConfigFilePath returns the path to the config file
func (c *Config) GetConfigFilePath() string {
	return c.configPath
}

// SetConfigFilePath changes where Save writes.
func (c *Config) SetConfigFilePath(path string) {
	c.configPath = path
}

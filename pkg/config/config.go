package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	xdgAppName = "planbridge"
	configFile = "config.json"
	envPrefix  = "PLANBRIDGE"
)

const (
	TargetAcunote = "acunote"
	TargetGoogle  = "google"
)

// ErrMissingInput is returned by Validate when no input document was given.
var ErrMissingInput = errors.New("missing file name to translate, usage: planbridge convert FILE")

// AcunoteConfig holds the web session settings for an Acunote account.
type AcunoteConfig struct {
	BaseURL   string `mapstructure:"base_url" json:"base_url"`
	ProjectID string `mapstructure:"project_id" json:"project_id"`
	Username  string `mapstructure:"username" json:"username"`
	Password  string `mapstructure:"password" json:"password,omitempty"`
}

// Config is passed explicitly to every conversion run.
type Config struct {
	InputPath string `mapstructure:"input_path" json:"input_path,omitempty"`
	Debug     bool   `mapstructure:"debug" json:"debug"`
	// Prepended to sprint names in debug mode so test pushes are easy to find and delete.
	TestSprintPrefix string        `mapstructure:"test_sprint_prefix" json:"test_sprint_prefix,omitempty"`
	Target           string        `mapstructure:"target" json:"target"`
	Acunote          AcunoteConfig `mapstructure:"acunote" json:"acunote"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout" json:"request_timeout"`
	Retries          int           `mapstructure:"retries" json:"retries"`
}

// SprintPrefix returns the prefix for sprint names, which only applies in debug mode.
func (c *Config) SprintPrefix() string {
	if !c.Debug {
		return ""
	}
	return c.TestSprintPrefix
}

// Validate checks the settings a conversion run cannot do without.
func (c *Config) Validate() error {
	if c.InputPath == "" {
		return ErrMissingInput
	}
	switch c.Target {
	case TargetAcunote, TargetGoogle:
	default:
		return fmt.Errorf("unknown target %q, expected %q or %q", c.Target, TargetAcunote, TargetGoogle)
	}
	return nil
}

// ValidateAcunote checks the settings needed to talk to Acunote.
func (c *Config) ValidateAcunote() error {
	var missing []string
	if c.Acunote.BaseURL == "" {
		missing = append(missing, "acunote.base_url")
	}
	if c.Acunote.ProjectID == "" {
		missing = append(missing, "acunote.project_id")
	}
	if c.Acunote.Username == "" {
		missing = append(missing, "acunote.username")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing acunote settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// GetConfigDir returns ~/.config/planbridge.
func GetConfigDir() (string, error) {
	xdgHome, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(xdgHome, ".config", xdgAppName), nil
}

func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input_path", "")
	v.SetDefault("debug", false)
	v.SetDefault("test_sprint_prefix", "")
	v.SetDefault("target", TargetAcunote)
	v.SetDefault("acunote.base_url", "https://acunote.com")
	v.SetDefault("acunote.project_id", "")
	v.SetDefault("acunote.username", "")
	v.SetDefault("acunote.password", "")
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("retries", 3)
}

// Load reads the config file from the default location.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path. A missing file yields the defaults.
// PLANBRIDGE_* environment variables, including ones from a .env file in the
// working directory, override file values.
func LoadFrom(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Set stores a single key in the config file at path, keeping other keys.
func Set(path, key, value string) error {
	probe := viper.New()
	setDefaults(probe)
	if !slices.Contains(probe.AllKeys(), strings.ToLower(key)) {
		return fmt.Errorf("unknown config key %q", key)
	}

	v := viper.New()
	v.SetConfigType("json")
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	v.Set(key, value)

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return os.Chmod(path, 0600)
}

// Package config loads the cadence application configuration.
//
// Values are resolved in order of precedence:
//  1. Command-line flags (bound by the caller)
//  2. CADENCE_* environment variables
//  3. .env files
//  4. Config file (~/.cadence.yaml)
//  5. Defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable cadence reads.
const EnvPrefix = "CADENCE"

// Config keys.
const (
	KeyLogLevel      = "log_level"
	KeyLogFormat     = "log_format"
	KeyLogOutput     = "log_output"
	KeyLogNoColor    = "log_no_color"
	KeyTickDuration  = "tick_duration"
	KeySettingsPath  = "settings_path"
	KeyHTTPAddr      = "http_addr"
	KeyTray          = "tray"
	KeyNotifications = "notifications"
	KeyWatch         = "watch"
)

// Config holds the application configuration.
type Config struct {
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	LogOutput string `mapstructure:"log_output" yaml:"log_output"`
	// LogNoColor disables colored console logs. NO_COLOR also disables them.
	LogNoColor bool `mapstructure:"log_no_color" yaml:"log_no_color"`

	// TickDuration overrides the settings file tick when positive.
	TickDuration time.Duration `mapstructure:"tick_duration" yaml:"tick_duration"`
	// SettingsPath is the phase settings file. Empty means the user config dir.
	SettingsPath string `mapstructure:"settings_path" yaml:"settings_path"`
	// HTTPAddr enables the control API when non-empty.
	HTTPAddr string `mapstructure:"http_addr" yaml:"http_addr"`

	Tray          bool `mapstructure:"tray" yaml:"tray"`
	Notifications bool `mapstructure:"notifications" yaml:"notifications"`
	Watch         bool `mapstructure:"watch" yaml:"watch"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		LogLevel:      "info",
		LogFormat:     "auto",
		LogOutput:     "stderr",
		HTTPAddr:      "",
		Tray:          true,
		Notifications: true,
		Watch:         true,
	}
}

// LoadOptions controls where Load looks for configuration.
type LoadOptions struct {
	// ConfigFile is an explicit config file; it must exist when set.
	ConfigFile string
	// SearchPaths are searched for .cadence.yaml when ConfigFile is empty.
	// Nil means the home directory and the working directory.
	SearchPaths []string
	// EnvFiles are loaded into the environment before reading env vars.
	// Nil means .env and .env.local.
	EnvFiles []string
}

// NewViper returns a viper instance with cadence defaults and env binding.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers every key so env vars and Unmarshal see it.
func SetDefaults(v *viper.Viper) {
	defaults := Default()
	v.SetDefault(KeyLogLevel, defaults.LogLevel)
	v.SetDefault(KeyLogFormat, defaults.LogFormat)
	v.SetDefault(KeyLogOutput, defaults.LogOutput)
	v.SetDefault(KeyLogNoColor, defaults.LogNoColor)
	v.SetDefault(KeyTickDuration, defaults.TickDuration)
	v.SetDefault(KeySettingsPath, defaults.SettingsPath)
	v.SetDefault(KeyHTTPAddr, defaults.HTTPAddr)
	v.SetDefault(KeyTray, defaults.Tray)
	v.SetDefault(KeyNotifications, defaults.Notifications)
	v.SetDefault(KeyWatch, defaults.Watch)
}

// Load reads env files and the config file into v, then unmarshals and
// validates the result.
func Load(v *viper.Viper, opts LoadOptions) (*Config, error) {
	loadEnvFiles(opts.EnvFiles)

	if err := readConfigFile(v, opts); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// WriteDefault writes a config file with the default values. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	if err := v.SafeWriteConfigAs(path); err != nil {
		var exists viper.ConfigFileAlreadyExistsError
		if errors.As(err, &exists) {
			return fmt.Errorf("config file %s already exists", path)
		}
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func readConfigFile(v *viper.Viper, opts LoadOptions) error {
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
		return nil
	}

	paths := opts.SearchPaths
	if paths == nil {
		if home, err := os.UserHomeDir(); err == nil {
			paths = append(paths, home)
		}
		paths = append(paths, ".")
	}
	for _, path := range paths {
		v.AddConfigPath(path)
	}
	v.SetConfigType("yaml")
	v.SetConfigName(".cadence")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func loadEnvFiles(files []string) {
	if files == nil {
		files = []string{".env", ".env.local"}
	}
	for _, file := range files {
		// godotenv never overrides variables that are already set.
		_ = godotenv.Load(file)
	}
}

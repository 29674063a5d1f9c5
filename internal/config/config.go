package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the main configuration structure
type Config struct {
	UI      UIConfig      `mapstructure:"ui"`
	Web     WebConfig     `mapstructure:"web"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// UIConfig contains window settings
type UIConfig struct {
	FrameInterval  time.Duration `mapstructure:"frame_interval"`
	StartDirectory string        `mapstructure:"start_directory"`
	ShowHidden     bool          `mapstructure:"show_hidden"`
}

// WebConfig contains HTTP front end settings
type WebConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

const (
	DefaultFrameInterval = 50 * time.Millisecond
	DefaultPort          = 8080
)

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		UI: UIConfig{
			FrameInterval:  DefaultFrameInterval,
			StartDirectory: ".",
			ShowHidden:     false,
		},
		Web: WebConfig{
			Port: DefaultPort,
		},
		Logging: LoggingConfig{
			Level:      "info",
			FilePath:   "image-compressor.log",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     30,
			Compress:   true,
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config file in current directory and home directory
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.image-compressor")
		v.AddConfigPath("/etc/image-compressor")
	}

	// Environment overrides need known keys to bind against
	setDefaults(v, config)
	v.SetEnvPrefix("IMAGE_COMPRESSOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("ui.frame_interval", c.UI.FrameInterval)
	v.SetDefault("ui.start_directory", c.UI.StartDirectory)
	v.SetDefault("ui.show_hidden", c.UI.ShowHidden)
	v.SetDefault("web.port", c.Web.Port)
	v.SetDefault("logging.level", c.Logging.Level)
	v.SetDefault("logging.file_path", c.Logging.FilePath)
	v.SetDefault("logging.max_size", c.Logging.MaxSize)
	v.SetDefault("logging.max_backups", c.Logging.MaxBackups)
	v.SetDefault("logging.max_age", c.Logging.MaxAge)
	v.SetDefault("logging.compress", c.Logging.Compress)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.UI.FrameInterval <= 0 {
		c.UI.FrameInterval = DefaultFrameInterval
	}
	if c.UI.FrameInterval > 5*time.Second {
		return fmt.Errorf("invalid frame_interval: %s (must be at most 5s)", c.UI.FrameInterval)
	}

	if c.UI.StartDirectory == "" {
		c.UI.StartDirectory = "."
	}
	c.UI.StartDirectory = expandPath(c.UI.StartDirectory)

	if c.Web.Port == 0 {
		c.Web.Port = DefaultPort
	}
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("invalid web port: %d", c.Web.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}
	if c.Logging.MaxSize <= 0 {
		c.Logging.MaxSize = 10
	}

	return nil
}

// expandPath resolves environment variables and a leading ~.
func expandPath(path string) string {
	expanded := os.ExpandEnv(path)
	if strings.HasPrefix(expanded, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return expanded
		}
		expanded = filepath.Join(home, expanded[1:])
	}
	return expanded
}

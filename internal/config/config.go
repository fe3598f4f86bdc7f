// Package config loads the flasher configuration from a YAML file,
// K1FLASH_ environment variables, and built-in defaults, in that order
// of precedence.
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

// Config carries every tunable of the tool.
type Config struct {
	Port    string        `mapstructure:"port"`
	Serial  SerialConfig  `mapstructure:"serial"`
	Update  UpdateConfig  `mapstructure:"update"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SerialConfig groups the line timing knobs. The bootloader line speed is
// fixed by the MCU and is not configurable; AppBaud only matters when asking
// a running application to reboot into the bootloader.
type SerialConfig struct {
	AppBaud         int           `mapstructure:"app_baud"`
	HandshakeWindow time.Duration `mapstructure:"handshake_window"`
	HandshakePoll   time.Duration `mapstructure:"handshake_poll"`
	ResponseTimeout time.Duration `mapstructure:"response_timeout"`
	RequestSettle   time.Duration `mapstructure:"request_settle"`
}

// UpdateConfig groups firmware update behavior.
type UpdateConfig struct {
	// Retries is the number of full update attempts before giving up.
	// Each attempt starts over with a fresh handshake.
	Retries int `mapstructure:"retries"`
}

// LoggingConfig controls console verbosity and the optional JSON log file
// with its rotation policy.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// Load reads configuration from path. When path is empty it searches the
// working directory, $HOME/.config/k1flash, and /etc/k1flash for a
// k1flash.yaml. A missing file is only an error when the path was given
// explicitly; the tool runs fine on defaults and environment alone.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("k1flash")
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "k1flash"))
		}
		v.AddConfigPath("/etc/k1flash")
	}

	v.SetEnvPrefix("K1FLASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "")

	v.SetDefault("serial.app_baud", 230400)
	v.SetDefault("serial.handshake_window", 15*time.Second)
	v.SetDefault("serial.handshake_poll", 500*time.Millisecond)
	v.SetDefault("serial.response_timeout", 2*time.Second)
	v.SetDefault("serial.request_settle", time.Second)

	v.SetDefault("update.retries", 3)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)
}

func (c *Config) validate() error {
	if c.Serial.AppBaud <= 0 {
		return fmt.Errorf("serial.app_baud must be positive, got %d", c.Serial.AppBaud)
	}
	if c.Serial.HandshakeWindow <= 0 {
		return fmt.Errorf("serial.handshake_window must be positive, got %s", c.Serial.HandshakeWindow)
	}
	if c.Serial.HandshakePoll <= 0 {
		return fmt.Errorf("serial.handshake_poll must be positive, got %s", c.Serial.HandshakePoll)
	}
	if c.Serial.ResponseTimeout <= 0 {
		return fmt.Errorf("serial.response_timeout must be positive, got %s", c.Serial.ResponseTimeout)
	}
	if c.Serial.RequestSettle <= 0 {
		return fmt.Errorf("serial.request_settle must be positive, got %s", c.Serial.RequestSettle)
	}
	if c.Update.Retries < 1 {
		return fmt.Errorf("update.retries must be at least 1, got %d", c.Update.Retries)
	}
	return nil
}

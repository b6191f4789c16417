// Package config loads storefront settings from defaults, an optional config
// file and STOREFRONT_* environment variables, in increasing precedence.
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

// EnvPrefix prefixes every environment override, e.g. STOREFRONT_SERVER_PORT.
const EnvPrefix = "STOREFRONT"

// Config holds application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Bag     BagConfig     `mapstructure:"bag"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig holds gRPC transport settings.
type ServerConfig struct {
	Transport   string `mapstructure:"transport"` // "tcp" or "uds"
	Port        string `mapstructure:"port"`
	UDSBasePath string `mapstructure:"uds_base_path"`
	Reflection  bool   `mapstructure:"reflection"`
	// Target overrides the address client commands dial.
	Target string `mapstructure:"target"`
}

// CatalogConfig holds settings for the catalog backend the server loads from
// at startup.
type CatalogConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// BagConfig holds checkout pricing.
type BagConfig struct {
	ConvenienceFee int `mapstructure:"convenience_fee"`
}

// LogConfig holds zap settings.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.transport", "tcp")
	v.SetDefault("server.port", "50202")
	v.SetDefault("server.uds_base_path", "/tmp/storefront")
	v.SetDefault("server.reflection", false)
	v.SetDefault("server.target", "")
	v.SetDefault("catalog.enabled", true)
	v.SetDefault("catalog.base_url", "http://localhost:8080")
	v.SetDefault("catalog.timeout", 10*time.Second)
	v.SetDefault("bag.convenience_fee", 99)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads configuration. path names an explicit config file; when empty,
// STOREFRONT_CONFIG is used, and failing that ~/.config/storefront/config.*
// is read if present.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	explicit := path != ""
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "storefront"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	switch c.Server.Transport {
	case "tcp":
		if c.Server.Port == "" {
			return errors.New("config: server.port is required for tcp transport")
		}
	case "uds":
		if c.Server.UDSBasePath == "" {
			return errors.New("config: server.uds_base_path is required for uds transport")
		}
	default:
		return fmt.Errorf("config: unknown server.transport %q", c.Server.Transport)
	}
	if c.Catalog.Enabled && c.Catalog.Timeout <= 0 {
		return errors.New("config: catalog.timeout must be positive")
	}
	if c.Bag.ConvenienceFee < 0 {
		return errors.New("config: bag.convenience_fee cannot be negative")
	}
	return nil
}

// SocketPath is where the UDS transport listens.
func (s ServerConfig) SocketPath() string {
	return filepath.Join(s.UDSBasePath, "storefront.sock")
}

// ListenAddress is the address the server binds.
func (s ServerConfig) ListenAddress() string {
	if s.Transport == "uds" {
		return s.SocketPath()
	}
	return "[::]:" + s.Port
}

// DialTarget is the gRPC target client commands connect to.
func (s ServerConfig) DialTarget() string {
	if s.Target != "" {
		return s.Target
	}
	if s.Transport == "uds" {
		return "unix://" + s.SocketPath()
	}
	return "localhost:" + s.Port
}

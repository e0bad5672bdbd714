// Package config loads the service settings from an optional YAML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "MEDIACARD"

type Config struct {
	ListenAddr       string        `mapstructure:"listen_addr"`
	LocalIP          string        `mapstructure:"local_ip"`
	HassURL          string        `mapstructure:"hass_url"`
	HassToken        string        `mapstructure:"hass_token"`
	StorePath        string        `mapstructure:"store_path"`
	CardsFile        string        `mapstructure:"cards_file"`
	LogLevel         string        `mapstructure:"log_level"`
	HapticFeedback   bool          `mapstructure:"haptic_feedback"`
	HapticOnRejected bool          `mapstructure:"haptic_on_rejected"`
	HueEnabled       bool          `mapstructure:"hue_enabled"`
	StateCacheTTL    time.Duration `mapstructure:"state_cache_ttl"`
	WebsocketEnabled bool          `mapstructure:"websocket_enabled"`
}

var defaults = map[string]any{
	"listen_addr":        ":8080",
	"local_ip":           "",
	"hass_url":           "",
	"hass_token":         "",
	"store_path":         "/app/config.json",
	"cards_file":         "",
	"log_level":          "info",
	"haptic_feedback":    true,
	"haptic_on_rejected": false,
	"hue_enabled":        false,
	"state_cache_ttl":    "2s",
	"websocket_enabled":  true,
}

// legacyEnv are the unprefixed variables older deployments set. They apply
// only when neither the file nor a MEDIACARD_* variable sets the key.
var legacyEnv = map[string]string{
	"HASS_URL":    "hass_url",
	"HASS_TOKEN":  "hass_token",
	"LOCAL_IP":    "local_ip",
	"CONFIG_PATH": "store_path",
}

// Load reads path when it is not empty, then applies MEDIACARD_* overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	for env, key := range legacyEnv {
		if val := os.Getenv(env); val != "" && !explicit(v, key) {
			v.Set(key, val)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// explicit reports whether key came from the file or a MEDIACARD_* variable
// rather than from its default.
func explicit(v *viper.Viper, key string) bool {
	if v.InConfig(key) {
		return true
	}
	_, ok := os.LookupEnv(envPrefix + "_" + strings.ToUpper(key))
	return ok
}

func (c *Config) validate() error {
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.StorePath == "" {
		return errors.New("store_path must not be empty")
	}
	if c.StateCacheTTL <= 0 {
		return fmt.Errorf("state_cache_ttl must be positive, got %s", c.StateCacheTTL)
	}
	if _, err := c.Port(); err != nil {
		return err
	}
	return nil
}

// Port is the TCP port of ListenAddr.
func (c *Config) Port() (int, error) {
	_, port, err := net.SplitHostPort(c.ListenAddr)
	if err != nil {
		return 0, fmt.Errorf("invalid listen_addr %q: %w", c.ListenAddr, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return 0, fmt.Errorf("invalid listen_addr %q: %w", c.ListenAddr, err)
	}
	return n, nil
}

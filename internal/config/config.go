// Package config loads an optional on-disk overlay for endpoint
// connection parameters, so a host can tune base/cap/max_attempts,
// traffic timeouts, and proxy settings without a redeploy. It plays
// no part in the connection lifecycle itself; callers read it with
// Load at startup, or receive it from Watch on every change, and feed
// the result into wsclient.ConnectionSetup / ManagerSetup.
package config

import (
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EndpointConfig is the overlay shape read from disk.
type EndpointConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	Path             string        `mapstructure:"path"`
	TLS              bool          `mapstructure:"tls"`
	ProxyURL         string        `mapstructure:"proxy_url"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`

	PolicyBase        time.Duration `mapstructure:"policy_base"`
	PolicyCap         time.Duration `mapstructure:"policy_cap"`
	PolicyMaxAttempts int           `mapstructure:"policy_max_attempts"`

	TrafficTimeout time.Duration `mapstructure:"traffic_timeout"`
}

// Load reads path (any format viper supports: yaml, json, toml) into
// an EndpointConfig, applying defaults for policy_base, policy_cap,
// policy_max_attempts and handshake_timeout when they are unset.
func Load(path string) (EndpointConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("policy_base", 500*time.Millisecond)
	v.SetDefault("policy_cap", 30*time.Second)
	v.SetDefault("policy_max_attempts", 10)
	v.SetDefault("handshake_timeout", 10*time.Second)

	if err := v.ReadInConfig(); err != nil {
		return EndpointConfig{}, err
	}
	var cfg EndpointConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return EndpointConfig{}, err
	}
	return cfg, nil
}

// Watch installs a callback invoked every time path changes on disk,
// and once with the initial contents before Watch returns, for hosts
// that want live reload without restarting the process. It never
// touches a live Connection: the callback only receives the new
// values, and wsclient.Connection has no message for applying a
// changed configuration to a running session.
func Watch(path string, onChange func(EndpointConfig)) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	v.OnConfigChange(func(_ fsnotify.Event) {
		var cfg EndpointConfig
		if err := v.Unmarshal(&cfg); err == nil {
			onChange(cfg)
		}
	})
	v.WatchConfig()

	var cfg EndpointConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return err
	}
	onChange(cfg)
	return nil
}

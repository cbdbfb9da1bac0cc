package config

import (
	"crypto/ecdh"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/shinosaki/webpush-agent-go/autopush"
	"github.com/shinosaki/webpush-agent-go/rfc8291"
)

const ENV_PREFIX = "WEBPUSH"

var ErrMissingKeys = errors.New("keys.auth_secret and keys.private_key are required, run keygen first")

type Config struct {
	Push PushConfig `mapstructure:"push"`
	Keys KeysConfig `mapstructure:"keys"`
	App  AppConfig  `mapstructure:"app"`
	Log  LogConfig  `mapstructure:"log"`
}

type PushConfig struct {
	Endpoint   string   `mapstructure:"endpoint"`
	UAID       string   `mapstructure:"uaid"`
	ChannelIDs []string `mapstructure:"channel_ids"`
}

// KeysConfig holds base64url encoded key material of the push subscription.
type KeysConfig struct {
	AuthSecret string `mapstructure:"auth_secret"`
	PrivateKey string `mapstructure:"private_key"`
}

type AppConfig struct {
	Origin string `mapstructure:"origin"`
	Name   string `mapstructure:"name"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("push.endpoint", autopush.MOZILLA_PUSH_SERVICE)
	v.SetDefault("push.uaid", "")
	v.SetDefault("push.channel_ids", []string{})
	v.SetDefault("keys.auth_secret", "")
	v.SetDefault("keys.private_key", "")
	v.SetDefault("app.origin", "http://localhost:8080")
	v.SetDefault("app.name", "webpush-agent")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
}

// Load reads the JSON config at path. A missing file yields the defaults;
// WEBPUSH_* environment variables override both, e.g. WEBPUSH_APP_ORIGIN.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes cfg as JSON, creating the parent directory. The file holds
// the private key, so it is only readable by the owner.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("json")
	v.SetConfigPermissions(0o600)

	v.Set("push.endpoint", cfg.Push.Endpoint)
	v.Set("push.uaid", cfg.Push.UAID)
	v.Set("push.channel_ids", cfg.Push.ChannelIDs)
	v.Set("keys.auth_secret", cfg.Keys.AuthSecret)
	v.Set("keys.private_key", cfg.Keys.PrivateKey)
	v.Set("app.origin", cfg.App.Origin)
	v.Set("app.name", cfg.App.Name)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.console", cfg.Log.Console)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate checks what the run command needs to receive pushes.
func (c *Config) Validate() error {
	if c.Push.Endpoint == "" {
		return errors.New("push.endpoint is required")
	}
	if c.App.Origin == "" {
		return errors.New("app.origin is required")
	}
	_, err := c.DecodeKeys()
	return err
}

// DecodeKeys decodes the configured auth secret and P-256 private key.
func (c *Config) DecodeKeys() (autopush.Keys, error) {
	var keys autopush.Keys
	if c.Keys.AuthSecret == "" || c.Keys.PrivateKey == "" {
		return keys, ErrMissingKeys
	}

	authSecret, err := base64.RawURLEncoding.DecodeString(c.Keys.AuthSecret)
	if err != nil {
		return keys, fmt.Errorf("keys.auth_secret: %w", err)
	}
	if len(authSecret) != rfc8291.AUTH_SECRET_LEN {
		return keys, fmt.Errorf("keys.auth_secret: %w", rfc8291.ErrAuthSecretLength)
	}

	b, err := base64.RawURLEncoding.DecodeString(c.Keys.PrivateKey)
	if err != nil {
		return keys, fmt.Errorf("keys.private_key: %w", err)
	}
	privateKey, err := ecdh.P256().NewPrivateKey(b)
	if err != nil {
		return keys, fmt.Errorf("keys.private_key: %w", err)
	}

	keys.AuthSecret = authSecret
	keys.PrivateKey = privateKey
	return keys, nil
}

// SetKeys stores key material in its base64url form.
func (c *Config) SetKeys(keys autopush.Keys) {
	c.Keys.AuthSecret = base64.RawURLEncoding.EncodeToString(keys.AuthSecret)
	c.Keys.PrivateKey = base64.RawURLEncoding.EncodeToString(keys.PrivateKey.Bytes())
}

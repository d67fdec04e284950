// Package config loads client settings from an optional YAML file and
// VAI_CHARACTER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vango-go/vai-character/pkg/auth"
)

const (
	EnvPrefix  = "VAI_CHARACTER"
	configName = "vai-character"
	configType = "yaml"
)

type Config struct {
	RuntimeHost string
	WebHost     string
	Insecure    bool

	APIKey     string
	APISecret  string
	ResourceID string

	Scene          string
	Characters     []string
	PlayerName     string
	Language       string
	ConversationID string

	TickInterval   time.Duration
	MaxAwaitingAck int
	BackoffBase    time.Duration
	MaxBackoff     time.Duration
	ConnectTimeout time.Duration

	LogLevel  string
	LogFormat string

	RosterPath  string
	DatabaseURL string
}

// Server returns the deployment hosts.
func (c Config) Server() auth.Server {
	return auth.Server{Runtime: c.RuntimeHost, Web: c.WebHost, Insecure: c.Insecure}
}

// HasCredentials reports whether an API key pair is configured.
func (c Config) HasCredentials() bool {
	return c.APIKey != "" && c.APISecret != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("runtime_host", auth.DefaultServer.Runtime)
	v.SetDefault("web_host", auth.DefaultServer.Web)
	v.SetDefault("insecure", false)
	v.SetDefault("api_key", "")
	v.SetDefault("api_secret", "")
	v.SetDefault("resource_id", "")
	v.SetDefault("scene", "")
	v.SetDefault("characters", "")
	v.SetDefault("player_name", "Player")
	v.SetDefault("language", "en-US")
	v.SetDefault("conversation_id", "")
	v.SetDefault("tick_interval", 100*time.Millisecond)
	v.SetDefault("max_awaiting_ack", 100)
	v.SetDefault("backoff_base", time.Second)
	v.SetDefault("max_backoff", 30*time.Second)
	v.SetDefault("connect_timeout", 15*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("roster_path", "")
	v.SetDefault("database_url", "")
}

// Load reads path, or vai-character.yaml from the working directory and the
// user config directory when path is empty. A missing default file is not an
// error; environment variables override file values.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, configName))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	cfg := Config{
		RuntimeHost:    strings.TrimSpace(v.GetString("runtime_host")),
		WebHost:        strings.TrimSpace(v.GetString("web_host")),
		Insecure:       v.GetBool("insecure"),
		APIKey:         strings.TrimSpace(v.GetString("api_key")),
		APISecret:      strings.TrimSpace(v.GetString("api_secret")),
		ResourceID:     strings.TrimSpace(v.GetString("resource_id")),
		Scene:          strings.TrimSpace(v.GetString("scene")),
		Characters:     stringList(v.Get("characters")),
		PlayerName:     strings.TrimSpace(v.GetString("player_name")),
		Language:       strings.TrimSpace(v.GetString("language")),
		ConversationID: strings.TrimSpace(v.GetString("conversation_id")),
		TickInterval:   v.GetDuration("tick_interval"),
		MaxAwaitingAck: v.GetInt("max_awaiting_ack"),
		BackoffBase:    v.GetDuration("backoff_base"),
		MaxBackoff:     v.GetDuration("max_backoff"),
		ConnectTimeout: v.GetDuration("connect_timeout"),
		LogLevel:       strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
		LogFormat:      strings.ToLower(strings.TrimSpace(v.GetString("log_format"))),
		RosterPath:     strings.TrimSpace(v.GetString("roster_path")),
		DatabaseURL:    strings.TrimSpace(v.GetString("database_url")),
	}
	if cfg.ResourceID == "" {
		cfg.ResourceID = cfg.Scene
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	if c.WebHost == "" {
		return fmt.Errorf("%s_WEB_HOST must not be empty", EnvPrefix)
	}
	if c.RuntimeHost == "" {
		return fmt.Errorf("%s_RUNTIME_HOST must not be empty", EnvPrefix)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("%s_TICK_INTERVAL must be > 0", EnvPrefix)
	}
	if c.MaxAwaitingAck <= 0 {
		return fmt.Errorf("%s_MAX_AWAITING_ACK must be > 0", EnvPrefix)
	}
	if c.BackoffBase <= 0 {
		return fmt.Errorf("%s_BACKOFF_BASE must be > 0", EnvPrefix)
	}
	if c.MaxBackoff < c.BackoffBase {
		return fmt.Errorf("%s_MAX_BACKOFF must be >= %s_BACKOFF_BASE", EnvPrefix, EnvPrefix)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("%s_CONNECT_TIMEOUT must be > 0", EnvPrefix)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%s_LOG_LEVEL must be one of debug|info|warn|error", EnvPrefix)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%s_LOG_FORMAT must be one of text|json", EnvPrefix)
	}
	return nil
}

// stringList accepts a YAML sequence or a comma separated string.
func stringList(raw any) []string {
	var parts []string
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		parts = strings.Split(v, ",")
	case []string:
		parts = v
	case []any:
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
	default:
		parts = []string{fmt.Sprint(v)}
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

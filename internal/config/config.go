package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config interface {
	EnvConfig
	APIConfig
	SessionConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetConfigFile() string
}

type APIConfig interface {
	GetOrigin() string
	GetAPIPrefix() string
	GetBaseURL() string
	GetRequestTimeout() time.Duration
	GetCoalesceRefresh() bool
}

type SessionConfig interface {
	GetSessionBackend() string
	GetSessionFile() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisKeyPrefix() string
}

const (
	envPrefix      = "EVCHARGE"
	configFileName = "evcharge"
)

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"origin":          "api.origin",
	"timeout":         "api.timeout",
	"session-backend": "session.backend",
	"session-file":    "session.file",
	"redis-addr":      "redis.addr",
	"env":             "env",
}

type mainConfig struct {
	EnvVars
	API
	Session
}

// New returns a Config built from defaults and environment variables only.
func New() Config {
	cfg, _ := Load(nil)
	return cfg
}

// Load builds the Config from defaults, an optional evcharge.yaml, EVCHARGE_*
// environment variables and, when given, the command line flags.
func Load(flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetConfigName(configFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".evcharge"))
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return mainConfig{
		EnvVars: EnvVars{v: v},
		API:     API{v: v},
		Session: Session{v: v},
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "EV Charge")
	v.SetDefault("env", "DEV")

	v.SetDefault("api.origin", "http://localhost:8080")
	v.SetDefault("api.prefix", "/api")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("refresh.coalesce", true)

	v.SetDefault("session.backend", BackendFile)
	v.SetDefault("session.file", defaultSessionFile())

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "evcharge:session:")
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".evcharge", "session.json")
	}
	return filepath.Join(home, ".evcharge", "session.json")
}

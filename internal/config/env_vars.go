package config

import (
	"strings"

	"github.com/spf13/viper"
)

type EnvVars struct {
	v *viper.Viper
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.v.GetString("app.name")
}

// GetEnv returns the upper-cased environment name, DEV when unset.
func (e EnvVars) GetEnv() string {
	env := strings.ToUpper(e.v.GetString("env"))
	if env == "" {
		return "DEV"
	}
	return env
}

// GetConfigFile returns the config file in use, empty when running on defaults.
func (e EnvVars) GetConfigFile() string {
	return e.v.ConfigFileUsed()
}

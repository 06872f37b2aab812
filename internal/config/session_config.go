package config

import "github.com/spf13/viper"

// Session store backends
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Session struct {
	v *viper.Viper
}

var _ SessionConfig = Session{}

func (s Session) GetSessionBackend() string {
	return s.v.GetString("session.backend")
}

func (s Session) GetSessionFile() string {
	return s.v.GetString("session.file")
}

func (s Session) GetRedisAddr() string {
	return s.v.GetString("redis.addr")
}

func (s Session) GetRedisPassword() string {
	return s.v.GetString("redis.password")
}

func (s Session) GetRedisDB() int {
	return s.v.GetInt("redis.db")
}

func (s Session) GetRedisKeyPrefix() string {
	return s.v.GetString("redis.prefix")
}

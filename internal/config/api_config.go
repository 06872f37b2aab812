package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type API struct {
	v *viper.Viper
}

var _ APIConfig = API{}

// GetOrigin returns the backend origin without a trailing slash, e.g. "http://localhost:8080"
func (a API) GetOrigin() string {
	return strings.TrimRight(a.v.GetString("api.origin"), "/")
}

func (a API) GetAPIPrefix() string {
	prefix := strings.TrimRight(a.v.GetString("api.prefix"), "/")
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return prefix
}

// GetBaseURL is the origin joined with the API prefix; all request paths are relative to it.
func (a API) GetBaseURL() string {
	return a.GetOrigin() + a.GetAPIPrefix()
}

// GetRequestTimeout is applied to the transport only. Zero means no timeout.
func (a API) GetRequestTimeout() time.Duration {
	return a.v.GetDuration("api.timeout")
}

func (a API) GetCoalesceRefresh() bool {
	return a.v.GetBool("refresh.coalesce")
}

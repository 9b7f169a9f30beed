package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Service is the full configuration for cmd/service, the read-only
// paginated operations API.
type Service struct {
	Postgres Postgres

	Port      uint16 `envconfig:"PORT" default:"8080"`
	PoolSize  uint32 `envconfig:"PGPOOLSIZE" default:"8"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"terminal"`
}

// LoadService reads the read-service configuration from the environment.
func LoadService() (Service, error) {
	var c Service
	if err := envconfig.Process("", &c); err != nil {
		return Service{}, fmt.Errorf("configuration error: %w", err)
	}
	return c, nil
}

// Package config holds the environment-driven configuration for both the
// consumer and the read service, following the env-struct pattern used
// throughout the upstream operations-service (there: the `envy` crate;
// here: envconfig).
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Postgres is the connection configuration shared by both binaries.
type Postgres struct {
	Host     string `envconfig:"PGHOST" required:"true"`
	Port     uint16 `envconfig:"PGPORT" default:"5432"`
	Database string `envconfig:"PGDATABASE" required:"true"`
	User     string `envconfig:"PGUSER" required:"true"`
	Password string `envconfig:"PGPASSWORD" required:"true"`
}

// DSN returns a libpq-style connection string suitable for pgx.
func (p Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", p.User, p.Password, p.Host, p.Port, p.Database)
}

// String intentionally omits the password: this struct is logged verbatim
// at startup, and the password must never land in a log line.
func (p Postgres) String() string {
	return fmt.Sprintf("Postgres(server=%s:%d; database=%s; user=%s)", p.Host, p.Port, p.Database, p.User)
}

// LoadInto reads environment-sourced configuration into dst, which must
// be a pointer to a struct tagged with envconfig. Used directly by
// cmd/migrate, which needs only the Postgres connection fields.
func LoadInto(dst interface{}) error {
	if err := envconfig.Process("", dst); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	return nil
}

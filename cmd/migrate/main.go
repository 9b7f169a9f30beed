// Command migrate applies the operations-service schema migrations. It
// is a deliberate operator action, run by hand or by a deploy pipeline
// step — never invoked by the consumer or service binaries themselves.
package main

import (
	"os"

	"github.com/wavesplatform/operations-service/config"
	"github.com/wavesplatform/operations-service/log"
	"github.com/wavesplatform/operations-service/store"
)

func main() {
	log.SetupDefault("info", "terminal")

	var pg config.Postgres
	if err := config.LoadInto(&pg); err != nil {
		log.Crit("failed to load configuration", "error", err)
	}

	log.Info("applying migrations", "database", pg.String())
	if err := store.Migrate(pg.DSN()); err != nil {
		log.Crit("migration failed", "error", err)
	}
	log.Info("migrations applied")
	os.Exit(0)
}

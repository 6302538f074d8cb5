// migrate runs schema migration once and exits. Deployments that start the
// API with SKIP_MIGRATIONS=true run this as a release step instead.
package main

import (
	"fmt"
	"os"

	"bitbucket.org/dentametrics/practice_backend/config"
	"bitbucket.org/dentametrics/practice_backend/models"
)

func main() {
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()
	fmt.Println("Migration complete")
}

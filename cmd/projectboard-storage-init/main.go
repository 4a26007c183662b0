package main

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"projectboard/config"
	"projectboard/storage"
)

// Provisions the session tables used by the "table" session store.
// SESSION_TABLE accepts a comma separated list.
func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("storage init starting")

	connStr := os.Getenv(config.EnvStorage)
	if connStr == "" {
		log.Fatalf("missing %s", config.EnvStorage)
	}
	names := os.Getenv(config.EnvSessionTable)
	if names == "" {
		names = config.Default().Session.Table
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		tbl, err := storage.NewTable(connStr, name, "")
		if err != nil {
			log.Fatalf("table client %s: %v", name, err)
		}
		if err := tbl.EnsureTable(ctx); err != nil {
			log.Fatalf("create table %s: %v", name, err)
		}
		log.WithField("table", name).Info("table ready")
	}

	log.Info("storage init complete")
}

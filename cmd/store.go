package main

import (
	"context"
	"fmt"

	"github.com/sells-group/listing-extract/internal/config"
	"github.com/sells-group/listing-extract/internal/store"
)

// initStore opens the run ledger selected by cfg.Store. The "none" driver
// returns a nil Store.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "listing-extract.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, &config.ConfigError{Field: "store.driver", Reason: fmt.Sprintf("unsupported store driver %q", cfg.Store.Driver)}
	}
}

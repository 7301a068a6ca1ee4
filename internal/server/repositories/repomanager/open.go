package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/eduportal/internal/server/config"
)

// Open returns the manager for the configured store driver.
func Open(ctx context.Context, cfg *config.Config) (RepositoryManager, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		return NewPostgresRepositoryManager(ctx, cfg.DatabaseDSN)
	case config.StoreDriverMongo:
		return NewMongoRepositoryManager(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.StoreDriverMemory:
		return NewInMemoryRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

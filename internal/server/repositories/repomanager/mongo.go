package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/eduportal/internal/server/repositories/principals"
	"github.com/dmitrijs2005/eduportal/internal/server/repositories/resetrequests"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// MongoRepositoryManager vends MongoDB-backed repositories of one database.
type MongoRepositoryManager struct {
	client     *mongo.Client
	principals *principals.MongoRepository
	resets     *resetrequests.MongoRepository
}

// NewMongoRepositoryManager connects to uri and selects database.
func NewMongoRepositoryManager(ctx context.Context, uri, database string) (*MongoRepositoryManager, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect error: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping error: %w", err)
	}

	db := client.Database(database)
	return &MongoRepositoryManager{
		client:     client,
		principals: principals.NewMongoRepository(db),
		resets:     resetrequests.NewMongoRepository(db),
	}, nil
}

func (m *MongoRepositoryManager) Principals() principals.Repository {
	return m.principals
}

func (m *MongoRepositoryManager) ResetRequests() resetrequests.Repository {
	return m.resets
}

// RunMigrations creates the collection indexes.
func (m *MongoRepositoryManager) RunMigrations(ctx context.Context) error {
	if err := m.principals.EnsureIndexes(ctx); err != nil {
		return err
	}
	return m.resets.EnsureIndexes(ctx)
}

// WithTx runs fn directly, without a multi-document transaction. A failing
// step leaves earlier writes in place, so callers order writes to keep the
// store usable.
func (m *MongoRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return fn(ctx, m)
}

func (m *MongoRepositoryManager) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

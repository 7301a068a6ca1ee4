// Package repomanager vends the repositories of one storage backend and
// groups writes that must succeed or fail together.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/eduportal/internal/server/repositories/principals"
	"github.com/dmitrijs2005/eduportal/internal/server/repositories/resetrequests"
)

// Repositories is the set of repositories bound to one handle: the shared
// pool, or the transaction passed to a WithTx callback.
type Repositories interface {
	Principals() principals.Repository
	ResetRequests() resetrequests.Repository
}

type RepositoryManager interface {
	Repositories

	// RunMigrations brings the schema (tables or indexes) up to date.
	RunMigrations(ctx context.Context) error

	// WithTx runs fn with repositories whose writes commit together when fn
	// returns nil. Backends without multi-document transactions run fn
	// directly against the store.
	WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error

	// Close releases the underlying connections.
	Close(ctx context.Context) error
}

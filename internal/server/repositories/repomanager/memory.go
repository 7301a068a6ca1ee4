package repomanager

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/eduportal/internal/server/repositories/principals"
	"github.com/dmitrijs2005/eduportal/internal/server/repositories/resetrequests"
)

// InMemoryRepositoryManager keeps everything in process memory. It backs the
// "memory" store driver and the service tests.
type InMemoryRepositoryManager struct {
	txMu       sync.Mutex
	principals *principals.MemoryRepository
	resets     *resetrequests.MemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		principals: principals.NewMemoryRepository(),
		resets:     resetrequests.NewMemoryRepository(),
	}
}

func (m *InMemoryRepositoryManager) Principals() principals.Repository {
	return m.principals
}

func (m *InMemoryRepositoryManager) ResetRequests() resetrequests.Repository {
	return m.resets
}

// ResetStore exposes the concrete reset repository for inspection in tests.
func (m *InMemoryRepositoryManager) ResetStore() *resetrequests.MemoryRepository {
	return m.resets
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context) error {
	return nil
}

// WithTx serializes units of work; there is no rollback.
func (m *InMemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(ctx, m)
}

func (m *InMemoryRepositoryManager) Close(context.Context) error {
	return nil
}

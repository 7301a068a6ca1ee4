package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dmitrijs2005/eduportal/internal/cryptox"
	"github.com/dmitrijs2005/eduportal/internal/server/models"
	"github.com/dmitrijs2005/eduportal/internal/server/notify"
	"github.com/dmitrijs2005/eduportal/internal/server/repositories/principals"
	"github.com/dmitrijs2005/eduportal/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/eduportal/internal/server/repositories/resetrequests"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- helpers ---

var testHasher = cryptox.NewHasher(bcrypt.MinCost)

func seedPrincipal(t *testing.T, m repomanager.RepositoryManager, kind models.Kind, email, password string) *models.Principal {
	t.Helper()
	hash, err := testHasher.Hash(password)
	require.NoError(t, err)
	p, err := m.Principals().Create(context.Background(), &models.Principal{
		Kind:         kind,
		Email:        email,
		PasswordHash: hash,
		Name:         "Test " + string(kind),
		Role:         kind.DefaultRole(),
	})
	require.NoError(t, err)
	return p
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.PasswordReset
	err  error
}

func (n *recordingNotifier) NotifyPasswordReset(_ context.Context, msg notify.PasswordReset) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return n.err
}

// brokenRepoManager fails every store call.
type brokenRepoManager struct {
	*repomanager.InMemoryRepositoryManager
}

var errStoreDown = errors.New("store down")

type brokenPrincipals struct{ principals.Repository }

func (brokenPrincipals) GetByID(context.Context, models.Kind, string) (*models.Principal, error) {
	return nil, errStoreDown
}

func (brokenPrincipals) GetByEmail(context.Context, models.Kind, string) (*models.Principal, error) {
	return nil, errStoreDown
}

type brokenResets struct{ resetrequests.Repository }

func (brokenResets) Create(context.Context, *models.PasswordResetRequest) error {
	return errStoreDown
}

func (m brokenRepoManager) Principals() principals.Repository {
	return brokenPrincipals{m.InMemoryRepositoryManager.Principals()}
}

func (m brokenRepoManager) ResetRequests() resetrequests.Repository {
	return brokenResets{m.InMemoryRepositoryManager.ResetRequests()}
}

func (m brokenRepoManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos repomanager.Repositories) error) error {
	return fn(ctx, m)
}

package principals

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/eduportal/internal/common"
	"github.com/dmitrijs2005/eduportal/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps principals in process memory. Ids are UUIDs so the
// same identifier rules as the Postgres store apply.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[models.Kind]map[string]models.Principal
	now  func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID: map[models.Kind]map[string]models.Principal{
			models.KindAdmin: {},
			models.KindUser:  {},
		},
		now: time.Now,
	}
}

func (r *MemoryRepository) Create(_ context.Context, p *models.Principal) (*models.Principal, error) {
	if _, err := tableFor(p.Kind); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID[p.Kind] {
		if existing.Email == p.Email {
			return nil, common.ErrorAlreadyExists
		}
	}

	now := r.now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.byID[p.Kind][p.ID] = *p
	return p, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, kind models.Kind, id string) (*models.Principal, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorInvalidID
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[kind][id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, kind models.Kind, email string) (*models.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.byID[kind] {
		if p.Email == email {
			return &p, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) UpdatePassword(_ context.Context, kind models.Kind, id string, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[kind][id]
	if !ok {
		return common.ErrorNotFound
	}
	p.PasswordHash = passwordHash
	p.MustChangePassword = false
	p.UpdatedAt = r.now().UTC()
	r.byID[kind][id] = p
	return nil
}

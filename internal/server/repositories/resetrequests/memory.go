package resetrequests

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/eduportal/internal/common"
	"github.com/dmitrijs2005/eduportal/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps reset requests in process memory.
type MemoryRepository struct {
	mu      sync.Mutex
	byEmail map[string][]models.PasswordResetRequest
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byEmail: make(map[string][]models.PasswordResetRequest)}
}

func (r *MemoryRepository) Create(_ context.Context, req *models.PasswordResetRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req.ID = uuid.NewString()
	r.byEmail[req.Email] = append(r.byEmail[req.Email], *req)
	return nil
}

func (r *MemoryRepository) FindLatest(_ context.Context, email string) (*models.PasswordResetRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *models.PasswordResetRequest
	for i := range r.byEmail[email] {
		req := r.byEmail[email][i]
		if latest == nil || !req.CreatedAt.Before(latest.CreatedAt) {
			latest = &req
		}
	}
	if latest == nil {
		return nil, common.ErrorNotFound
	}
	return latest, nil
}

func (r *MemoryRepository) DeleteByEmail(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byEmail, email)
	return nil
}

func (r *MemoryRepository) DeleteOthers(_ context.Context, email, keepID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var kept []models.PasswordResetRequest
	for _, req := range r.byEmail[email] {
		if req.ID == keepID {
			kept = append(kept, req)
		}
	}
	if kept == nil {
		delete(r.byEmail, email)
		return nil
	}
	r.byEmail[email] = kept
	return nil
}

// Len reports how many requests are stored for email.
func (r *MemoryRepository) Len(email string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.byEmail[email])
}

package resetrequests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/eduportal/internal/common"
	"github.com/dmitrijs2005/eduportal/internal/dbx"
	"github.com/dmitrijs2005/eduportal/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a reset request.
func (r *PostgresRepository) Create(ctx context.Context, req *models.PasswordResetRequest) error {
	query := `
		INSERT INTO password_resets (email, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	if err := r.db.QueryRowContext(ctx, query, req.Email, req.TokenHash, req.ExpiresAt, req.CreatedAt).Scan(&req.ID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// FindLatest returns the newest request for email.
func (r *PostgresRepository) FindLatest(ctx context.Context, email string) (*models.PasswordResetRequest, error) {
	query := `
		SELECT id, email, token_hash, expires_at, created_at
		FROM password_resets
		WHERE email = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	req := &models.PasswordResetRequest{}
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&req.ID, &req.Email, &req.TokenHash, &req.ExpiresAt, &req.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return req, nil
}

// DeleteByEmail removes all requests for email.
func (r *PostgresRepository) DeleteByEmail(ctx context.Context, email string) error {
	query := `
		DELETE FROM password_resets
		WHERE email = $1
	`
	if _, err := r.db.ExecContext(ctx, query, email); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteOthers removes all requests for email except keepID.
func (r *PostgresRepository) DeleteOthers(ctx context.Context, email, keepID string) error {
	query := `
		DELETE FROM password_resets
		WHERE email = $1 AND id <> $2
	`
	if _, err := r.db.ExecContext(ctx, query, email, keepID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

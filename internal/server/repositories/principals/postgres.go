package principals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/eduportal/internal/common"
	"github.com/dmitrijs2005/eduportal/internal/dbx"
	"github.com/dmitrijs2005/eduportal/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

var tables = map[models.Kind]string{
	models.KindAdmin: "admins",
	models.KindUser:  "users",
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func tableFor(kind models.Kind) (string, error) {
	t, ok := tables[kind]
	if !ok {
		return "", fmt.Errorf("unknown principal kind %q", kind)
	}
	return t, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Principal) (*models.Principal, error) {
	table, err := tableFor(p.Kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (email, password_hash, name, role, must_change_password)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`, table)

	err = r.db.QueryRowContext(ctx, query,
		p.Email, p.PasswordHash, p.Name, p.Role, p.MustChangePassword).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, kind models.Kind, id string) (*models.Principal, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorInvalidID
	}
	return r.getOne(ctx, kind, "id", id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, kind models.Kind, email string) (*models.Principal, error) {
	return r.getOne(ctx, kind, "email", email)
}

func (r *PostgresRepository) getOne(ctx context.Context, kind models.Kind, column string, value string) (*models.Principal, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`SELECT id, email, password_hash, name, role, must_change_password, created_at, updated_at
		 FROM %s
		 WHERE %s = $1`, table, column)

	p := &models.Principal{Kind: kind}
	err = r.db.QueryRowContext(ctx, query, value).Scan(
		&p.ID, &p.Email, &p.PasswordHash, &p.Name, &p.Role, &p.MustChangePassword, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, kind models.Kind, id string, passwordHash string) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return common.ErrorInvalidID
	}

	query := fmt.Sprintf(
		`UPDATE %s
		 SET password_hash = $1, must_change_password = FALSE, updated_at = now()
		 WHERE id = $2`, table)

	res, err := r.db.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

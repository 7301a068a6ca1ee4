package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/eduportal/internal/dbx"
	"github.com/dmitrijs2005/eduportal/internal/server/migrations"
	"github.com/dmitrijs2005/eduportal/internal/server/repositories/principals"
	"github.com/dmitrijs2005/eduportal/internal/server/repositories/resetrequests"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories bound either
// to the pool or to a transaction.
type PostgresRepositoryManager struct {
	db *sql.DB
}

// postgresRepos binds repository constructors to one DBTX.
type postgresRepos struct {
	db dbx.DBTX
}

func (r postgresRepos) Principals() principals.Repository {
	return principals.NewPostgresRepository(r.db)
}

func (r postgresRepos) ResetRequests() resetrequests.Repository {
	return resetrequests.NewPostgresRepository(r.db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// openDB is a seam for testing sql.Open.
var openDB = sql.Open

// NewPostgresRepositoryManager opens a pgx-backed pool for dsn and verifies it.
func NewPostgresRepositoryManager(ctx context.Context, dsn string) (*PostgresRepositoryManager, error) {
	db, err := openDB("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return NewPostgresRepositoryManagerFromDB(db), nil
}

// NewPostgresRepositoryManagerFromDB wraps an already opened pool.
func NewPostgresRepositoryManagerFromDB(db *sql.DB) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{db: db}
}

func (m *PostgresRepositoryManager) Principals() principals.Repository {
	return postgresRepos{db: m.db}.Principals()
}

func (m *PostgresRepositoryManager) ResetRequests() resetrequests.Repository {
	return postgresRepos{db: m.db}.ResetRequests()
}

// RunMigrations sets up goose with the embedded migrations and runs them.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, m.db, "."); err != nil {
		return err
	}
	return nil
}

func (m *PostgresRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, postgresRepos{db: tx})
	})
}

func (m *PostgresRepositoryManager) Close(context.Context) error {
	return m.db.Close()
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/layer-3/tagdesk/adapters/postgres/migrations"
	"github.com/layer-3/tagdesk/ports"
)

// Storage is the PostgreSQL backed credential store and tag repository.
type Storage struct {
	db *pgxpool.Pool
}

// New opens a connection pool and checks the database answers.
func New(ctx context.Context, dbURL string) (*Storage, error) {
	const op = "storage.postgres.New"

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

// Migrate applies pending embedded migrations to the database at dbURL.
func Migrate(dbURL string) error {
	const op = "storage.postgres.Migrate"

	src, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	instance, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(dbURL))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer instance.Close()

	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// migrateURL rewrites a libpq style URL to the scheme the pgx/v5 migrate driver registers.
func migrateURL(dbURL string) string {
	for _, scheme := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dbURL, scheme) {
			return "pgx5://" + strings.TrimPrefix(dbURL, scheme)
		}
	}
	return dbURL
}

// Ping checks the pool.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the connection pool.
func (s *Storage) Close() {
	s.db.Close()
}

var (
	_ ports.UserRepository = (*Storage)(nil)
	_ ports.TagRepository  = (*Storage)(nil)
)

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/layer-3/tagdesk/core"
)

const userColumns = `id, user_name, password_hash`

// FindOneByUserNameAndPassword finds the user matching both name and password digest.
func (s *Storage) FindOneByUserNameAndPassword(ctx context.Context, userName, passwordHash string) (*core.User, error) {
	const op = "storage.postgres.FindOneByUserNameAndPassword"

	query := `SELECT ` + userColumns + ` FROM users WHERE user_name = $1 AND password_hash = $2`

	user, err := s.queryUser(ctx, query, userName, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// FindOneByUserIDAndUserName finds the user by id and name.
func (s *Storage) FindOneByUserIDAndUserName(ctx context.Context, userID int64, userName string) (*core.User, error) {
	const op = "storage.postgres.FindOneByUserIDAndUserName"

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND user_name = $2`

	user, err := s.queryUser(ctx, query, userID, userName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// FindOneByID finds the user by id.
func (s *Storage) FindOneByID(ctx context.Context, userID int64) (*core.User, error) {
	const op = "storage.postgres.FindOneByID"

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := s.queryUser(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// queryUser returns (nil, nil) when no row matches.
func (s *Storage) queryUser(ctx context.Context, query string, args ...any) (*core.User, error) {
	var user core.User
	err := s.db.QueryRow(ctx, query, args...).Scan(
		&user.ID,
		&user.UserName,
		&user.PasswordHash,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return &user, nil
}

// SaveUser inserts a user. Only the integration tests and seed tooling create users.
func (s *Storage) SaveUser(ctx context.Context, user *core.User) error {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users(user_name, password_hash)
		VALUES ($1, $2)
		RETURNING id
	`

	if err := s.db.QueryRow(ctx, query, user.UserName, user.PasswordHash).Scan(&user.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

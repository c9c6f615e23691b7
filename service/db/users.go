package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id::text, public_key, name, image, created_at`

// UpsertUser returns the user for the public key, creating it on first sight.
// An existing row is left untouched; name and image only apply on insert.
func (s *Store) UpsertUser(ctx context.Context, publicKey, name, image string) (_ *User, err error) {
	defer s.observe("upsert", "users", time.Now(), &err)

	query := `
		INSERT INTO users (id, public_key, name, image)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (public_key) DO NOTHING
	`

	if _, err := s.pool.Exec(ctx, query, uuid.NewString(), publicKey, name, image); err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return s.GetUserByPublicKey(ctx, publicKey)
}

// GetUserByPublicKey retrieves a user by wallet public key.
func (s *Store) GetUserByPublicKey(ctx context.Context, publicKey string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE public_key = $1`

	user, err := scanUser(s.pool.QueryRow(ctx, query, publicKey))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrUserNotFound
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(s.pool.QueryRow(ctx, query, uid.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListUsers retrieves all users, newest first.
func (s *Store) ListUsers(ctx context.Context) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.PublicKey, &u.Name, &u.Image, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

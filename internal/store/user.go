package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/qmsworks/qms/internal/models"
)

const userColumns = `id, username, name, email, role, password_hash, created_at`

// UserStore handles account lookups.
type UserStore struct {
	Base
}

// NewUserStore creates a UserStore.
func NewUserStore(base Base) *UserStore {
	return &UserStore{Base: base}
}

// GetByUsername returns the user with the given username.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, "username = $1", username)
}

// GetByID returns the user with the given ID.
func (s *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrUserNotFound
	}

	return s.getUser(ctx, "id = $1", id)
}

func (s *UserStore) getUser(ctx context.Context, cond string, arg any) (*models.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var u models.User

	err := s.Pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE "+cond, arg).
		Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.Role, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}

		return nil, fmt.Errorf("getting user: %w", err)
	}

	return &u, nil
}

// CreateUser inserts an account with an already-hashed password.
func (s *UserStore) CreateUser(ctx context.Context, u *models.User) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	err := s.Pool.QueryRow(ctx, `
		INSERT INTO users (id, username, name, email, role, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		u.ID, u.Username, u.Name, u.Email, u.Role, u.PasswordHash,
	).Scan(&u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrDuplicateKey
		}

		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

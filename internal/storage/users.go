package storage

import (
	"context"

	"github.com/cuongbtq/gigmarket/internal/domain"
	"github.com/cuongbtq/gigmarket/shared/postgresql"
)

const userColumns = `id, email, full_name, password_hash, created_at`

// CreateUser registers a new account
func (s *Storage) CreateUser(ctx context.Context, email, fullName, passwordHash string) (*domain.User, error) {
	query := `
		INSERT INTO users (email, full_name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns

	var user domain.User
	if err := s.db.GetContext(ctx, &user, query, email, fullName, passwordHash); err != nil {
		if postgresql.IsUniqueViolation(err, "users_email_key") {
			return nil, domain.ErrEmailTaken
		}
		return nil, unavailable(err, "create user")
	}

	return &user, nil
}

// GetUserByEmail retrieves an account by email
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := s.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		return nil, notFound(err, domain.ErrUserNotFound, "get user by email")
	}
	return &user, nil
}

// GetUser retrieves an account by ID
func (s *Storage) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var user domain.User
	err := s.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	if err != nil {
		return nil, notFound(err, domain.ErrUserNotFound, "get user")
	}
	return &user, nil
}

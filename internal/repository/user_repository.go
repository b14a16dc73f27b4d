package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// UserRepository reads the user directory maintained by the auth service.
// Read-only here: this service only needs an email address to notify.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) EmailForUser(ctx context.Context, userID uuid.UUID) (string, error) {
	query := `SELECT email FROM users WHERE id = $1`

	var email string
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("user not found: %s", userID)
		}
		return "", fmt.Errorf("user lookup error: %w", err)
	}

	return email, nil
}

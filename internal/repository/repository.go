package repository

import (
	"context"
	"time"

	"github.com/nkiryanov/nihondrill/internal/models"
)

// User repository interface
type UserRepo interface {
	// Create user or update its name if user with the email exists
	// Email is the uniqueness key, it is stored as is
	Upsert(ctx context.Context, name string, email string) (models.User, error)

	// Get user by id
	// If user not found must return apperrors.ErrUserNotFound
	GetByID(ctx context.Context, userID int64) (models.User, error)
}

// AuthToken (session) repository interface
type AuthTokenRepo interface {
	// Create token in repository
	// If the token owner does not exist must return apperrors.ErrUserNotFound
	Create(ctx context.Context, token models.AuthToken) (models.AuthToken, error)

	// Return the owner of the token with the signature
	// Tokens with expires <= validAt are ignored
	// If nothing matches must return apperrors.ErrAuthTokenNotFound
	GetUserBySignature(ctx context.Context, signature string, validAt time.Time) (models.User, error)

	// Delete user tokens with expires <= now
	DeleteExpired(ctx context.Context, userID int64, now time.Time) (deleted int64, err error)

	// Delete all user tokens
	DeleteByUser(ctx context.Context, userID int64) (deleted int64, err error)

	// List user tokens ordered by id
	ListByUser(ctx context.Context, userID int64) ([]models.AuthToken, error)
}

type Storage interface {
	User() UserRepo
	AuthToken() AuthTokenRepo

	// Run fn in transaction: commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}

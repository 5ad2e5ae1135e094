package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/nihondrill/internal/apperrors"
	"github.com/nkiryanov/nihondrill/internal/models"
)

type AuthTokenRepo struct {
	DB DBTX
}

const createAuthToken = `-- name: CreateAuthToken
INSERT INTO nd.auth_tokens (signature, user_id, expires)
VALUES ($1, $2, $3)
RETURNING id, created, modified, expires, signature, user_id
`

func (r *AuthTokenRepo) Create(ctx context.Context, token models.AuthToken) (models.AuthToken, error) {
	rows, _ := r.DB.Query(ctx, createAuthToken, token.Signature, token.UserID, token.Expires)
	created, err := pgx.CollectOneRow(rows, rowToAuthToken)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return created, fmt.Errorf("repo error: %w", apperrors.ErrUserNotFound)
		}

		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const getUserBySignature = `-- name: GetUserBySignature
SELECT u.id, u.created, u.modified, u.name, u.email
FROM nd.auth_tokens t
    INNER JOIN nd.users u ON u.id = t.user_id
WHERE t.signature = $1
    AND t.expires > $2
`

func (r *AuthTokenRepo) GetUserBySignature(ctx context.Context, signature string, validAt time.Time) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserBySignature, signature, validAt)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, fmt.Errorf("repo error: %w", apperrors.ErrAuthTokenNotFound)
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const deleteExpiredAuthTokens = `-- name: DeleteExpiredAuthTokens
DELETE FROM nd.auth_tokens
WHERE user_id = $1
    AND expires <= $2
`

func (r *AuthTokenRepo) DeleteExpired(ctx context.Context, userID int64, now time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteExpiredAuthTokens, userID, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return tag.RowsAffected(), nil
}

const deleteUserAuthTokens = `-- name: DeleteUserAuthTokens
DELETE FROM nd.auth_tokens
WHERE user_id = $1
`

func (r *AuthTokenRepo) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteUserAuthTokens, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return tag.RowsAffected(), nil
}

const listUserAuthTokens = `-- name: ListUserAuthTokens
SELECT id, created, modified, expires, signature, user_id
FROM nd.auth_tokens
WHERE user_id = $1
ORDER BY id
`

func (r *AuthTokenRepo) ListByUser(ctx context.Context, userID int64) ([]models.AuthToken, error) {
	rows, _ := r.DB.Query(ctx, listUserAuthTokens, userID)
	tokens, err := pgx.CollectRows(rows, rowToAuthToken)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return tokens, nil
}

func rowToAuthToken(row pgx.CollectableRow) (models.AuthToken, error) {
	var t models.AuthToken
	err := row.Scan(&t.ID, &t.Created, &t.Modified, &t.Expires, &t.Signature, &t.UserID)
	return t, err
}

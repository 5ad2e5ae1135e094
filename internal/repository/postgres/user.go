package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/nihondrill/internal/apperrors"
	"github.com/nkiryanov/nihondrill/internal/models"
)

type UserRepo struct {
	DB DBTX
}

const upsertUser = `-- name: UpsertUser
INSERT INTO nd.users (name, email)
VALUES ($1, $2)
ON CONFLICT (email) DO UPDATE
SET modified = now(),
    name = excluded.name
RETURNING id, created, modified, name, email
`

func (r *UserRepo) Upsert(ctx context.Context, name string, email string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, upsertUser, name, email)
	user, err := pgx.CollectOneRow(rows, rowToUser)
	if err != nil {
		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByID = `-- name: GetUserByID
SELECT id, created, modified, name, email
FROM nd.users
WHERE id = $1
`

func (r *UserRepo) GetByID(ctx context.Context, userID int64) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, userID)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Created, &u.Modified, &u.Name, &u.Email)
	return u, err
}

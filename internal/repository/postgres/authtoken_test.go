package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/nihondrill/internal/apperrors"
	"github.com/nkiryanov/nihondrill/internal/models"
	"github.com/nkiryanov/nihondrill/internal/testutil"
)

func mustParseTime(value string) time.Time {
	dt, err := time.Parse("2006-01-02 15:04:05Z07:00", value)
	if err != nil {
		panic(err)
	}
	return dt
}

func Test_AuthTokenRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	now := mustParseTime("2025-06-01 12:00:00Z")

	// Create user and return repo bound to the same transaction
	setup := func(t *testing.T, tx pgx.Tx) (AuthTokenRepo, models.User) {
		user, err := (&UserRepo{DB: tx}).Upsert(t.Context(), "Aiko", "aiko@example.com")
		require.NoError(t, err)
		return AuthTokenRepo{DB: tx}, user
	}

	t.Run("create token ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo, user := setup(t, tx)

			got, err := repo.Create(t.Context(), models.AuthToken{
				Signature: "sig-1",
				UserID:    user.ID,
				Expires:   now.Add(time.Hour),
			})

			require.NoError(t, err)
			assert.Greater(t, got.ID, int64(0))
			assert.Equal(t, "sig-1", got.Signature)
			assert.Equal(t, user.ID, got.UserID)
			assert.WithinDuration(t, now.Add(time.Hour), got.Expires, 0)
			assert.WithinDuration(t, time.Now(), got.Created, time.Second)
		})
	})

	t.Run("create token for unknown user", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := AuthTokenRepo{DB: tx}

			_, err := repo.Create(t.Context(), models.AuthToken{Signature: "sig", UserID: 424242, Expires: now})

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("get user by signature", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo, user := setup(t, tx)
			_, err := repo.Create(t.Context(), models.AuthToken{Signature: "sig-1", UserID: user.ID, Expires: now.Add(time.Hour)})
			require.NoError(t, err)

			got, err := repo.GetUserBySignature(t.Context(), "sig-1", now)

			require.NoError(t, err)
			assert.Equal(t, user, got)
		})
	})

	t.Run("get user by unknown signature", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo, _ := setup(t, tx)

			_, err := repo.GetUserBySignature(t.Context(), "unknown", now)

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrAuthTokenNotFound)
		})
	})

	t.Run("get user by expired signature", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo, user := setup(t, tx)
			_, err := repo.Create(t.Context(), models.AuthToken{Signature: "sig-1", UserID: user.ID, Expires: now})
			require.NoError(t, err)

			_, err = repo.GetUserBySignature(t.Context(), "sig-1", now)

			require.Error(t, err, "token with expires == now is not valid anymore")
			assert.ErrorIs(t, err, apperrors.ErrAuthTokenNotFound)
		})
	})

	t.Run("delete expired keeps valid tokens", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo, user := setup(t, tx)
			other, err := (&UserRepo{DB: tx}).Upsert(t.Context(), "Other", "other@example.com")
			require.NoError(t, err)

			for _, tok := range []models.AuthToken{
				{Signature: "expired-long-ago", UserID: user.ID, Expires: now.Add(-24 * time.Hour)},
				{Signature: "expired-now", UserID: user.ID, Expires: now},
				{Signature: "valid", UserID: user.ID, Expires: now.Add(time.Second)},
				{Signature: "other-expired", UserID: other.ID, Expires: now.Add(-time.Hour)},
			} {
				_, err := repo.Create(t.Context(), tok)
				require.NoError(t, err)
			}

			deleted, err := repo.DeleteExpired(t.Context(), user.ID, now)

			require.NoError(t, err)
			assert.Equal(t, int64(2), deleted)

			left, err := repo.ListByUser(t.Context(), user.ID)
			require.NoError(t, err)
			require.Len(t, left, 1)
			assert.Equal(t, "valid", left[0].Signature)

			otherLeft, err := repo.ListByUser(t.Context(), other.ID)
			require.NoError(t, err)
			assert.Len(t, otherLeft, 1, "other user tokens must not be touched")
		})
	})

	t.Run("delete by user", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo, user := setup(t, tx)
			for _, sig := range []string{"a", "b", "c"} {
				_, err := repo.Create(t.Context(), models.AuthToken{Signature: sig, UserID: user.ID, Expires: now.Add(time.Hour)})
				require.NoError(t, err)
			}

			deleted, err := repo.DeleteByUser(t.Context(), user.ID)

			require.NoError(t, err)
			assert.Equal(t, int64(3), deleted)
			left, err := repo.ListByUser(t.Context(), user.ID)
			require.NoError(t, err)
			assert.Empty(t, left)
		})
	})
}

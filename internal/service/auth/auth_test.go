package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/nihondrill/internal/apperrors"
	"github.com/nkiryanov/nihondrill/internal/metrics"
	"github.com/nkiryanov/nihondrill/internal/models"
	"github.com/nkiryanov/nihondrill/internal/service/auth/signer"
)

// In-memory auth token repo with hooks to inject failures
type fakeTokens struct {
	tokens []models.AuthToken
	users  map[int64]models.User

	lookups  int
	cleanups int

	lookupErr  error
	cleanupErr error

	lookupDeadline bool
}

func newFakeTokens(users ...models.User) *fakeTokens {
	f := &fakeTokens{users: make(map[int64]models.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeTokens) Create(ctx context.Context, token models.AuthToken) (models.AuthToken, error) {
	if _, ok := f.users[token.UserID]; !ok {
		return token, apperrors.ErrUserNotFound
	}
	token.ID = int64(len(f.tokens) + 1)
	f.tokens = append(f.tokens, token)
	return token, nil
}

func (f *fakeTokens) GetUserBySignature(ctx context.Context, signature string, validAt time.Time) (models.User, error) {
	f.lookups++
	_, f.lookupDeadline = ctx.Deadline()
	if f.lookupErr != nil {
		return models.User{}, f.lookupErr
	}
	for _, t := range f.tokens {
		if t.Signature == signature && t.Expires.After(validAt) {
			return f.users[t.UserID], nil
		}
	}
	return models.User{}, apperrors.ErrAuthTokenNotFound
}

func (f *fakeTokens) DeleteExpired(ctx context.Context, userID int64, now time.Time) (int64, error) {
	f.cleanups++
	if f.cleanupErr != nil {
		return 0, f.cleanupErr
	}
	var deleted int64
	kept := f.tokens[:0]
	for _, t := range f.tokens {
		if t.UserID == userID && !t.Expires.After(now) {
			deleted++
			continue
		}
		kept = append(kept, t)
	}
	f.tokens = kept
	return deleted, nil
}

func (f *fakeTokens) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	var deleted int64
	kept := f.tokens[:0]
	for _, t := range f.tokens {
		if t.UserID == userID {
			deleted++
			continue
		}
		kept = append(kept, t)
	}
	f.tokens = kept
	return deleted, nil
}

func (f *fakeTokens) ListByUser(ctx context.Context, userID int64) ([]models.AuthToken, error) {
	var res []models.AuthToken
	for _, t := range f.tokens {
		if t.UserID == userID {
			res = append(res, t)
		}
	}
	return res, nil
}

func newTestSigner(t *testing.T) *signer.Signer {
	t.Helper()
	s, err := signer.New([]byte("01234567890123456789012345678901"))
	require.NoError(t, err)
	return s
}

func newTestService(t *testing.T, cfg Config, tokens *fakeTokens) (*Service, *metrics.Metrics) {
	t.Helper()
	m := metrics.NewNoOp()
	s, err := NewService(cfg, newTestSigner(t), tokens, nil, m)
	require.NoError(t, err)
	return s, m
}

func TestNewService(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		s, err := NewService(Config{}, newTestSigner(t), newFakeTokens(), nil, nil)

		require.NoError(t, err)
		assert.Equal(t, 30*24*time.Hour, s.expiration)
		assert.Equal(t, 5*time.Second, s.queryTimeout)
		assert.NotNil(t, s.logger)
		assert.NotNil(t, s.metrics)
	})

	t.Run("config values", func(t *testing.T) {
		s, err := NewService(Config{AuthExpiration: time.Minute, QueryTimeout: time.Second}, newTestSigner(t), newFakeTokens(), nil, nil)

		require.NoError(t, err)
		assert.Equal(t, time.Minute, s.expiration)
		assert.Equal(t, time.Second, s.queryTimeout)
	})

	t.Run("nil dependencies", func(t *testing.T) {
		_, err := NewService(Config{}, nil, newFakeTokens(), nil, nil)
		require.Error(t, err)

		_, err = NewService(Config{}, newTestSigner(t), nil, nil, nil)
		require.Error(t, err)
	})
}

func TestService_Issue(t *testing.T) {
	user := models.User{ID: 7, Name: "Hana", Email: "hana@example.com"}
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("stores signature not secret", func(t *testing.T) {
		tokens := newFakeTokens(user)
		s, m := newTestService(t, Config{AuthExpiration: time.Hour}, tokens)
		s.now = func() time.Time { return now }

		secret, token, err := s.Issue(t.Context(), user.ID)

		require.NoError(t, err)
		require.NotEmpty(t, secret)
		assert.Equal(t, s.signer.Sign(secret), token.Signature)
		assert.NotEqual(t, secret, token.Signature, "raw secret must never be stored")
		assert.Equal(t, user.ID, token.UserID)
		assert.Equal(t, now.Add(time.Hour), token.Expires)
		require.Len(t, tokens.tokens, 1)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Issued))
	})

	t.Run("unknown user", func(t *testing.T) {
		s, _ := newTestService(t, Config{}, newFakeTokens())

		secret, _, err := s.Issue(t.Context(), 42)

		require.ErrorIs(t, err, apperrors.ErrUserNotFound)
		assert.Empty(t, secret, "secret must not be disclosed when token is not saved")
	})
}

func TestService_Resolve(t *testing.T) {
	user := models.User{ID: 7, Name: "Hana", Email: "hana@example.com"}

	t.Run("round trip", func(t *testing.T) {
		tokens := newFakeTokens(user)
		s, m := newTestService(t, Config{}, tokens)
		secret, _, err := s.Issue(t.Context(), user.ID)
		require.NoError(t, err)

		got, ok, err := s.Resolve(t.Context(), secret)

		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, user, got)
		assert.True(t, tokens.lookupDeadline, "lookup must be bounded by timeout")
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Resolutions.WithLabelValues(metrics.ResultAuthenticated)))
	})

	t.Run("no token does not touch storage", func(t *testing.T) {
		tokens := newFakeTokens(user)
		s, _ := newTestService(t, Config{}, tokens)

		_, ok, err := s.Resolve(t.Context(), "")

		require.NoError(t, err)
		assert.False(t, ok)
		assert.Zero(t, tokens.lookups, "no lookup expected")
		assert.Zero(t, tokens.cleanups, "no cleanup expected")
	})

	t.Run("garbage token", func(t *testing.T) {
		tokens := newFakeTokens(user)
		s, m := newTestService(t, Config{}, tokens)
		_, _, err := s.Issue(t.Context(), user.ID)
		require.NoError(t, err)

		_, ok, err := s.Resolve(t.Context(), "not-a-real-token")

		require.NoError(t, err, "unknown token is not an error")
		assert.False(t, ok)
		assert.Zero(t, tokens.cleanups, "cleanup runs only for resolved users")
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Resolutions.WithLabelValues(metrics.ResultAnonymous)))
	})

	t.Run("storage error propagates", func(t *testing.T) {
		tokens := newFakeTokens(user)
		tokens.lookupErr = errors.New("connection refused")
		s, m := newTestService(t, Config{}, tokens)

		_, ok, err := s.Resolve(t.Context(), "some-token")

		require.Error(t, err)
		assert.NotErrorIs(t, err, apperrors.ErrAuthTokenNotFound)
		assert.False(t, ok)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Resolutions.WithLabelValues(metrics.ResultError)))
	})

	t.Run("cleanup removes expired keeps valid", func(t *testing.T) {
		now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		other := models.User{ID: 8, Name: "Ren"}
		tokens := newFakeTokens(user, other)
		tokens.tokens = []models.AuthToken{
			{ID: 100, UserID: user.ID, Signature: "old", Expires: now.Add(-time.Hour)},
			{ID: 101, UserID: user.ID, Signature: "valid", Expires: now.Add(time.Hour)},
			{ID: 102, UserID: other.ID, Signature: "other-old", Expires: now.Add(-time.Hour)},
		}
		s, m := newTestService(t, Config{}, tokens)
		s.now = func() time.Time { return now }
		secret, _, err := s.Issue(t.Context(), user.ID)
		require.NoError(t, err)

		_, ok, err := s.Resolve(t.Context(), secret)

		require.NoError(t, err)
		require.True(t, ok)
		left, err := tokens.ListByUser(t.Context(), user.ID)
		require.NoError(t, err)
		require.Len(t, left, 2, "only expired token of the user should be deleted")
		assert.Equal(t, "valid", left[0].Signature)
		otherLeft, err := tokens.ListByUser(t.Context(), other.ID)
		require.NoError(t, err)
		assert.Len(t, otherLeft, 1, "other user tokens are not touched")
		assert.Equal(t, 1.0, testutil.ToFloat64(m.ExpiredDeleted))
	})

	t.Run("cleanup error swallowed", func(t *testing.T) {
		tokens := newFakeTokens(user)
		tokens.cleanupErr = errors.New("deadlock detected")
		s, m := newTestService(t, Config{}, tokens)
		secret, _, err := s.Issue(t.Context(), user.ID)
		require.NoError(t, err)

		got, ok, err := s.Resolve(t.Context(), secret)

		require.NoError(t, err, "cleanup failure must not fail resolve")
		require.True(t, ok)
		assert.Equal(t, user, got)
		assert.Equal(t, 1, tokens.cleanups)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.CleanupFailures))
	})

	t.Run("expired session does not resolve", func(t *testing.T) {
		now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		tokens := newFakeTokens(user)
		s, _ := newTestService(t, Config{AuthExpiration: time.Second}, tokens)
		s.now = func() time.Time { return now }
		secret, _, err := s.Issue(t.Context(), user.ID)
		require.NoError(t, err)

		s.now = func() time.Time { return now.Add(2 * time.Second) }
		_, ok, err := s.Resolve(t.Context(), secret)

		require.NoError(t, err)
		assert.False(t, ok, "expired session must not authenticate even if not cleaned up yet")
		assert.Len(t, tokens.tokens, 1, "row stays until cleanup is triggered by another lookup")
	})

	t.Run("canceled context", func(t *testing.T) {
		tokens := newFakeTokens(user)
		s, _ := newTestService(t, Config{}, tokens)
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		tokens.lookupErr = ctx.Err()

		_, ok, err := s.Resolve(ctx, "token")

		require.ErrorIs(t, err, context.Canceled)
		assert.False(t, ok)
	})
}

func TestService_RevokeAll(t *testing.T) {
	user := models.User{ID: 7}
	tokens := newFakeTokens(user)
	s, _ := newTestService(t, Config{}, tokens)
	for range 3 {
		_, _, err := s.Issue(t.Context(), user.ID)
		require.NoError(t, err)
	}

	deleted, err := s.RevokeAll(t.Context(), user.ID)

	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.Empty(t, tokens.tokens)
}

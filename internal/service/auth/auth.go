package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nkiryanov/nihondrill/internal/apperrors"
	"github.com/nkiryanov/nihondrill/internal/logger"
	"github.com/nkiryanov/nihondrill/internal/metrics"
	"github.com/nkiryanov/nihondrill/internal/models"
	"github.com/nkiryanov/nihondrill/internal/repository"
	"github.com/nkiryanov/nihondrill/internal/service/auth/signer"
)

const (
	defaultAuthExpiration = 30 * 24 * time.Hour
	defaultQueryTimeout   = 5 * time.Second
)

// Auth service config with sensible defaults
type Config struct {
	// Lifetime of issued sessions
	// If not set than default is used
	AuthExpiration time.Duration

	// Upper bound of every storage query made on session resolve
	// Request deadline applies as well, whichever comes first
	// If not set than default is used
	QueryTimeout time.Duration
}

// Auth service: issues sessions and resolves bearer secrets to users
type Service struct {
	signer  *signer.Signer
	tokens  repository.AuthTokenRepo
	logger  logger.Logger
	metrics *metrics.Metrics

	expiration   time.Duration
	queryTimeout time.Duration

	now func() time.Time
}

func NewService(
	cfg Config,
	s *signer.Signer,
	tokens repository.AuthTokenRepo,
	l logger.Logger,
	m *metrics.Metrics,
) (*Service, error) {
	if s == nil || tokens == nil {
		return nil, errors.New("signer and auth token repo must not be nil")
	}

	if l == nil {
		l = logger.NewNoOpLogger()
	}
	if m == nil {
		m = metrics.NewNoOp()
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field <= 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AuthExpiration, defaultAuthExpiration)
	setDefaultDuration(&cfg.QueryTimeout, defaultQueryTimeout)

	return &Service{
		signer:       s,
		tokens:       tokens,
		logger:       l,
		metrics:      m,
		expiration:   cfg.AuthExpiration,
		queryTimeout: cfg.QueryTimeout,
		now:          time.Now,
	}, nil
}

// Issue creates a session for the user
// The returned secret is disclosed only here, it can't be recovered from storage later
func (s *Service) Issue(ctx context.Context, userID int64) (string, models.AuthToken, error) {
	secret, err := newBearerSecret()
	if err != nil {
		return "", models.AuthToken{}, fmt.Errorf("error while generating bearer secret. Err: %w", err)
	}

	token, err := s.tokens.Create(ctx, models.AuthToken{
		Signature: s.signer.Sign(secret),
		UserID:    userID,
		Expires:   s.now().Add(s.expiration),
	})
	if err != nil {
		return "", token, fmt.Errorf("error while saving auth token. Err: %w", err)
	}

	s.metrics.Issued.Inc()
	s.logger.Info("auth token issued", "user_id", userID, "token_id", token.ID, "expires", token.Expires)

	return secret, token, nil
}

// Resolve returns the owner of the bearer secret
//
// Empty or unknown secret is not an error: ok is false and storage error is nil.
// Sessions with expires <= now never resolve. On success the user's expired
// sessions are deleted, failing to delete them is logged but not returned.
func (s *Service) Resolve(ctx context.Context, token string) (user models.User, ok bool, err error) {
	if token == "" {
		s.metrics.Resolutions.WithLabelValues(metrics.ResultAnonymous).Inc()
		return user, false, nil
	}

	now := s.now()
	user, err = s.lookup(ctx, token, now)

	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrAuthTokenNotFound):
		s.metrics.Resolutions.WithLabelValues(metrics.ResultAnonymous).Inc()
		return models.User{}, false, nil
	default:
		s.metrics.Resolutions.WithLabelValues(metrics.ResultError).Inc()
		return models.User{}, false, fmt.Errorf("error while resolving session. Err: %w", err)
	}

	s.metrics.Resolutions.WithLabelValues(metrics.ResultAuthenticated).Inc()
	s.logger.Debug("current user", "user_id", user.ID)

	s.cleanupExpired(ctx, user.ID, now)

	return user, true, nil
}

// RevokeAll deletes every session of the user
func (s *Service) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	deleted, err := s.tokens.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("error while revoking auth tokens. Err: %w", err)
	}

	s.logger.Info("auth tokens revoked", "user_id", userID, "deleted", deleted)
	return deleted, nil
}

func (s *Service) lookup(ctx context.Context, token string, now time.Time) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	return s.tokens.GetUserBySignature(ctx, s.signer.Sign(token), now)
}

// Best effort: never fails the caller
func (s *Service) cleanupExpired(ctx context.Context, userID int64, now time.Time) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	deleted, err := s.tokens.DeleteExpired(ctx, userID, now)
	if err != nil {
		s.metrics.CleanupFailures.Inc()
		s.logger.Warn("error deleting expired auth tokens, continuing", "user_id", userID, "error", err)
		return
	}

	if deleted > 0 {
		s.metrics.ExpiredDeleted.Add(float64(deleted))
		s.logger.Debug("expired auth tokens deleted", "user_id", userID, "deleted", deleted)
	}
}

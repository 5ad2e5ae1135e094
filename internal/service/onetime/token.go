package onetime

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/nihondrill/internal/apperrors"
	"github.com/nkiryanov/nihondrill/internal/metrics"
	"github.com/nkiryanov/nihondrill/internal/models"
)

const signingMethod = "HS256"

// Purpose used to derive the issuer key from the signing key
const KeyPurpose = "one-time-token"

type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"uid"`
}

// Issuer mints signed single use tokens bound to a user
// Token lifetime equals the cache ttl
type Issuer struct {
	key     []byte
	alg     jwt.SigningMethod
	cache   *Cache
	metrics *metrics.Metrics

	now func() time.Time
}

func NewIssuer(key []byte, cache *Cache, m *metrics.Metrics) (*Issuer, error) {
	if len(key) == 0 {
		return nil, errors.New("one-time token key must not be empty")
	}
	if cache == nil {
		return nil, errors.New("one-time token cache must not be nil")
	}
	if m == nil {
		m = metrics.NewNoOp()
	}

	return &Issuer{
		key:     key,
		alg:     jwt.GetSigningMethod(signingMethod),
		cache:   cache,
		metrics: m,
		now:     time.Now,
	}, nil
}

// Issue signs new token for the user and registers it in the cache
func (i *Issuer) Issue(userID int64) (models.OneTimeToken, error) {
	now := i.now()
	expiresAt := now.Add(i.cache.TTL())

	token := jwt.NewWithClaims(i.alg, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
	})

	value, err := token.SignedString(i.key)
	if err != nil {
		return models.OneTimeToken{}, fmt.Errorf("error while signing one-time token. Err: %w", err)
	}

	i.cache.Put(value)

	return models.OneTimeToken{Value: value, ExpiresAt: expiresAt}, nil
}

// Redeem verifies token belongs to the user and consumes it
// Returns apperrors.ErrOneTimeTokenInvalid if token is forged, expired or issued for another user
// Returns apperrors.ErrOneTimeTokenUsed if token was already consumed or evicted
func (i *Issuer) Redeem(value string, userID int64) error {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(
		value,
		claims,
		func(t *jwt.Token) (any, error) {
			return i.key, nil
		},
		jwt.WithValidMethods([]string{i.alg.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		i.metrics.OneTimeTokens.WithLabelValues(metrics.ResultInvalid).Inc()
		return fmt.Errorf("%w: %w", apperrors.ErrOneTimeTokenInvalid, err)
	}

	if claims.UserID != userID {
		i.metrics.OneTimeTokens.WithLabelValues(metrics.ResultInvalid).Inc()
		return fmt.Errorf("%w: issued for another user", apperrors.ErrOneTimeTokenInvalid)
	}

	if !i.cache.Consume(value) {
		i.metrics.OneTimeTokens.WithLabelValues(metrics.ResultReplayed).Inc()
		return apperrors.ErrOneTimeTokenUsed
	}

	i.metrics.OneTimeTokens.WithLabelValues(metrics.ResultRedeemed).Inc()
	return nil
}

package handlers

import (
	"context"
	"net/http"

	"github.com/nkiryanov/nihondrill/internal/handlers/middleware"
	"github.com/nkiryanov/nihondrill/internal/logger"
	"github.com/nkiryanov/nihondrill/internal/models"
)

// Anonymous landing route, requests without session are redirected here
const WelcomePath = "/welcome"

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	oneTimeService oneTimeService,
	version string,
	metrics http.Handler,
	logger logger.Logger,
) http.Handler {
	withAuth := middleware.AuthGate(authService, WelcomePath, logger)

	mux := http.NewServeMux()

	mux.Handle("GET /{$}", withAuth(handleHome()))
	mux.Handle("GET "+WelcomePath, handleWelcome())
	mux.Handle("/status", handleStatus(version))
	mux.Handle("GET /metrics", metrics)

	mux.Handle("POST /api/confirmations", withAuth(handleCreateConfirmation(oneTimeService, logger)))
	mux.Handle("POST /api/sessions/revoke", withAuth(handleRevokeSessions(authService, oneTimeService, logger)))

	handler := chain(mux,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Resolve bearer secret to its owner
	// Unknown or empty secret is not an error: has to return ok=false
	Resolve(ctx context.Context, token string) (user models.User, ok bool, err error)

	// Delete every session of the user
	RevokeAll(ctx context.Context, userID int64) (int64, error)
}

type oneTimeService interface {
	// Issue single use token for the user
	Issue(userID int64) (models.OneTimeToken, error)

	// Consume token issued for the user
	// Has to return apperrors.ErrOneTimeTokenInvalid if token is not valid for the user
	// Has to return apperrors.ErrOneTimeTokenUsed if token is consumed already
	Redeem(value string, userID int64) error
}

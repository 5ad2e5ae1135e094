package middleware

import (
	"context"
	"net/http"

	"github.com/nkiryanov/nihondrill/internal/handlers/render"
	"github.com/nkiryanov/nihondrill/internal/handlers/userctx"
	"github.com/nkiryanov/nihondrill/internal/models"
)

type sessionResolver interface {
	Resolve(ctx context.Context, token string) (models.User, bool, error)
}

type gateLogger interface {
	Debug(msg string, args ...any)
	Error(msg string, args ...any)
}

// AuthGate lets through requests with a valid session only
// Requests without session are redirected to redirectTo, storage failures end with 500
func AuthGate(sr sessionResolver, redirectTo string, l gateLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := AuthTokenFromRequest(r)
			if token == "" {
				l.Debug("no auth token cookie found", "uri", r.RequestURI)
			}

			user, ok, err := sr.Resolve(r.Context(), token)
			switch {
			case err != nil:
				l.Error("error while resolving session", "uri", r.RequestURI, "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
				return
			case !ok:
				http.Redirect(w, r, redirectTo, http.StatusFound)
				return
			}

			ctx := userctx.New(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

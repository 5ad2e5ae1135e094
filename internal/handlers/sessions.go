package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/nkiryanov/nihondrill/internal/apperrors"
	"github.com/nkiryanov/nihondrill/internal/handlers/middleware"
	"github.com/nkiryanov/nihondrill/internal/handlers/render"
	"github.com/nkiryanov/nihondrill/internal/handlers/userctx"
	"github.com/nkiryanov/nihondrill/internal/logger"
)

func handleCreateConfirmation(s oneTimeService, logger logger.Logger) http.Handler {
	type response struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := userctx.FromContext(r.Context())

		token, err := s.Issue(user.ID)
		if err != nil {
			logger.Error("error while issuing one-time token", "user_id", user.ID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{Token: token.Value, ExpiresAt: token.ExpiresAt})
	})
}

func handleRevokeSessions(auth authService, s oneTimeService, logger logger.Logger) http.Handler {
	type request struct {
		Confirmation string `json:"confirmation" validate:"required,max=4096"`
	}
	type response struct {
		Revoked int64 `json:"revoked"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := userctx.FromContext(r.Context())

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		err = s.Redeem(data.Confirmation, user.ID)
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrOneTimeTokenUsed):
			render.ServiceError(w, "Confirmation already used or expired", http.StatusConflict)
			return
		default:
			logger.Debug("invalid confirmation", "user_id", user.ID, "error", err)
			render.ServiceError(w, "Confirmation is invalid", http.StatusBadRequest)
			return
		}

		revoked, err := auth.RevokeAll(r.Context(), user.ID)
		if err != nil {
			logger.Error("error while revoking sessions", "user_id", user.ID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		middleware.ClearAuthCookie(w)
		render.JSON(w, response{Revoked: revoked})
	})
}

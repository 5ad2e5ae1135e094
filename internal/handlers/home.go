package handlers

import (
	"fmt"
	"net/http"

	"github.com/nkiryanov/nihondrill/internal/handlers/render"
	"github.com/nkiryanov/nihondrill/internal/handlers/userctx"
)

func handleHome() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := userctx.FromContext(r.Context())
		render.Text(w, fmt.Sprintf("Hello, %s!", user.Name), http.StatusOK)
	})
}

func handleWelcome() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		render.Text(w, "Hello, stranger!", http.StatusOK)
	})
}

func handleStatus(version string) http.Handler {
	type response struct {
		OK      string `json:"ok"`
		Version string `json:"version"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, response{OK: "ok", Version: version})
	})
}

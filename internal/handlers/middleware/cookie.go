package middleware

import (
	"net/http"
)

// Cookie that carries the bearer secret
const AuthCookieName = "auth_token"

// AuthTokenFromRequest returns bearer secret from the auth cookie or empty string
func AuthTokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(AuthCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// ClearAuthCookie asks the client to drop the auth cookie
func ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

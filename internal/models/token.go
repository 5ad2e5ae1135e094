package models

import (
	"time"
)

// Session record of a bearer secret issued to a user
// Only the signature of the secret is stored, never the secret itself
type AuthToken struct {
	ID        int64
	Created   time.Time
	Modified  time.Time
	Expires   time.Time
	Signature string // hex encoded keyed hash of the bearer secret
	UserID    int64
}

// Meaningful only while now < Expires
func (t AuthToken) IsExpired(now time.Time) bool {
	return !now.Before(t.Expires)
}

// Short-lived single use token handed to the client
type OneTimeToken struct {
	Value     string
	ExpiresAt time.Time
}

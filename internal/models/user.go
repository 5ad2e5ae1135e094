package models

import (
	"time"
)

type User struct {
	ID       int64
	Created  time.Time
	Modified time.Time
	Name     string
	Email    string
}

package auth

import (
	"errors"
	"time"
	"unicode"
	"unicode/utf8"
)

const maxUsernameLength = 128

// IsValidUsername reports whether username can be stored. Usernames are
// opaque: any valid UTF-8 of 1-128 characters without control characters.
func IsValidUsername(username string) bool {
	if username == "" || !utf8.ValidString(username) || utf8.RuneCountInString(username) > maxUsernameLength {
		return false
	}
	for _, r := range username {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// User is a provisioned account. Accounts are never created or deleted by
// the request path, only by seeding.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never serialised
	CreatedAt    time.Time `json:"created_at"`
}

// Sentinel errors.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUsernameExists   = errors.New("username already exists")
	ErrInvalidUsername  = errors.New("invalid username")
	ErrStoreUnavailable = errors.New("credential store unavailable")
)

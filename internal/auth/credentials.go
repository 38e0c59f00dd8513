package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Credentials answers "does this password belong to this user".
type Credentials struct {
	users  UserRepository
	scheme SecretScheme

	// dummy is verified against when the user is unknown so that response
	// time does not reveal which usernames exist.
	dummyOnce sync.Once
	dummy     string
}

// NewCredentials creates a verifier over users using scheme for stored secrets.
func NewCredentials(users UserRepository, scheme SecretScheme) *Credentials {
	return &Credentials{users: users, scheme: scheme}
}

// Verify reports whether password matches the stored secret for username.
// An unknown user yields false. Only store faults return an error, and
// those always wrap ErrStoreUnavailable.
func (c *Credentials) Verify(ctx context.Context, username, password string) (bool, error) {
	user, err := c.users.GetByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		c.burn(password)
		return false, nil
	}
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			return false, err
		}
		return false, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	ok, err := c.scheme.Verify(password, user.PasswordHash)
	if err != nil {
		// A stored secret we cannot parse is store corruption, not a bad password.
		return false, fmt.Errorf("%w: user %q: %w", ErrStoreUnavailable, username, err)
	}
	return ok, nil
}

func (c *Credentials) burn(password string) {
	c.dummyOnce.Do(func() {
		c.dummy, _ = c.scheme.Hash("geogate-dummy-secret") //nolint:errcheck // best effort
	})
	_, _ = c.scheme.Verify(password, c.dummy) //nolint:errcheck // timing only
}

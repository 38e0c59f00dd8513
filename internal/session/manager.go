package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/geogate/internal/infrastructure/logging"
)

// Policy outcomes. Every one of them except ErrNoSession and
// ErrStoreUnavailable has already revoked the user's session by the time it
// is returned.
var (
	ErrUnauthorized      = errors.New("device not authorized")
	ErrLocationMismatch  = errors.New("location outside permitted area")
	ErrIntegrityMismatch = errors.New("client integrity mismatch")
	ErrClientReported    = errors.New("client reported an error")
	ErrNoSession         = errors.New("no active session")
)

// Revocation reasons carried on events.
const (
	ReasonDeviceMismatch = "device_mismatch"
	ReasonLocation       = "location"
	ReasonIntegrity      = "integrity"
	ReasonClientReported = "client_reported"
	ReasonUnspecified    = "unspecified"
)

const (
	// MinDeviceIDLength is the shortest device id the manager will mint.
	MinDeviceIDLength     = 6
	defaultDeviceIDLength = 16
	deviceIDAlphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// EventKind distinguishes session lifecycle events.
type EventKind string

// Event kinds.
const (
	EventIssued  EventKind = "issued"
	EventRevoked EventKind = "revoked"
)

// Event describes one change to a user's session.
type Event struct {
	Kind     EventKind
	Username string
	Reason   string
}

// Observer is told about every issue and revoke after it is persisted.
type Observer func(ctx context.Context, ev Event)

// Option configures a Manager.
type Option func(*Manager)

// WithDeviceIDLength sets the length of minted device ids. Values below
// MinDeviceIDLength are raised to it.
func WithDeviceIDLength(n int) Option {
	return func(m *Manager) {
		m.idLength = max(n, MinDeviceIDLength)
	}
}

// WithObserver registers a lifecycle observer.
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) { m.logger = l.With("component", "session") }
}

// Manager owns device sessions and the revoke-on-failure policy.
//
// All mutations for one username run under that username's lock, so an
// issue and a revoke for the same user never interleave.
type Manager struct {
	store    Store
	locks    *keyedMutex
	idLength int
	observer Observer
	logger   *logging.Logger
	now      func() time.Time
}

// NewManager creates a Manager over store.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		locks:    newKeyedMutex(),
		idLength: defaultDeviceIDLength,
		logger:   logging.Default().With("component", "session"),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue mints a fresh device id for username, replacing any existing one.
func (m *Manager) Issue(ctx context.Context, username string) (string, error) {
	id, err := newDeviceID(m.idLength)
	if err != nil {
		return "", fmt.Errorf("generating device id: %w", err)
	}

	unlock := m.locks.Lock(username)
	err = m.store.Put(ctx, username, Record{DeviceID: id, IssuedAt: m.now()})
	unlock()
	if err != nil {
		return "", err
	}

	m.logger.Info("session issued", "username", username)
	m.notify(ctx, Event{Kind: EventIssued, Username: username})
	return id, nil
}

// Authorize reports whether deviceID is the live device for username.
// A missing session, empty id or store failure all yield false; store
// failures are also returned so callers can answer with a server error.
func (m *Manager) Authorize(ctx context.Context, username, deviceID string) (bool, error) {
	rec, ok, err := m.store.Get(ctx, username)
	if err != nil {
		return false, err
	}
	return ok && matches(rec.DeviceID, deviceID), nil
}

// Current returns the live device id for username, if any.
func (m *Manager) Current(ctx context.Context, username string) (string, bool, error) {
	rec, ok, err := m.store.Get(ctx, username)
	if err != nil || !ok {
		return "", false, err
	}
	return rec.DeviceID, true, nil
}

// Revoke removes any session for username. It is idempotent.
func (m *Manager) Revoke(ctx context.Context, username, reason string) error {
	unlock := m.locks.Lock(username)
	defer unlock()
	return m.revokeLocked(ctx, username, reason)
}

// Check is the gate for requests that present a device id. On mismatch the
// session is revoked and ErrUnauthorized returned.
func (m *Manager) Check(ctx context.Context, username, deviceID string) error {
	return m.Report(ctx, username, deviceID, nil)
}

// Report authorizes deviceID like Check and then, if reported is non-nil,
// revokes the session and returns reported. Both steps hold the user's lock,
// so a login landing in between is never the one revoked.
func (m *Manager) Report(ctx context.Context, username, deviceID string, reported error) error {
	unlock := m.locks.Lock(username)
	defer unlock()

	rec, ok, err := m.store.Get(ctx, username)
	if err != nil {
		return err
	}
	cause := reported
	if !ok || !matches(rec.DeviceID, deviceID) {
		cause = ErrUnauthorized
	}
	if cause == nil {
		return nil
	}

	if err := m.revokeLocked(ctx, username, reasonFor(cause)); err != nil {
		return err
	}
	return cause
}

// Evaluate runs check against the live device id of a request that
// identifies itself by username only. A non-nil result from check revokes
// that session and is returned. Lookup, check and revoke run under the
// user's lock; check must not call back into the Manager.
//
// ErrNoSession is returned without calling check.
func (m *Manager) Evaluate(ctx context.Context, username string, check func(deviceID string) error) (string, error) {
	unlock := m.locks.Lock(username)
	defer unlock()

	rec, ok, err := m.store.Get(ctx, username)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoSession
	}

	if cause := check(rec.DeviceID); cause != nil {
		if err := m.revokeLocked(ctx, username, reasonFor(cause)); err != nil {
			return "", err
		}
		return "", cause
	}
	return rec.DeviceID, nil
}

func (m *Manager) revokeLocked(ctx context.Context, username, reason string) error {
	_, existed, err := m.store.Get(ctx, username)
	if err != nil {
		return err
	}
	if err := m.store.Delete(ctx, username); err != nil {
		return err
	}
	if !existed {
		return nil
	}

	m.logger.Warn("session revoked", "username", username, "reason", reason)
	m.notify(ctx, Event{Kind: EventRevoked, Username: username, Reason: reason})
	return nil
}

func (m *Manager) notify(ctx context.Context, ev Event) {
	if m.observer != nil {
		m.observer(ctx, ev)
	}
}

func reasonFor(cause error) string {
	switch {
	case errors.Is(cause, ErrUnauthorized):
		return ReasonDeviceMismatch
	case errors.Is(cause, ErrLocationMismatch):
		return ReasonLocation
	case errors.Is(cause, ErrIntegrityMismatch):
		return ReasonIntegrity
	case errors.Is(cause, ErrClientReported):
		return ReasonClientReported
	default:
		return ReasonUnspecified
	}
}

func matches(stored, presented string) bool {
	if stored == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

// newDeviceID returns n characters drawn uniformly from deviceIDAlphabet.
func newDeviceID(n int) (string, error) {
	// Largest multiple of the alphabet size that fits in a byte; bytes at or
	// above it are discarded to keep the distribution uniform.
	const limit = 256 - 256%len(deviceIDAlphabet)

	out := make([]byte, 0, n)
	buf := make([]byte, n*2)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, deviceIDAlphabet[int(b)%len(deviceIDAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}

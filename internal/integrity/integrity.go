// Package integrity checks the client signing-certificate fingerprint that
// devices submit against the configured baseline.
package integrity

import (
	"crypto/subtle"
	"errors"
	"strings"
	"unicode"
)

// ErrConfiguration is returned when no usable reference hash is configured.
var ErrConfiguration = errors.New("integrity reference hash not configured")

// Verifier compares candidate fingerprints with a normalized reference.
// It is immutable and safe for concurrent use.
type Verifier struct {
	reference []byte
}

// New normalizes reference once and returns a Verifier for it.
func New(reference string) (*Verifier, error) {
	norm := Normalize(reference)
	if norm == "" {
		return nil, ErrConfiguration
	}
	return &Verifier{reference: []byte(norm)}, nil
}

// Verify reports whether candidate, after normalization, equals the reference.
func (v *Verifier) Verify(candidate string) bool {
	if v == nil {
		return false
	}
	c := []byte(Normalize(candidate))
	return len(c) == len(v.reference) && subtle.ConstantTimeCompare(c, v.reference) == 1
}

// Normalize lowercases s and drops the separators fingerprints are commonly
// printed with (colons, hyphens, whitespace).
//
//	"AB:CD:EF" -> "abcdef"
func Normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ':' || r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

// Package auth verifies usernames and passwords against the users table.
//
// Stored secrets are Argon2id PHC strings by default. A plaintext mode
// exists for deployments migrating from the legacy users.json store, where
// passwords were kept in the clear; it compares in constant time but is
// otherwise exactly the legacy behaviour.
//
// A failure to read the store is reported as ErrStoreUnavailable, never as
// a failed login.
package auth

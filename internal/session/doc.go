// Package session manages the single trusted device per user and the
// policy that any failed check revokes it.
//
// Handlers never delete sessions themselves. They call Check for requests
// carrying a device id, Require for requests identified by username only,
// and Reject when a downstream check (location, integrity, client report)
// fails. Each of those paths revokes through the Manager so the policy
// lives in one place.
//
// Backends: SQLite (default), Redis, and an in-memory store for tests and
// single-process deployments.
package session

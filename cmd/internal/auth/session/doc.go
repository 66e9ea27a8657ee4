// Package session implements opaque, store-backed login sessions.
//
// A session is created by Login, checked on every authenticated request by
// Validate, and removed by Logout, by lazy expiry inside Validate, by the
// periodic sweeper, or by per-user eviction once a user holds more than
// MaxSessions. Tokens are stored only as digests (see security/token).
package session

// Package token mints the opaque bearer tokens handed out for sessions and
// connect requests, and derives the digest under which they are stored.
//
// Tokens are base64url (no padding) over crypto/rand bytes. The store never
// sees the plaintext: lookups go through Hash, which is SHA-256 by default and
// HMAC-SHA256 once a server key is configured. Both produce 64 hex chars.
package token

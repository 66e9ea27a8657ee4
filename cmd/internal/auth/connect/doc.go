// Package connect implements the server-join handshake.
//
// A client with a valid session mints a short-lived connect token bound to
// the SHA-256 of a server identifier (Mint). The third-party server then
// redeems that token, presenting the identifier itself, the username it
// expects and optionally the client address it saw (Redeem). A token can be
// redeemed at most once, whatever the outcome.
package connect

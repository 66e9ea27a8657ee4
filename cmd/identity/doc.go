// Package identity owns the user record consulted at login: canonical
// username, password hash, disabled flag and the set of client IPs the
// account has been seen from.
//
// Users are created by the registration subsystem and never deleted here.
package identity

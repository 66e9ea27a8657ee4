package api

import (
	"errors"
	"net/http"

	"gatehouse/cmd/internal/auth/connect"
	"gatehouse/cmd/internal/auth/session"
)

// failure is a client-visible error: HTTP status, machine code and
// human description.
type failure struct {
	status      int
	code        string
	description string
}

var (
	failNoSession          = failure{http.StatusBadRequest, "NO_SESSION", "a session was not provided"}
	failInvalidSession     = failure{http.StatusUnauthorized, "INVALID_SESSION", "provided session does not exist"}
	failBadRequest         = failure{http.StatusBadRequest, "BAD_REQUEST", "required fields were not provided"}
	failMalformedBody      = failure{http.StatusBadRequest, "BAD_REQUEST", "request body is not valid JSON"}
	failBodyTooLarge       = failure{http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body is too large"}
	failInvalidCredentials = failure{http.StatusUnauthorized, "INVALID_CREDENTIALS", "username or password is incorrect"}
	failAccountDisabled    = failure{http.StatusForbidden, "ACCOUNT_DISABLED", "the requested account has been disabled"}
	failInvalidServerHash  = failure{http.StatusBadRequest, "INVALID_SERVER_HASH", "provided server hash is invalid"}
	failInvalidServerID    = failure{http.StatusBadRequest, "INVALID_SERVER_ID", "server id is too long"}
	failNoSuchToken        = failure{http.StatusNotFound, "NO_SUCH_TOKEN", "invalid connect token"}
	failTokenExpired       = failure{http.StatusNotFound, "TOKEN_EXPIRED", "connect token expired"}
	failUsernameMismatch   = failure{http.StatusConflict, "USERNAME_MISMATCH", "username mismatch in connect token"}
	failIPMismatch         = failure{http.StatusConflict, "IP_MISMATCH", "ip mismatch in connect token"}
	failServerIDMismatch   = failure{http.StatusConflict, "SERVER_ID_MISMATCH", "server id mismatch in connect token"}
	failInternal           = failure{http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"}
)

var knownFailures = []struct {
	err error
	f   failure
}{
	{session.ErrNoSession, failNoSession},
	{session.ErrInvalidSession, failInvalidSession},
	{session.ErrBadRequest, failBadRequest},
	{session.ErrInvalidCredentials, failInvalidCredentials},
	{session.ErrAccountDisabled, failAccountDisabled},
	{connect.ErrBadRequest, failBadRequest},
	{connect.ErrInvalidServerHash, failInvalidServerHash},
	{connect.ErrInvalidServerID, failInvalidServerID},
	{connect.ErrNoSuchToken, failNoSuchToken},
	{connect.ErrTokenExpired, failTokenExpired},
	{connect.ErrUsernameMismatch, failUsernameMismatch},
	{connect.ErrIPMismatch, failIPMismatch},
	{connect.ErrServerIDMismatch, failServerIDMismatch},
}

// failureFor maps a service error to its client-visible form. ok is false
// for anything unexpected, which the caller logs and reports as
// failInternal.
func failureFor(err error) (failure, bool) {
	for _, k := range knownFailures {
		if errors.Is(err, k.err) {
			return k.f, true
		}
	}
	return failInternal, false
}

func bodyFailure(err error) failure {
	if errors.Is(err, errBodyTooLarge) {
		return failBodyTooLarge
	}
	return failMalformedBody
}

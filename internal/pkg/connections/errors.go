package connections

import (
	"errors"
	"fmt"
)

// Error taxonomy of the connection subsystem. Synchronous request paths
// return these to the caller; background jobs swallow them at the job
// boundary and surface them through the persisted status/last_error fields.
var (
	// ErrNotConnected means no connection record exists for the
	// organization and provider. User action: connect.
	ErrNotConnected = errors.New("provider is not connected")

	// ErrReauthRequired means the access token is expired and no usable
	// refresh token exists. User action: redo the OAuth flow.
	ErrReauthRequired = errors.New("re-authentication required")

	// ErrRefreshFailed means the provider rejected a refresh attempt.
	// The next call is the retry; no retry happens inside this package.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrPendingNotFound means the setup code is invalid, expired, or
	// owned by another user. Deliberately indistinguishable from the
	// outside: a guessed code must not reveal which check failed.
	ErrPendingNotFound = errors.New("pending connection not found")

	// ErrSourceNotFound means the unified row points at a source row that
	// no longer exists.
	ErrSourceNotFound = errors.New("connection source not found")

	// ErrNotImplemented means the source type is reserved for a future
	// provider. Distinct from transient failures so callers can tell
	// "not yet supported" apart from "try again".
	ErrNotImplemented = errors.New("source type not implemented")

	// ErrRateLimited means the per-organization resync cooldown has not
	// elapsed.
	ErrRateLimited = errors.New("sync cooldown not elapsed")
)

// NotActiveError reports a connection whose status forbids serving
// credentials. The status tells the caller what user action applies.
type NotActiveError struct {
	Status string
}

func (e *NotActiveError) Error() string {
	return fmt.Sprintf("connection is not active (status %s)", e.Status)
}

package contacts

import "errors"

// Error kinds surfaced by the engine. Operations wrap these with context;
// callers classify with errors.Is and map them to transport status codes.
// Anything not wrapping one of these is a storage failure and is passed
// through unmodified.
var (
	// ErrUnauthenticated means no caller identity was supplied.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrNotFound means the target or requester reference does not resolve
	// to a known account.
	ErrNotFound = errors.New("user not found")

	// ErrInvalidOperation covers self-targeting adds and accepts without a
	// matching pending request.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrForbidden covers accepts attempted by the original requester and
	// adds against a blocking relationship.
	ErrForbidden = errors.New("forbidden")
)

package contacts

import "github.com/varb24/TurtleMessenger/pkg/types"

// This file holds the pair-reconciliation rules: the derived state of a
// relationship is a function of the two directed records, and the two
// subtle decisions (which pending records are genuine incoming requests,
// and who is allowed to accept) are timestamp comparisons between them.
// They live here as pure functions so they can be tested without a store.

// genuineIncoming reports whether a pending record pointing at the caller
// is a real incoming request. When the caller's own inverse record exists
// and is not newer than the incoming one, the caller originated the
// request and the incoming record is a mirrored leftover, not a request to
// surface. Only records created strictly before the inverse survive.
func genuineIncoming(incoming, inverse *types.Contact) bool {
	if inverse == nil {
		return true
	}
	return incoming.CreatedAt.Before(inverse.CreatedAt)
}

// roleInverted reports whether the caller trying to accept is actually the
// original requester of the pair. That is the case when the caller's own
// record is still pending and predates the incoming record: the caller
// asked first, so only the other side may accept.
func roleInverted(mine, incoming *types.Contact) bool {
	if mine == nil {
		return false
	}
	return mine.Status == types.StatusPending && mine.CreatedAt.Before(incoming.CreatedAt)
}

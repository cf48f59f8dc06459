package contacts

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/varb24/TurtleMessenger/internal/storage"
	"github.com/varb24/TurtleMessenger/pkg/types"
)

// UserRef identifies a user either by numeric ID or by handle. The
// transport layer decides which form a request carries; the engine never
// guesses from the shape of a string.
type UserRef struct {
	id     int64
	handle string
	byID   bool
}

// ByID builds a reference to a user by numeric ID.
func ByID(id int64) UserRef {
	return UserRef{id: id, byID: true}
}

// ByHandle builds a reference to a user by handle. The handle is
// normalized (trimmed, lowercased) before lookup.
func ByHandle(handle string) UserRef {
	return UserRef{handle: types.NormalizeUsername(handle)}
}

// String renders the reference for log and error messages.
func (r UserRef) String() string {
	if r.byID {
		return "id:" + strconv.FormatInt(r.id, 10)
	}
	return "handle:" + r.handle
}

// resolve maps a reference to a stored user, translating a storage miss
// into the engine's ErrNotFound kind.
func (e *Engine) resolve(ctx context.Context, ref UserRef) (*types.User, error) {
	var (
		u   *types.User
		err error
	)
	if ref.byID {
		u, err = e.users.GetUserByID(ctx, ref.id)
	} else {
		u, err = e.users.GetUserByUsername(ctx, ref.handle)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Package storage provides composable storage interfaces for the
// TurtleMessenger backend.
//
// The storage layer is designed with small, focused interfaces that can be
// implemented independently and composed as needed, so both relational
// backends (SQLite, PostgreSQL) satisfy the same contracts.
package storage

import (
	"context"
	"time"

	"github.com/varb24/TurtleMessenger/pkg/types"
)

// UserStore manages user accounts.
type UserStore interface {
	// CreateUser inserts a new user and fills in its assigned ID.
	// Returns ErrDuplicate if the username is already taken.
	CreateUser(ctx context.Context, user *types.User) error

	// GetUserByID retrieves a user by ID.
	// Returns ErrNotFound if no such user exists.
	GetUserByID(ctx context.Context, id int64) (*types.User, error)

	// GetUserByUsername retrieves a user by normalized username.
	// Returns ErrNotFound if no such user exists.
	GetUserByUsername(ctx context.Context, username string) (*types.User, error)

	// UsernameTaken reports whether a normalized username is in use.
	UsernameTaken(ctx context.Context, username string) (bool, error)
}

// ContactStore manages directed contact records. The table carries a
// uniqueness constraint on (owner_id, contact_id); implementations fold
// concurrent duplicate inserts into the update path so the constraint is
// never surfaced to callers of SaveContact.
type ContactStore interface {
	// FindContact retrieves the record owned by ownerID pointing at targetID.
	// Returns ErrNotFound if no such record exists.
	FindContact(ctx context.Context, ownerID, targetID int64) (*types.Contact, error)

	// ContactsByOwnerAndStatus lists records owned by ownerID with the
	// given status, oldest first.
	ContactsByOwnerAndStatus(ctx context.Context, ownerID int64, status types.ContactStatus) ([]*types.Contact, error)

	// ContactsByTargetAndStatus lists records pointing at targetID with the
	// given status, oldest first.
	ContactsByTargetAndStatus(ctx context.Context, targetID int64, status types.ContactStatus) ([]*types.Contact, error)

	// SaveContact inserts or updates a record keyed on (owner, contact).
	// A concurrent insert of the same pair degrades to an update of the
	// status; the record's ID and CreatedAt are filled in on return.
	SaveContact(ctx context.Context, c *types.Contact) error

	// SaveContactPair writes both records in a single transaction. Either
	// both land or neither does; partial acceptance is never observable.
	SaveContactPair(ctx context.Context, a, b *types.Contact) error

	// DeleteContact removes the record for (ownerID, targetID). Deleting a
	// record that does not exist is a no-op, not an error.
	DeleteContact(ctx context.Context, ownerID, targetID int64) error

	// DeleteContactPair removes both directions between two users in a
	// single transaction. Missing records are skipped silently.
	DeleteContactPair(ctx context.Context, userA, userB int64) error
}

// RoomStore manages chat rooms.
type RoomStore interface {
	// EnsureRoom returns the room with the given ID, creating it with a
	// default name on first use.
	EnsureRoom(ctx context.Context, id int64) (*types.Room, error)

	// GetRoom retrieves a room by ID. Returns ErrNotFound if absent.
	GetRoom(ctx context.Context, id int64) (*types.Room, error)
}

// MessageStore manages persisted chat messages.
type MessageStore interface {
	// SaveMessage inserts a message and fills in its assigned ID.
	SaveMessage(ctx context.Context, m *types.Message) error

	// MessageHistory returns up to limit messages for a room created
	// strictly before the given instant (zero means no bound), in
	// ascending creation order.
	MessageHistory(ctx context.Context, roomID int64, limit int, before time.Time) ([]*types.Message, error)
}

// Store is the full storage surface a backend must provide.
type Store interface {
	UserStore
	ContactStore
	RoomStore
	MessageStore

	// Close releases any resources held by the store.
	Close() error
}

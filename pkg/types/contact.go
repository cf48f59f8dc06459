package types

import "time"

// ContactStatus is the status of a single directed contact record.
type ContactStatus string

const (
	// StatusPending means the owner has requested the target as a contact
	// and the target has not yet acted on it.
	StatusPending ContactStatus = "PENDING"

	// StatusAccepted means this direction of the relationship is confirmed.
	// A mutual contact is represented by two accepted records.
	StatusAccepted ContactStatus = "ACCEPTED"

	// StatusBlocked means the owner refuses contact requests from the target.
	StatusBlocked ContactStatus = "BLOCKED"
)

// Valid reports whether s is one of the known statuses.
func (s ContactStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusBlocked:
		return true
	}
	return false
}

// Contact is one directed relationship record: an edge from the owner's
// contact list toward another user. A relationship between two users is
// represented by up to two of these, one per direction, each carrying its
// own status. At most one record exists per (OwnerID, ContactID) pair and
// OwnerID is never equal to ContactID.
type Contact struct {
	ID        int64         `json:"id"`
	OwnerID   int64         `json:"ownerId"`
	ContactID int64         `json:"contactId"`
	Status    ContactStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ContactView is the shape handed back to transport layers: the other
// user's identity plus the status of the relationship from the caller's
// perspective.
type ContactView struct {
	UserID   int64         `json:"id"`
	Username string        `json:"username"`
	Status   ContactStatus `json:"status"`
}

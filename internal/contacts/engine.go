// Package contacts implements the directed-edge contact relationship
// engine.
//
// A relationship between two users is stored as up to two directed
// records, one per direction, each with its own status and creation time.
// Neither record is authoritative on its own; the engine derives the
// effective state of a pair from whichever subset exists and keeps the two
// sides converging through the add/accept/remove rules below. The store's
// uniqueness constraint on (owner, contact) plus upsert writes make every
// operation safe to retry.
package contacts

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/varb24/TurtleMessenger/internal/storage"
	"github.com/varb24/TurtleMessenger/pkg/types"
)

// Engine applies the relationship rules over a user store (identity
// lookup) and a contact store (directed relation records). It holds no
// state of its own; every call is one request-scoped unit of work.
type Engine struct {
	users    storage.UserStore
	contacts storage.ContactStore
}

// NewEngine creates a relationship engine.
func NewEngine(users storage.UserStore, contacts storage.ContactStore) *Engine {
	return &Engine{users: users, contacts: contacts}
}

func requireCaller(me *types.User) error {
	if me == nil {
		return ErrUnauthenticated
	}
	return nil
}

// ListContacts returns the caller's accepted contacts.
func (e *Engine) ListContacts(ctx context.Context, me *types.User) ([]types.ContactView, error) {
	if err := requireCaller(me); err != nil {
		return nil, err
	}

	recs, err := e.contacts.ContactsByOwnerAndStatus(ctx, me.ID, types.StatusAccepted)
	if err != nil {
		return nil, err
	}

	views := make([]types.ContactView, 0, len(recs))
	for _, rec := range recs {
		target, err := e.users.GetUserByID(ctx, rec.ContactID)
		if err != nil {
			return nil, err
		}
		views = append(views, types.ContactView{
			UserID:   target.ID,
			Username: target.Username,
			Status:   rec.Status,
		})
	}
	return views, nil
}

// IncomingRequests returns pending requests directed at the caller,
// filtered down to genuine ones: a pending record is suppressed when the
// caller's own inverse record shows the caller initiated the pair.
func (e *Engine) IncomingRequests(ctx context.Context, me *types.User) ([]types.ContactView, error) {
	if err := requireCaller(me); err != nil {
		return nil, err
	}

	recs, err := e.contacts.ContactsByTargetAndStatus(ctx, me.ID, types.StatusPending)
	if err != nil {
		return nil, err
	}

	views := make([]types.ContactView, 0, len(recs))
	for _, rec := range recs {
		inverse, err := e.contacts.FindContact(ctx, me.ID, rec.OwnerID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		if !genuineIncoming(rec, inverse) {
			continue
		}
		requester, err := e.users.GetUserByID(ctx, rec.OwnerID)
		if err != nil {
			return nil, err
		}
		views = append(views, types.ContactView{
			UserID:   requester.ID,
			Username: requester.Username,
			Status:   rec.Status,
		})
	}
	return views, nil
}

// Add sends a contact request to the referenced user, or reconciles the
// pair if the other side already acted:
//
//   - an existing own record is returned unchanged (idempotent re-add)
//   - a pending reverse request collapses into mutual acceptance
//   - an accepted reverse record heals the missing own record
//   - a blocking reverse record rejects the add
//   - otherwise only the caller's outbound record is created, pending
func (e *Engine) Add(ctx context.Context, me *types.User, ref UserRef) (types.ContactView, error) {
	if err := requireCaller(me); err != nil {
		return types.ContactView{}, err
	}

	target, err := e.resolve(ctx, ref)
	if err != nil {
		return types.ContactView{}, err
	}
	if target.ID == me.ID {
		return types.ContactView{}, fmt.Errorf("%w: cannot add yourself", ErrInvalidOperation)
	}

	mine, err := e.contacts.FindContact(ctx, me.ID, target.ID)
	if err == nil {
		return types.ContactView{UserID: target.ID, Username: target.Username, Status: mine.Status}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return types.ContactView{}, err
	}

	theirs, err := e.contacts.FindContact(ctx, target.ID, me.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return types.ContactView{}, err
	}

	if theirs != nil {
		switch theirs.Status {
		case types.StatusPending:
			// The other side already asked; adding back is acceptance.
			// Both writes go down in one transaction.
			mine = &types.Contact{OwnerID: me.ID, ContactID: target.ID, Status: types.StatusAccepted}
			theirs.Status = types.StatusAccepted
			if err := e.contacts.SaveContactPair(ctx, mine, theirs); err != nil {
				return types.ContactView{}, err
			}
			logrus.WithFields(logrus.Fields{
				"user":   me.ID,
				"target": target.ID,
			}).Debug("mutual contact request collapsed to acceptance")
			return types.ContactView{UserID: target.ID, Username: target.Username, Status: types.StatusAccepted}, nil

		case types.StatusAccepted:
			// The reverse side is already accepted but our record is
			// missing; recreate it to repair the asymmetry.
			mine = &types.Contact{OwnerID: me.ID, ContactID: target.ID, Status: types.StatusAccepted}
			if err := e.contacts.SaveContact(ctx, mine); err != nil {
				return types.ContactView{}, err
			}
			return types.ContactView{UserID: target.ID, Username: target.Username, Status: types.StatusAccepted}, nil

		case types.StatusBlocked:
			return types.ContactView{}, fmt.Errorf("%w: cannot add contact: blocked", ErrForbidden)
		}
	}

	// No record in either direction: create only the outbound edge. The
	// reverse record is the recipient's to create when they act.
	mine = &types.Contact{OwnerID: me.ID, ContactID: target.ID, Status: types.StatusPending}
	if err := e.contacts.SaveContact(ctx, mine); err != nil {
		return types.ContactView{}, err
	}
	logrus.WithFields(logrus.Fields{
		"user":   me.ID,
		"target": target.ID,
	}).Debug("contact request created")
	return types.ContactView{UserID: target.ID, Username: target.Username, Status: mine.Status}, nil
}

// Accept confirms a pending request from the referenced user. Only the
// recipient of the original request may accept: if the caller's own
// pending record predates the incoming one, the caller is the requester
// and the call is rejected. On success both directions are accepted in a
// single transaction.
func (e *Engine) Accept(ctx context.Context, me *types.User, ref UserRef) (types.ContactView, error) {
	if err := requireCaller(me); err != nil {
		return types.ContactView{}, err
	}

	other, err := e.resolve(ctx, ref)
	if err != nil {
		return types.ContactView{}, err
	}

	incoming, err := e.contacts.FindContact(ctx, other.ID, me.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return types.ContactView{}, fmt.Errorf("%w: no request found", ErrInvalidOperation)
	}
	if err != nil {
		return types.ContactView{}, err
	}
	if incoming.Status != types.StatusPending {
		return types.ContactView{}, fmt.Errorf("%w: no pending request to accept", ErrInvalidOperation)
	}

	mine, err := e.contacts.FindContact(ctx, me.ID, other.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return types.ContactView{}, err
	}

	if roleInverted(mine, incoming) {
		return types.ContactView{}, fmt.Errorf("%w: only the recipient can accept this request", ErrForbidden)
	}

	incoming.Status = types.StatusAccepted
	if mine == nil {
		mine = &types.Contact{OwnerID: me.ID, ContactID: other.ID, Status: types.StatusAccepted}
	} else {
		mine.Status = types.StatusAccepted
	}
	if err := e.contacts.SaveContactPair(ctx, incoming, mine); err != nil {
		return types.ContactView{}, err
	}

	logrus.WithFields(logrus.Fields{
		"user":      me.ID,
		"requester": other.ID,
	}).Debug("contact request accepted")
	return types.ContactView{UserID: other.ID, Username: other.Username, Status: types.StatusAccepted}, nil
}

// Remove deletes both directions of the relationship with the referenced
// user. An unresolvable reference and already-missing records are silent
// no-ops: removal is idempotent by design.
func (e *Engine) Remove(ctx context.Context, me *types.User, ref UserRef) error {
	if err := requireCaller(me); err != nil {
		return err
	}

	other, err := e.resolve(ctx, ref)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	return e.contacts.DeleteContactPair(ctx, me.ID, other.ID)
}

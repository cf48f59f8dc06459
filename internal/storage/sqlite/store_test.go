package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varb24/TurtleMessenger/internal/storage"
	"github.com/varb24/TurtleMessenger/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func mustCreateUser(t *testing.T, s *Store, username string) *types.User {
	t.Helper()
	u := &types.User{Username: username, PasswordHash: "x"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func TestCreateUserAssignsID(t *testing.T) {
	s := newTestStore(t)
	u := mustCreateUser(t, s, "alice")
	assert.NotZero(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())
}

func TestCreateUserDuplicate(t *testing.T) {
	s := newTestStore(t)
	mustCreateUser(t, s, "alice")

	err := s.CreateUser(context.Background(), &types.User{Username: "alice", PasswordHash: "y"})
	assert.ErrorIs(t, err, storage.ErrDuplicate)
}

func TestGetUserLookups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustCreateUser(t, s, "alice")

	byID, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	byName, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)

	_, err = s.GetUserByID(ctx, 9999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	taken, err := s.UsernameTaken(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = s.UsernameTaken(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestSaveContactUpsertPreservesCreatedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := mustCreateUser(t, s, "alice")
	bob := mustCreateUser(t, s, "bob")

	first := &types.Contact{
		OwnerID:   alice.ID,
		ContactID: bob.ID,
		Status:    types.StatusPending,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveContact(ctx, first))
	require.NotZero(t, first.ID)

	// A second save of the same pair updates the status but keeps the
	// original row and timestamp.
	second := &types.Contact{
		OwnerID:   alice.ID,
		ContactID: bob.ID,
		Status:    types.StatusAccepted,
		CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveContact(ctx, second))
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.CreatedAt.Equal(first.CreatedAt))

	got, err := s.FindContact(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusAccepted, got.Status)
}

func TestSaveContactRejectsSelfEdge(t *testing.T) {
	s := newTestStore(t)
	alice := mustCreateUser(t, s, "alice")

	err := s.SaveContact(context.Background(), &types.Contact{
		OwnerID: alice.ID, ContactID: alice.ID, Status: types.StatusPending,
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestSaveContactRejectsUnknownStatus(t *testing.T) {
	s := newTestStore(t)
	alice := mustCreateUser(t, s, "alice")
	bob := mustCreateUser(t, s, "bob")

	err := s.SaveContact(context.Background(), &types.Contact{
		OwnerID: alice.ID, ContactID: bob.ID, Status: "WEIRD",
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestContactListingsByStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := mustCreateUser(t, s, "alice")
	bob := mustCreateUser(t, s, "bob")
	carol := mustCreateUser(t, s, "carol")

	require.NoError(t, s.SaveContact(ctx, &types.Contact{
		OwnerID: alice.ID, ContactID: bob.ID, Status: types.StatusAccepted,
	}))
	require.NoError(t, s.SaveContact(ctx, &types.Contact{
		OwnerID: alice.ID, ContactID: carol.ID, Status: types.StatusPending,
	}))
	require.NoError(t, s.SaveContact(ctx, &types.Contact{
		OwnerID: bob.ID, ContactID: carol.ID, Status: types.StatusPending,
	}))

	accepted, err := s.ContactsByOwnerAndStatus(ctx, alice.ID, types.StatusAccepted)
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, bob.ID, accepted[0].ContactID)

	incoming, err := s.ContactsByTargetAndStatus(ctx, carol.ID, types.StatusPending)
	require.NoError(t, err)
	require.Len(t, incoming, 2)
	// Oldest first.
	assert.Equal(t, alice.ID, incoming[0].OwnerID)
	assert.Equal(t, bob.ID, incoming[1].OwnerID)
}

func TestSaveContactPairWritesBoth(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := mustCreateUser(t, s, "alice")
	bob := mustCreateUser(t, s, "bob")

	a := &types.Contact{OwnerID: alice.ID, ContactID: bob.ID, Status: types.StatusAccepted}
	b := &types.Contact{OwnerID: bob.ID, ContactID: alice.ID, Status: types.StatusAccepted}
	require.NoError(t, s.SaveContactPair(ctx, a, b))

	for _, pair := range [][2]int64{{alice.ID, bob.ID}, {bob.ID, alice.ID}} {
		got, err := s.FindContact(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.Equal(t, types.StatusAccepted, got.Status)
	}
}

func TestSaveContactPairRejectsInvalidWithoutPartialWrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := mustCreateUser(t, s, "alice")
	bob := mustCreateUser(t, s, "bob")

	a := &types.Contact{OwnerID: alice.ID, ContactID: bob.ID, Status: types.StatusAccepted}
	bad := &types.Contact{OwnerID: bob.ID, ContactID: bob.ID, Status: types.StatusAccepted}
	require.Error(t, s.SaveContactPair(ctx, a, bad))

	_, err := s.FindContact(ctx, alice.ID, bob.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound, "validation failure must not write either record")
}

func TestDeleteContactIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := mustCreateUser(t, s, "alice")
	bob := mustCreateUser(t, s, "bob")

	require.NoError(t, s.SaveContact(ctx, &types.Contact{
		OwnerID: alice.ID, ContactID: bob.ID, Status: types.StatusPending,
	}))

	require.NoError(t, s.DeleteContact(ctx, alice.ID, bob.ID))
	_, err := s.FindContact(ctx, alice.ID, bob.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Deleting again is a no-op.
	assert.NoError(t, s.DeleteContact(ctx, alice.ID, bob.ID))
}

func TestDeleteContactPairRemovesBothDirections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := mustCreateUser(t, s, "alice")
	bob := mustCreateUser(t, s, "bob")

	require.NoError(t, s.SaveContactPair(ctx,
		&types.Contact{OwnerID: alice.ID, ContactID: bob.ID, Status: types.StatusAccepted},
		&types.Contact{OwnerID: bob.ID, ContactID: alice.ID, Status: types.StatusAccepted},
	))

	require.NoError(t, s.DeleteContactPair(ctx, alice.ID, bob.ID))

	_, err := s.FindContact(ctx, alice.ID, bob.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.FindContact(ctx, bob.ID, alice.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEnsureRoomCreatesOnFirstUse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	room, err := s.EnsureRoom(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), room.ID)
	assert.Equal(t, "Room 42", room.Name)

	// Second call returns the existing room.
	again, err := s.EnsureRoom(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, room.CreatedAt, again.CreatedAt)

	_, err = s.GetRoom(ctx, 7)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMessageHistoryOrderingAndCursor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := mustCreateUser(t, s, "alice")

	_, err := s.EnsureRoom(ctx, 1)
	require.NoError(t, err)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, content := range []string{"one", "two", "three"} {
		m := &types.Message{
			RoomID:     1,
			SenderID:   &alice.ID,
			SenderName: "alice",
			Content:    content,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.SaveMessage(ctx, m))
		require.NotZero(t, m.ID)
	}

	// Full history, ascending.
	msgs, err := s.MessageHistory(ctx, 1, 10, time.Time{})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "three", msgs[2].Content)

	// Limit keeps the newest page, still ascending.
	msgs, err = s.MessageHistory(ctx, 1, 2, time.Time{})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "two", msgs[0].Content)
	assert.Equal(t, "three", msgs[1].Content)

	// Cursor is exclusive.
	msgs, err = s.MessageHistory(ctx, 1, 10, base.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "one", msgs[0].Content)

	// Unknown room yields nothing.
	msgs, err = s.MessageHistory(ctx, 99, 10, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestAnonymousMessageSender(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.EnsureRoom(ctx, 1)
	require.NoError(t, err)

	m := &types.Message{RoomID: 1, SenderName: "anonymous", Content: "hi"}
	require.NoError(t, s.SaveMessage(ctx, m))

	msgs, err := s.MessageHistory(ctx, 1, 10, time.Time{})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Nil(t, msgs[0].SenderID)
	assert.Equal(t, "anonymous", msgs[0].SenderName)
}

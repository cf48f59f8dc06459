// Package sqlite provides a SQLite implementation of the storage interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/varb24/TurtleMessenger/internal/storage"
	"github.com/varb24/TurtleMessenger/pkg/types"
)

// Store implements storage.Store using SQLite.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// New opens a SQLite database, configures WAL mode, and applies the schema.
// The dsn is a file path or ":memory:".
func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Using a single open
	// connection serialises writes and avoids SQLITE_BUSY errors under
	// concurrent load. WAL mode lets readers proceed without blocking the
	// writer. This is also what makes the read-then-write sequences in the
	// contact engine atomic per pair: writes on one connection never
	// interleave.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite uniqueness constraint
// failure (either a unique index or a primary key collision).
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// CreateUser inserts a new user. The username must already be normalized.
func (s *Store) CreateUser(ctx context.Context, user *types.User) error {
	if user == nil || user.Username == "" {
		return fmt.Errorf("%w: username is required", storage.ErrInvalidInput)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?) RETURNING id`,
		user.Username, user.PasswordHash, user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: username %q", storage.ErrDuplicate, user.Username)
		}
		return fmt.Errorf("sqlite: failed to create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*types.User, error) {
	return s.getUser(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE id = ?`, id)
}

// GetUserByUsername retrieves a user by normalized username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*types.User, error) {
	return s.getUser(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE username = ?`, username)
}

func (s *Store) getUser(ctx context.Context, query string, arg interface{}) (*types.User, error) {
	var u types.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get user: %w", err)
	}
	return &u, nil
}

// UsernameTaken reports whether a normalized username is in use.
func (s *Store) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE username = ?`, username).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: failed to check username: %w", err)
	}
	return n > 0, nil
}

// FindContact retrieves the directed record (ownerID -> targetID).
func (s *Store) FindContact(ctx context.Context, ownerID, targetID int64) (*types.Contact, error) {
	var c types.Contact
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, contact_id, status, created_at FROM contacts WHERE owner_id = ? AND contact_id = ?`,
		ownerID, targetID,
	).Scan(&c.ID, &c.OwnerID, &c.ContactID, &c.Status, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to find contact: %w", err)
	}
	return &c, nil
}

// ContactsByOwnerAndStatus lists records owned by ownerID with the given status.
func (s *Store) ContactsByOwnerAndStatus(ctx context.Context, ownerID int64, status types.ContactStatus) ([]*types.Contact, error) {
	return s.listContacts(ctx,
		`SELECT id, owner_id, contact_id, status, created_at FROM contacts
		 WHERE owner_id = ? AND status = ? ORDER BY created_at, id`,
		ownerID, string(status))
}

// ContactsByTargetAndStatus lists records pointing at targetID with the given status.
func (s *Store) ContactsByTargetAndStatus(ctx context.Context, targetID int64, status types.ContactStatus) ([]*types.Contact, error) {
	return s.listContacts(ctx,
		`SELECT id, owner_id, contact_id, status, created_at FROM contacts
		 WHERE contact_id = ? AND status = ? ORDER BY created_at, id`,
		targetID, string(status))
}

func (s *Store) listContacts(ctx context.Context, query string, args ...interface{}) ([]*types.Contact, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list contacts: %w", err)
	}
	defer rows.Close()

	var out []*types.Contact
	for rows.Next() {
		var c types.Contact
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.ContactID, &c.Status, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan contact: %w", err)
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate contacts: %w", err)
	}
	return out, nil
}

// upsertContactSQL inserts a directed record or, when the (owner, contact)
// pair already exists, updates its status in place. The original created_at
// is preserved on conflict: the engine's tie-breaking depends on it.
const upsertContactSQL = `
	INSERT INTO contacts (owner_id, contact_id, status, created_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(owner_id, contact_id) DO UPDATE SET status = excluded.status
	RETURNING id, created_at
`

// SaveContact inserts or updates a single directed record.
func (s *Store) SaveContact(ctx context.Context, c *types.Contact) error {
	if err := prepareContact(c); err != nil {
		return err
	}
	err := s.db.QueryRowContext(ctx, upsertContactSQL,
		c.OwnerID, c.ContactID, string(c.Status), c.CreatedAt,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: failed to save contact: %w", err)
	}
	return nil
}

// SaveContactPair writes both records in one transaction.
func (s *Store) SaveContactPair(ctx context.Context, a, b *types.Contact) error {
	if err := prepareContact(a); err != nil {
		return err
	}
	if err := prepareContact(b); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range []*types.Contact{a, b} {
		err := tx.QueryRowContext(ctx, upsertContactSQL,
			c.OwnerID, c.ContactID, string(c.Status), c.CreatedAt,
		).Scan(&c.ID, &c.CreatedAt)
		if err != nil {
			return fmt.Errorf("sqlite: failed to save contact pair: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: failed to commit contact pair: %w", err)
	}
	return nil
}

func prepareContact(c *types.Contact) error {
	if c == nil {
		return storage.ErrInvalidInput
	}
	if c.OwnerID == c.ContactID {
		return fmt.Errorf("%w: contact cannot point at its owner", storage.ErrInvalidInput)
	}
	if !c.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", storage.ErrInvalidInput, c.Status)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return nil
}

// DeleteContact removes the record for (ownerID, targetID) if present.
func (s *Store) DeleteContact(ctx context.Context, ownerID, targetID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM contacts WHERE owner_id = ? AND contact_id = ?`, ownerID, targetID)
	if err != nil {
		return fmt.Errorf("sqlite: failed to delete contact: %w", err)
	}
	return nil
}

// DeleteContactPair removes both directions between two users in one transaction.
func (s *Store) DeleteContactPair(ctx context.Context, userA, userB int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM contacts
		 WHERE (owner_id = ? AND contact_id = ?) OR (owner_id = ? AND contact_id = ?)`,
		userA, userB, userB, userA)
	if err != nil {
		return fmt.Errorf("sqlite: failed to delete contact pair: %w", err)
	}
	return nil
}

// EnsureRoom returns the room with the given ID, creating it on first use.
func (s *Store) EnsureRoom(ctx context.Context, id int64) (*types.Room, error) {
	room, err := s.GetRoom(ctx, id)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	// Insert-or-ignore so concurrent first users of a room both succeed.
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO rooms (id, name, created_at) VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		id, fmt.Sprintf("Room %d", id), time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to create room: %w", err)
	}
	return s.GetRoom(ctx, id)
}

// GetRoom retrieves a room by ID.
func (s *Store) GetRoom(ctx context.Context, id int64) (*types.Room, error) {
	var r types.Room
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM rooms WHERE id = ?`, id,
	).Scan(&r.ID, &r.Name, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get room: %w", err)
	}
	return &r, nil
}

// SaveMessage inserts a message.
func (s *Store) SaveMessage(ctx context.Context, m *types.Message) error {
	if m == nil {
		return storage.ErrInvalidInput
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	var senderID sql.NullInt64
	if m.SenderID != nil {
		senderID = sql.NullInt64{Int64: *m.SenderID, Valid: true}
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO messages (room_id, sender_user_id, sender_username, content, created_at)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`,
		m.RoomID, senderID, m.SenderName, m.Content, m.CreatedAt,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("sqlite: failed to save message: %w", err)
	}
	return nil
}

// MessageHistory returns up to limit messages for a room in ascending
// creation order. A non-zero before restricts to strictly older messages.
func (s *Store) MessageHistory(ctx context.Context, roomID int64, limit int, before time.Time) ([]*types.Message, error) {
	query := `SELECT id, room_id, sender_user_id, sender_username, content, created_at
		  FROM messages WHERE room_id = ?`
	args := []interface{}{roomID}
	if !before.IsZero() {
		query += ` AND created_at < ?`
		args = append(args, before)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query history: %w", err)
	}
	defer rows.Close()

	var out []*types.Message
	for rows.Next() {
		var m types.Message
		var senderID sql.NullInt64
		if err := rows.Scan(&m.ID, &m.RoomID, &senderID, &m.SenderName, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan message: %w", err)
		}
		if senderID.Valid {
			m.SenderID = &senderID.Int64
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate history: %w", err)
	}

	// Query is newest-first for the LIMIT; clients want ascending order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

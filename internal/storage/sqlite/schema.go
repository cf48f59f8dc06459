package sqlite

// Schema is the complete SQLite schema. All statements are idempotent so
// the schema can be applied on every open.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL,
	CONSTRAINT uk_users_username UNIQUE (username)
);

CREATE TABLE IF NOT EXISTS contacts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id   INTEGER NOT NULL REFERENCES users(id),
	contact_id INTEGER NOT NULL REFERENCES users(id),
	status     TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	CONSTRAINT uk_contacts_pair UNIQUE (owner_id, contact_id),
	CHECK (owner_id <> contact_id)
);

CREATE INDEX IF NOT EXISTS idx_contacts_owner_status ON contacts(owner_id, status);
CREATE INDEX IF NOT EXISTS idx_contacts_target_status ON contacts(contact_id, status);

CREATE TABLE IF NOT EXISTS rooms (
	id         INTEGER PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id         INTEGER NOT NULL REFERENCES rooms(id),
	sender_user_id  INTEGER REFERENCES users(id),
	sender_username TEXT NOT NULL,
	content         TEXT NOT NULL,
	created_at      TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_room_created ON messages(room_id, created_at);
`

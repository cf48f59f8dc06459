package postgres

// Schema is the complete PostgreSQL schema. All statements are idempotent
// (IF NOT EXISTS) so the schema can be applied on every open.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	username      VARCHAR(50) NOT NULL,
	password_hash VARCHAR(100) NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT uk_users_username UNIQUE (username)
);

CREATE TABLE IF NOT EXISTS contacts (
	id         BIGSERIAL PRIMARY KEY,
	owner_id   BIGINT NOT NULL REFERENCES users(id),
	contact_id BIGINT NOT NULL REFERENCES users(id),
	status     VARCHAR(20) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT uk_contacts_pair UNIQUE (owner_id, contact_id),
	CONSTRAINT ck_contacts_not_self CHECK (owner_id <> contact_id)
);

CREATE INDEX IF NOT EXISTS idx_contacts_owner_status ON contacts(owner_id, status);
CREATE INDEX IF NOT EXISTS idx_contacts_target_status ON contacts(contact_id, status);

CREATE TABLE IF NOT EXISTS rooms (
	id         BIGINT PRIMARY KEY,
	name       VARCHAR(100) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS messages (
	id              BIGSERIAL PRIMARY KEY,
	room_id         BIGINT NOT NULL REFERENCES rooms(id),
	sender_user_id  BIGINT REFERENCES users(id),
	sender_username VARCHAR(64) NOT NULL,
	content         VARCHAR(2000) NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_messages_room_created ON messages(room_id, created_at);
`

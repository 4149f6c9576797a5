package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"wedding-planner/internal/models"
)

// ErrNotFound is returned by lookups when no matching record exists.
var ErrNotFound = errors.New("record not found")

const schema = `
CREATE TABLE IF NOT EXISTS guests (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	email       TEXT NOT NULL,
	slug        TEXT NOT NULL,
	plus_one    TEXT NOT NULL DEFAULT '',
	attending   TEXT,
	invite_sent INTEGER NOT NULL DEFAULT 0,
	messages    TEXT,
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_guests_slug ON guests(slug);
CREATE INDEX IF NOT EXISTS idx_guests_email ON guests(email);

CREATE TABLE IF NOT EXISTS dash_users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	display_name  TEXT NOT NULL,
	role          TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS dash_sessions (
	token      TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES dash_users(id),
	expires_at TIMESTAMP NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_dash_sessions_user ON dash_sessions(user_id);
`

// Slug and email deliberately have no UNIQUE constraint: collisions are
// detected by the guest service so the dashboard can confirm them with
// the organizer before a forced insert goes through.

// Store persists guests, organizer accounts and sessions in SQLite.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewStore opens (or creates) the SQLite database at the given path and
// applies the schema.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{
		db:  db,
		log: zerolog.New(os.Stdout).With().Timestamp().Str("component", "storage").Logger(),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Begin starts a write transaction. The caller must Commit or Rollback.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Tx is a transaction scoped view of the store.
type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Commit() error   { return t.tx.Commit() }
func (t *Tx) Rollback() error { return t.tx.Rollback() }

const guestColumns = "id, name, email, slug, plus_one, attending, invite_sent, messages, created_at"

func scanGuest(row *sql.Row) (*models.Guest, error) {
	var g models.Guest
	var attending sql.NullString
	var inviteSent int
	var messages sql.NullString

	err := row.Scan(&g.ID, &g.Name, &g.Email, &g.Slug, &g.PlusOne, &attending, &inviteSent, &messages, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan guest: %w", err)
	}

	g.Attending = models.AttendancePending
	if attending.Valid {
		g.Attending = models.Attendance(attending.String)
	}
	g.InviteSent = inviteSent != 0
	if messages.Valid && messages.String != "" {
		if err := json.Unmarshal([]byte(messages.String), &g.Messages); err != nil {
			return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
		}
	}
	return &g, nil
}

func guestArgs(g models.Guest) ([]any, error) {
	var attending any
	if g.Attending == models.AttendanceYes || g.Attending == models.AttendanceNo {
		attending = string(g.Attending)
	}

	var messages any
	if len(g.Messages) > 0 {
		data, err := json.Marshal(g.Messages)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal messages: %w", err)
		}
		messages = string(data)
	}

	inviteSent := 0
	if g.InviteSent {
		inviteSent = 1
	}

	return []any{g.ID, g.Name, g.Email, g.Slug, g.PlusOne, attending, inviteSent, messages, g.CreatedAt}, nil
}

func insertGuest(ctx context.Context, q dbtx, g models.Guest) error {
	args, err := guestArgs(g)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		"INSERT INTO guests ("+guestColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", args...)
	if err != nil {
		return fmt.Errorf("failed to insert guest: %w", err)
	}
	return nil
}

func updateGuest(ctx context.Context, q dbtx, g models.Guest) error {
	args, err := guestArgs(g)
	if err != nil {
		return err
	}
	// Shift id to the WHERE clause; created_at is immutable alongside it.
	res, err := q.ExecContext(ctx,
		`UPDATE guests SET name = ?, email = ?, slug = ?, plus_one = ?, attending = ?, invite_sent = ?, messages = ?
		 WHERE id = ?`,
		args[1], args[2], args[3], args[4], args[5], args[6], args[7], g.ID)
	if err != nil {
		return fmt.Errorf("failed to update guest: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func getGuestByID(ctx context.Context, q dbtx, id string) (*models.Guest, error) {
	return scanGuest(q.QueryRowContext(ctx, "SELECT "+guestColumns+" FROM guests WHERE id = ?", id))
}

func getGuestBySlug(ctx context.Context, q dbtx, slug string) (*models.Guest, error) {
	return scanGuest(q.QueryRowContext(ctx, "SELECT "+guestColumns+" FROM guests WHERE slug = ? LIMIT 1", slug))
}

func getGuestByEmail(ctx context.Context, q dbtx, email string) (*models.Guest, error) {
	return scanGuest(q.QueryRowContext(ctx, "SELECT "+guestColumns+" FROM guests WHERE email = ? LIMIT 1", email))
}

// InsertGuest adds a new guest record.
func (s *Store) InsertGuest(ctx context.Context, g models.Guest) error {
	return insertGuest(ctx, s.db, g)
}

// UpdateGuest replaces the mutable fields of an existing guest.
// Returns ErrNotFound if the id does not resolve.
func (s *Store) UpdateGuest(ctx context.Context, g models.Guest) error {
	return updateGuest(ctx, s.db, g)
}

// GetGuestByID retrieves a guest by its identifier.
func (s *Store) GetGuestByID(ctx context.Context, id string) (*models.Guest, error) {
	return getGuestByID(ctx, s.db, id)
}

// GetGuestBySlug retrieves a guest by its public slug.
func (s *Store) GetGuestBySlug(ctx context.Context, slug string) (*models.Guest, error) {
	return getGuestBySlug(ctx, s.db, slug)
}

// GetGuestByEmail retrieves a guest by email address.
func (s *Store) GetGuestByEmail(ctx context.Context, email string) (*models.Guest, error) {
	return getGuestByEmail(ctx, s.db, email)
}

// ListGuests returns all guests ordered by creation time.
func (s *Store) ListGuests(ctx context.Context) ([]models.Guest, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+guestColumns+" FROM guests ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", err)
	}
	defer rows.Close()

	guests := make([]models.Guest, 0)
	for rows.Next() {
		var g models.Guest
		var attending sql.NullString
		var inviteSent int
		var messages sql.NullString

		if err := rows.Scan(&g.ID, &g.Name, &g.Email, &g.Slug, &g.PlusOne, &attending, &inviteSent, &messages, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan guest: %w", err)
		}
		g.Attending = models.AttendancePending
		if attending.Valid {
			g.Attending = models.Attendance(attending.String)
		}
		g.InviteSent = inviteSent != 0
		if messages.Valid && messages.String != "" {
			if err := json.Unmarshal([]byte(messages.String), &g.Messages); err != nil {
				return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
			}
		}
		guests = append(guests, g)
	}
	return guests, rows.Err()
}

// DeleteGuest removes a guest. Deleting a missing guest is not an error.
func (s *Store) DeleteGuest(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM guests WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete guest: %w", err)
	}
	return nil
}

// SetAttending updates only the attendance field of a guest.
func (s *Store) SetAttending(ctx context.Context, id string, attending models.Attendance) error {
	var value any
	if attending == models.AttendanceYes || attending == models.AttendanceNo {
		value = string(attending)
	}
	res, err := s.db.ExecContext(ctx, "UPDATE guests SET attending = ? WHERE id = ?", value, id)
	if err != nil {
		return fmt.Errorf("failed to set attendance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetInviteSent flags a guest as invited. The flag is one-way.
func (s *Store) SetInviteSent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE guests SET invite_sent = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to set invite flag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Transaction-scoped guest operations, used by the guest service to keep
// the collision check and the insert in a single transaction.

func (t *Tx) GetGuestBySlug(ctx context.Context, slug string) (*models.Guest, error) {
	return getGuestBySlug(ctx, t.tx, slug)
}

func (t *Tx) GetGuestByEmail(ctx context.Context, email string) (*models.Guest, error) {
	return getGuestByEmail(ctx, t.tx, email)
}

func (t *Tx) GetGuestByID(ctx context.Context, id string) (*models.Guest, error) {
	return getGuestByID(ctx, t.tx, id)
}

func (t *Tx) InsertGuest(ctx context.Context, g models.Guest) error {
	return insertGuest(ctx, t.tx, g)
}

func (t *Tx) UpdateGuest(ctx context.Context, g models.Guest) error {
	return updateGuest(ctx, t.tx, g)
}

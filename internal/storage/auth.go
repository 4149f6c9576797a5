package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"wedding-planner/internal/models"
)

// InsertUser adds an organizer account.
func (s *Store) InsertUser(ctx context.Context, u models.DashUser) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO dash_users (id, username, password_hash, display_name, role, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		u.ID, u.Username, u.PasswordHash, u.DisplayName, u.Role, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// UpdateUserPassword replaces the stored password hash for a user.
func (s *Store) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE dash_users SET password_hash = ? WHERE id = ?", passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
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

func scanUser(row *sql.Row) (*models.DashUser, error) {
	var u models.DashUser
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.DisplayName, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

const userColumns = "id, username, password_hash, display_name, role, created_at"

// GetUserByUsername retrieves an organizer account by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.DashUser, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM dash_users WHERE username = ?", username))
}

// GetUserByID retrieves an organizer account by id.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.DashUser, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM dash_users WHERE id = ?", id))
}

// InsertSession stores a new session token.
func (s *Store) InsertSession(ctx context.Context, sess models.Session) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO dash_sessions (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)",
		sess.Token, sess.UserID, sess.ExpiresAt, sess.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetSessionByToken retrieves a session by its token.
func (s *Store) GetSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	var sess models.Session
	err := s.db.QueryRowContext(ctx,
		"SELECT token, user_id, expires_at, created_at FROM dash_sessions WHERE token = ?", token).
		Scan(&sess.Token, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	return &sess, nil
}

// DeleteSession removes a session. Deleting a missing session is not an error.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM dash_sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

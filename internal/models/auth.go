package models

import "time"

// DashUser is an organizer account for the dashboard. Accounts are
// created by the seed command only, never through a public flow.
type DashUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is a bearer credential for a logged-in dashboard user
type Session struct {
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the session's expiry has passed at the given time.
func (s Session) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}

package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"wedding-planner/internal/models"
	"wedding-planner/internal/storage"
)

var (
	// ErrUnauthorized is returned when a guarded operation is called with
	// a missing, unknown or expired session token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is returned by Login for a bad username or password.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

const (
	sessionTTL    = 24 * time.Hour
	tokenLength   = 64
	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Service owns login, logout and session validation for the dashboard.
type Service struct {
	store *storage.Store
	log   zerolog.Logger
	now   func() time.Time
}

// NewService creates an auth service backed by the given store.
func NewService(store *storage.Store) *Service {
	return &Service{
		store: store,
		log:   zerolog.New(os.Stdout).With().Timestamp().Str("component", "auth").Logger(),
		now:   time.Now,
	}
}

// Login verifies the credentials and, on success, creates a session
// valid for 24 hours and returns its token.
func (s *Service) Login(ctx context.Context, username, password string) (string, *models.DashUser, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if user.PasswordHash != HashPassword(password) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := generateToken()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := s.now()
	sess := models.Session{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: now.Add(sessionTTL),
		CreatedAt: now,
	}
	if err := s.store.InsertSession(ctx, sess); err != nil {
		return "", nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.log.Info().Str("username", user.Username).Msg("User logged in")
	return token, user, nil
}

// Logout invalidates the session. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ValidateSession resolves a token to its user and session. Expired
// sessions are deleted as soon as any access observes them; the caller
// always gets ErrUnauthorized for a token that no longer counts.
func (s *Service) ValidateSession(ctx context.Context, token string) (*models.DashUser, *models.Session, error) {
	if token == "" {
		return nil, nil, ErrUnauthorized
	}

	sess, err := s.store.GetSessionByToken(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, ErrUnauthorized
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up session: %w", err)
	}

	if sess.Expired(s.now()) {
		if err := s.store.DeleteSession(ctx, token); err != nil {
			s.log.Error().Err(err).Msg("Failed to delete expired session")
		}
		return nil, nil, ErrUnauthorized
	}

	user, err := s.store.GetUserByID(ctx, sess.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, ErrUnauthorized
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up session user: %w", err)
	}

	return user, sess, nil
}

// RequireAuth gates a dashboard operation on a valid session.
func (s *Service) RequireAuth(ctx context.Context, token string) (*models.DashUser, *models.Session, error) {
	return s.ValidateSession(ctx, token)
}

// OptionalAuth resolves a token if it is valid and returns nil otherwise,
// so read paths can degrade gracefully for anonymous callers.
func (s *Service) OptionalAuth(ctx context.Context, token string) (*models.DashUser, *models.Session) {
	user, sess, err := s.ValidateSession(ctx, token)
	if err != nil {
		return nil, nil
	}
	return user, sess
}

// HashPassword applies the dashboard's historical password hash: a
// 32-bit string hash rendered as signed hex. It is NOT a cryptographic
// hash and is unsuitable for production use; it is kept so credentials
// seeded by earlier deployments keep working.
func HashPassword(password string) string {
	var hash int32
	for _, r := range password {
		hash = (hash << 5) - hash + int32(r)
	}
	if hash < 0 {
		return "-" + strconv.FormatInt(-int64(hash), 16)
	}
	return strconv.FormatInt(int64(hash), 16)
}

// generateToken draws a 64-character token from a 62-symbol alphabet.
// Uniqueness is probabilistic; no collision check is performed.
func generateToken() (string, error) {
	alphabetLen := big.NewInt(int64(len(tokenAlphabet)))
	buf := make([]byte, tokenLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		buf[i] = tokenAlphabet[n.Int64()]
	}
	return string(buf), nil
}

package guest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"wedding-planner/internal/auth"
	"wedding-planner/internal/csvimport"
	"wedding-planner/internal/mail"
	"wedding-planner/internal/models"
	"wedding-planner/internal/storage"
)

var (
	// ErrNotFound is returned when a guest id or slug does not resolve.
	ErrNotFound = errors.New("guest not found")
	// ErrInvalidInput is returned for structurally invalid guest fields.
	ErrInvalidInput = errors.New("invalid guest input")
)

// Status distinguishes mutation outcomes. Duplicate is a successful
// result, not an error: it drives the dashboard's confirmation dialog.
type Status string

const (
	StatusCreated   Status = "created"
	StatusUpdated   Status = "updated"
	StatusDuplicate Status = "duplicate"
)

// Duplicates records which uniqueness keys collided with an existing guest.
type Duplicates struct {
	Slug  bool `json:"slug"`
	Email bool `json:"email"`
}

// Any reports whether at least one key collided.
func (d Duplicates) Any() bool {
	return d.Slug || d.Email
}

// Result is the outcome of an add or update mutation. Duplicates is
// populated whenever a collision was observed, including on forced
// writes, so the dashboard can still surface it.
type Result struct {
	Status     Status      `json:"status"`
	ID         string      `json:"id,omitempty"`
	Duplicates *Duplicates `json:"duplicates,omitempty"`
}

// Input carries the mutable guest fields for add and update.
type Input struct {
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Slug       string            `json:"slug"`
	PlusOne    string            `json:"plus_one"`
	Attending  models.Attendance `json:"attending"`
	InviteSent bool              `json:"invite_sent"`
	Messages   []string          `json:"messages"`
}

func (in Input) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Email) == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Slug) == "" {
		return fmt.Errorf("%w: slug is required", ErrInvalidInput)
	}
	if _, ok := models.ParseAttendance(string(in.Attending)); !ok {
		return fmt.Errorf("%w: attending must be pending, yes, or no", ErrInvalidInput)
	}
	return nil
}

// Service implements the guest mutation engine on top of the store.
// Every dashboard mutation is gated on a valid session; the RSVP path
// is public and trusts the slug as its capability.
type Service struct {
	store  *storage.Store
	auth   *auth.Service
	sender mail.Sender

	fromName string
	from     string

	log zerolog.Logger
	now func() time.Time
}

// NewService creates the guest service. The sender and from address are
// used by SendInvite.
func NewService(store *storage.Store, authSvc *auth.Service, sender mail.Sender, fromName, from string) *Service {
	return &Service{
		store:    store,
		auth:     authSvc,
		sender:   sender,
		fromName: fromName,
		from:     from,
		log:      zerolog.New(os.Stdout).With().Timestamp().Str("component", "guest").Logger(),
		now:      time.Now,
	}
}

// List returns all guests. Requires a valid session.
func (s *Service) List(ctx context.Context, token string) ([]models.Guest, error) {
	if _, _, err := s.auth.RequireAuth(ctx, token); err != nil {
		return nil, err
	}
	return s.store.ListGuests(ctx)
}

// GetBySlug returns the guest behind a public invitation page.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*models.Guest, error) {
	g, err := s.store.GetGuestBySlug(ctx, slug)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	return g, err
}

// Add creates a guest. Slug and email are checked against existing
// guests inside one transaction; a collision without force returns a
// duplicate result and inserts nothing. With force the insert goes
// through and the collision is still reported.
func (s *Service) Add(ctx context.Context, token string, in Input, force bool) (*Result, error) {
	if _, _, err := s.auth.RequireAuth(ctx, token); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	dups, err := collisions(ctx, tx, in.Slug, in.Email)
	if err != nil {
		return nil, err
	}

	if dups.Any() && !force {
		return &Result{Status: StatusDuplicate, Duplicates: &dups}, nil
	}

	g := models.Guest{
		ID:         uuid.NewString(),
		Name:       in.Name,
		Email:      in.Email,
		Slug:       in.Slug,
		PlusOne:    in.PlusOne,
		Attending:  in.Attending,
		InviteSent: in.InviteSent,
		Messages:   in.Messages,
		CreatedAt:  s.now(),
	}
	if g.Attending == "" {
		g.Attending = models.AttendancePending
	}

	if err := tx.InsertGuest(ctx, g); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit guest insert: %w", err)
	}

	s.log.Info().Str("id", g.ID).Str("slug", g.Slug).Bool("forced", dups.Any()).Msg("Guest created")

	result := &Result{Status: StatusCreated, ID: g.ID}
	if dups.Any() {
		result.Duplicates = &dups
	}
	return result, nil
}

// Update edits a guest. Slug and email are only checked when they
// change, so a guest never collides with itself. Same duplicate/force
// contract as Add. The invite flag never reverts to false.
func (s *Service) Update(ctx context.Context, token, id string, in Input, force bool) (*Result, error) {
	if _, _, err := s.auth.RequireAuth(ctx, token); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	current, err := tx.GetGuestByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var dups Duplicates
	if in.Slug != current.Slug {
		other, err := tx.GetGuestBySlug(ctx, in.Slug)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		dups.Slug = other != nil
	}
	if in.Email != current.Email {
		other, err := tx.GetGuestByEmail(ctx, in.Email)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		dups.Email = other != nil
	}

	if dups.Any() && !force {
		return &Result{Status: StatusDuplicate, Duplicates: &dups}, nil
	}

	updated := models.Guest{
		ID:         current.ID,
		Name:       in.Name,
		Email:      in.Email,
		Slug:       in.Slug,
		PlusOne:    in.PlusOne,
		Attending:  in.Attending,
		InviteSent: current.InviteSent || in.InviteSent,
		Messages:   in.Messages,
		CreatedAt:  current.CreatedAt,
	}
	if updated.Attending == "" {
		updated.Attending = models.AttendancePending
	}

	if err := tx.UpdateGuest(ctx, updated); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit guest update: %w", err)
	}

	s.log.Info().Str("id", id).Bool("forced", dups.Any()).Msg("Guest updated")

	result := &Result{Status: StatusUpdated, ID: id}
	if dups.Any() {
		result.Duplicates = &dups
	}
	return result, nil
}

// Delete removes a guest. Deleting an unknown id succeeds.
func (s *Service) Delete(ctx context.Context, token, id string) error {
	if _, _, err := s.auth.RequireAuth(ctx, token); err != nil {
		return err
	}
	if err := s.store.DeleteGuest(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("id", id).Msg("Guest deleted")
	return nil
}

// MarkInviteSent flags a guest as invited. The flag only moves to true.
func (s *Service) MarkInviteSent(ctx context.Context, token, id string) error {
	if _, _, err := s.auth.RequireAuth(ctx, token); err != nil {
		return err
	}
	err := s.store.SetInviteSent(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// SubmitRSVP records a public RSVP response for the guest behind the
// slug and returns whether they are attending.
func (s *Service) SubmitRSVP(ctx context.Context, slug, response string) (bool, error) {
	var attending models.Attendance
	switch response {
	case "yes":
		attending = models.AttendanceYes
	case "no":
		attending = models.AttendanceNo
	default:
		return false, fmt.Errorf("%w: rsvp response must be \"yes\" or \"no\"", ErrInvalidInput)
	}

	g, err := s.store.GetGuestBySlug(ctx, slug)
	if errors.Is(err, storage.ErrNotFound) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}

	if err := s.store.SetAttending(ctx, g.ID, attending); err != nil {
		return false, err
	}

	s.log.Info().Str("slug", slug).Str("response", response).Msg("RSVP recorded")
	return attending == models.AttendanceYes, nil
}

// SendInvite renders and delivers the invitation email for a guest and
// marks the invite sent only after delivery succeeds.
func (s *Service) SendInvite(ctx context.Context, token, id, baseURL string) error {
	if _, _, err := s.auth.RequireAuth(ctx, token); err != nil {
		return err
	}

	g, err := s.store.GetGuestByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	names := g.Name
	if g.PlusOne != "" {
		names = g.Name + " and " + g.PlusOne
	}
	link := strings.TrimSuffix(baseURL, "/") + "/" + g.Slug

	msg := mail.Message{
		FromName: s.fromName,
		From:     s.from,
		To:       g.Email,
		Subject:  mail.InvitationSubject,
		HTML:     mail.InvitationHTML(names, link),
		Text:     mail.InvitationText(names, link),
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send invitation: %w", err)
	}

	if err := s.store.SetInviteSent(ctx, g.ID); err != nil {
		return err
	}

	s.log.Info().Str("id", g.ID).Str("email", g.Email).Msg("Invitation sent")
	return nil
}

// BulkImport inserts one batch of parsed rows. Rows are skipped, never
// merged: existing emails, emails repeated earlier in the same batch,
// colliding slugs and invalid rows are counted and left alone.
func (s *Service) BulkImport(ctx context.Context, token string, rows []csvimport.Row) (csvimport.Summary, error) {
	summary := csvimport.Summary{TotalRows: len(rows)}

	if _, _, err := s.auth.RequireAuth(ctx, token); err != nil {
		return summary, err
	}

	seenEmails := make(map[string]bool, len(rows))

	for _, row := range rows {
		name := strings.TrimSpace(row.Name)
		slug := strings.TrimSpace(row.Slug)
		email := strings.ToLower(strings.TrimSpace(row.Email))

		if name == "" || slug == "" || email == "" {
			summary.SkippedInvalid++
			continue
		}

		// The seen-set check runs before the repository lookup: earlier
		// rows of the same batch are already inserted, so a repository
		// hit alone cannot tell a file duplicate from a real existing
		// guest.
		if seenEmails[email] {
			summary.SkippedDuplicateFileEmail++
			continue
		}
		seenEmails[email] = true

		if _, err := s.store.GetGuestByEmail(ctx, email); err == nil {
			summary.SkippedExistingEmail++
			continue
		} else if !errors.Is(err, storage.ErrNotFound) {
			return summary, err
		}

		if _, err := s.store.GetGuestBySlug(ctx, slug); err == nil {
			summary.SkippedDuplicateSlug++
			continue
		} else if !errors.Is(err, storage.ErrNotFound) {
			return summary, err
		}

		g := models.Guest{
			ID:        uuid.NewString(),
			Name:      name,
			Email:     email,
			Slug:      slug,
			PlusOne:   strings.TrimSpace(row.PlusOne),
			Attending: models.AttendancePending,
			CreatedAt: s.now(),
		}
		if err := s.store.InsertGuest(ctx, g); err != nil {
			return summary, err
		}
		summary.Imported++
	}

	s.log.Info().
		Int("imported", summary.Imported).
		Int("rows", summary.TotalRows).
		Msg("Bulk import batch processed")
	return summary, nil
}

func collisions(ctx context.Context, tx *storage.Tx, slug, email string) (Duplicates, error) {
	var dups Duplicates

	bySlug, err := tx.GetGuestBySlug(ctx, slug)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return dups, err
	}
	byEmail, err := tx.GetGuestByEmail(ctx, email)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return dups, err
	}

	dups.Slug = bySlug != nil
	dups.Email = byEmail != nil
	return dups, nil
}

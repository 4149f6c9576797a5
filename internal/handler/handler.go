package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/didip/tollbooth/v7"
	"github.com/didip/tollbooth/v7/limiter"
	"github.com/rs/zerolog"

	"wedding-planner/internal/auth"
	"wedding-planner/internal/csvimport"
	"wedding-planner/internal/guest"
	"wedding-planner/internal/models"
)

const (
	sessionCookieName = "dash_session"
	sessionMaxAge     = 24 * 60 * 60 // seconds
	maxImportBody     = 5 << 20
)

// Config holds the handler's transport settings.
type Config struct {
	BaseURL       string
	SecureCookies bool
}

// Handler exposes the guest-management core as a JSON API. Session
// tokens ride an HttpOnly cookie; a bearer header works too so the API
// can be scripted.
type Handler struct {
	auth     *auth.Service
	guests   *guest.Service
	importer *csvimport.Importer
	cfg      Config
	log      zerolog.Logger
}

// New creates the API handler.
func New(authSvc *auth.Service, guests *guest.Service, cfg Config) *Handler {
	return &Handler{
		auth:     authSvc,
		guests:   guests,
		importer: csvimport.NewImporter(guests),
		cfg:      cfg,
		log:      zerolog.New(os.Stdout).With().Timestamp().Str("component", "http").Logger(),
	}
}

// Routes builds the request mux. Login is rate limited per client IP.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	lmt := tollbooth.NewLimiter(1, &limiter.ExpirableOptions{DefaultExpirationTTL: time.Hour})
	lmt.SetMethods([]string{http.MethodPost})
	mux.Handle("POST /api/login", tollbooth.LimitFuncHandler(lmt, h.wrap(h.handleLogin)))

	mux.Handle("POST /api/logout", h.wrap(h.handleLogout))
	mux.Handle("GET /api/session", h.wrap(h.handleSession))

	mux.Handle("GET /api/guests", h.wrap(h.handleListGuests))
	mux.Handle("POST /api/guests", h.wrap(h.handleAddGuest))
	mux.Handle("PUT /api/guests/{id}", h.wrap(h.handleUpdateGuest))
	mux.Handle("DELETE /api/guests/{id}", h.wrap(h.handleDeleteGuest))
	mux.Handle("POST /api/guests/{id}/invite", h.wrap(h.handleSendInvite))
	mux.Handle("POST /api/guests/{id}/invite-sent", h.wrap(h.handleMarkInviteSent))
	mux.Handle("POST /api/guests/import", h.wrap(h.handleImport))

	mux.Handle("GET /api/rsvp/{slug}", h.wrap(h.handleGetGuestBySlug))
	mux.Handle("POST /api/rsvp/{slug}", h.wrap(h.handleSubmitRSVP))

	return mux
}

// apiFunc is a handler that returns an error to be mapped onto an HTTP
// status by wrap.
type apiFunc func(w http.ResponseWriter, r *http.Request) error

func (h *Handler) wrap(fn apiFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			h.writeError(w, r, err)
		}
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, guest.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, guest.ErrInvalidInput):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body", guest.ErrInvalidInput)
	}
	return nil
}

// sessionToken extracts the token from the session cookie or, failing
// that, a bearer Authorization header.
func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

func toUserResponse(u *models.DashUser) userResponse {
	return userResponse{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        u.Role,
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) error {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	token, user, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	h.setSessionCookie(w, token, sessionMaxAge)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    toUserResponse(user),
	})
	return nil
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) error {
	if err := h.auth.Logout(r.Context(), sessionToken(r)); err != nil {
		return err
	}
	h.setSessionCookie(w, "", -1)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	return nil
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) error {
	user, _ := h.auth.OptionalAuth(r.Context(), sessionToken(r))
	if user == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"authenticated": false})
		return nil
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          toUserResponse(user),
	})
	return nil
}

func (h *Handler) handleListGuests(w http.ResponseWriter, r *http.Request) error {
	guests, err := h.guests.List(r.Context(), sessionToken(r))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, guests)
	return nil
}

type guestRequest struct {
	guest.Input
	Force bool `json:"force"`
}

func (h *Handler) handleAddGuest(w http.ResponseWriter, r *http.Request) error {
	var req guestRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	result, err := h.guests.Add(r.Context(), sessionToken(r), req.Input, req.Force)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, result)
	return nil
}

func (h *Handler) handleUpdateGuest(w http.ResponseWriter, r *http.Request) error {
	var req guestRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	result, err := h.guests.Update(r.Context(), sessionToken(r), r.PathValue("id"), req.Input, req.Force)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, result)
	return nil
}

func (h *Handler) handleDeleteGuest(w http.ResponseWriter, r *http.Request) error {
	if err := h.guests.Delete(r.Context(), sessionToken(r), r.PathValue("id")); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	return nil
}

func (h *Handler) handleMarkInviteSent(w http.ResponseWriter, r *http.Request) error {
	if err := h.guests.MarkInviteSent(r.Context(), sessionToken(r), r.PathValue("id")); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	return nil
}

func (h *Handler) handleSendInvite(w http.ResponseWriter, r *http.Request) error {
	if err := h.guests.SendInvite(r.Context(), sessionToken(r), r.PathValue("id"), h.cfg.BaseURL); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	return nil
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBody))
	if err != nil {
		return fmt.Errorf("failed to read import body: %w", err)
	}

	rows, err := csvimport.Parse(string(body))
	if err != nil {
		return fmt.Errorf("%w: %s", guest.ErrInvalidInput, err.Error())
	}

	summary, err := h.importer.Run(r.Context(), sessionToken(r), rows)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, summary)
	return nil
}

func (h *Handler) handleGetGuestBySlug(w http.ResponseWriter, r *http.Request) error {
	g, err := h.guests.GetBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		return err
	}
	// Public view: no email, the invitation page does not need it.
	writeJSON(w, http.StatusOK, map[string]any{
		"name":      g.Name,
		"slug":      g.Slug,
		"plus_one":  g.PlusOne,
		"attending": g.Attending,
		"messages":  g.Messages,
	})
	return nil
}

type rsvpRequest struct {
	Response string `json:"response"`
}

func (h *Handler) handleSubmitRSVP(w http.ResponseWriter, r *http.Request) error {
	var req rsvpRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	attending, err := h.guests.SubmitRSVP(r.Context(), r.PathValue("slug"), req.Response)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "attending": attending})
	return nil
}

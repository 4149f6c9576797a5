package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding-planner/internal/auth"
	"wedding-planner/internal/guest"
	"wedding-planner/internal/mail"
	"wedding-planner/internal/models"
	"wedding-planner/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.InsertUser(context.Background(), models.DashUser{
		ID:           "user-1",
		Username:     "gilow",
		PasswordHash: auth.HashPassword("pw"),
		DisplayName:  "Admin",
		Role:         "admin",
		CreatedAt:    time.Now(),
	}))

	authSvc := auth.NewService(store)
	guestSvc := guest.NewService(store, authSvc, mail.NewLogSender(), "The Couple", "invites@example.com")

	h := New(authSvc, guestSvc, Config{BaseURL: "https://wedding.example.com"})
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func login(t *testing.T, srv *httptest.Server) *http.Cookie {
	t.Helper()

	body := `{"username":"gilow","password":"pw"}`
	resp, err := http.Post(srv.URL+"/api/login", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, c := range resp.Cookies() {
		if c.Name == sessionCookieName {
			require.NotEmpty(t, c.Value)
			assert.True(t, c.HttpOnly)
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func doJSON(t *testing.T, method, url string, cookie *http.Cookie, body string) (*http.Response, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestLoginFlow(t *testing.T) {
	srv := newTestServer(t)
	cookie := login(t, srv)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/session", cookie, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["authenticated"])

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/logout", cookie, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/session", cookie, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["authenticated"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/login", nil, `{"username":"gilow","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGuestEndpointsRequireAuth(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/guests", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/guests", nil, `{"name":"Jane","email":"j@e.com","slug":"jane"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/guests/some-id", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGuestCRUDAndRSVP(t *testing.T) {
	srv := newTestServer(t)
	cookie := login(t, srv)

	// Create.
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/guests", cookie,
		`{"name":"Jane Doe","email":"jane@example.com","slug":"jane-doe"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "created", body["status"])
	id := body["id"].(string)

	// Duplicate without force.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/guests", cookie,
		`{"name":"Other","email":"jane@example.com","slug":"other"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "duplicate", body["status"])

	// List shows one guest.
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/guests", cookie, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Public RSVP by slug.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/rsvp/jane-doe", nil, `{"response":"no"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["attending"])

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/rsvp/jane-doe", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no", body["attending"])

	// Update.
	resp, body = doJSON(t, http.MethodPut, srv.URL+"/api/guests/"+id, cookie,
		`{"name":"Jane Renamed","email":"jane@example.com","slug":"jane-doe"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "updated", body["status"])

	// Delete.
	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/guests/"+id, cookie, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/rsvp/jane-doe", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestImportEndpoint(t *testing.T) {
	srv := newTestServer(t)
	cookie := login(t, srv)

	var csv strings.Builder
	csv.WriteString("name,slug,email,plus one\n")
	for i := 0; i < 120; i++ {
		fmt.Fprintf(&csv, "Guest %d,guest-%d,guest%d@example.com,\n", i, i, i)
	}

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/guests/import", strings.NewReader(csv.String()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/csv")
	req.AddCookie(cookie)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, float64(120), summary["importedCount"])
	assert.Equal(t, float64(120), summary["totalRows"])
}

func TestImportRejectsBadHeader(t *testing.T) {
	srv := newTestServer(t)
	cookie := login(t, srv)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/guests/import", strings.NewReader("name,slug,plus one\nJane,jane,"))
	require.NoError(t, err)
	req.AddCookie(cookie)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "email")
}

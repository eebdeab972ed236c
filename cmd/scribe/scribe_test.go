package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mind-scribe/internal/services/auth"
	"mind-scribe/internal/services/notes"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	testToken    = "tok-ada"
	testEmail    = "ada@example.com"
	testPassword = "Password123"
)

var (
	testUserID = bson.NewObjectID()
	testNote   = &notes.Note{
		ID:            bson.NewObjectID(),
		OwnerID:       testUserID,
		Collaborators: []string{testEmail, "bob@example.com"},
		Title:         "Groceries",
		Category:      "errands",
		Shared:        true,
		Location:      notes.NewPoint(-122.4194, 37.7749),
	}
)

// fakeAPI serves just enough of the REST surface for the CLI.
func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()

	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+testToken {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid or expired token."})
				return
			}
			next(w, r)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req auth.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != testPassword {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid email or password."})
			return
		}
		writeJSON(w, http.StatusOK, auth.LoginResponse{Success: true, Token: testToken})
	})
	mux.HandleFunc("GET /api/auth/verify", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, auth.VerifyResponse{Success: true, Valid: true, UserID: testUserID.Hex()})
	}))
	mux.HandleFunc("GET /api/auth/me", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, auth.UserResponse{Success: true, User: &auth.User{
			ID: testUserID, Fullname: "Ada Lovelace", Email: testEmail, Notes: []bson.ObjectID{testNote.ID},
		}})
	}))
	mux.HandleFunc("GET /api/notes/", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, notes.ListNotesResponse{Success: true, Notes: []*notes.Note{testNote}})
	}))
	mux.HandleFunc("GET /api/notes/nearby", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, notes.ListNotesResponse{Success: true, Notes: []*notes.Note{testNote}})
	}))
	mux.HandleFunc("GET /ws/notes/stream", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != testToken {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		up := websocket.Upgrader{}
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		_ = conn.WriteJSON(map[string]any{"type": "shared", "email": "bob@example.com", "note": testNote})
		_ = conn.WriteJSON(map[string]any{"type": "deleted", "note": map[string]any{"id": testNote.ID.Hex()}})
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session expired"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// execute runs the CLI against srv with a session file under t.TempDir.
func execute(t *testing.T, srv *httptest.Server, sessionPath string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append([]string{"--api-url", srv.URL, "--session-file", sessionPath}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoginWhoamiLogout(t *testing.T) {
	srv := fakeAPI(t)
	path := filepath.Join(t.TempDir(), "session.yaml")

	_, err := execute(t, srv, path, "whoami")
	require.ErrorIs(t, err, errNotLoggedIn)

	_, err = execute(t, srv, path, "login", "--email", testEmail, "--password", "wrong1")
	require.EqualError(t, err, "Invalid email or password.")
	assert.NoFileExists(t, path)

	out, err := execute(t, srv, path, "login", "--email", testEmail, "--password", testPassword)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as "+testEmail)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), testUserID.Hex())

	out, err = execute(t, srv, path, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Ada Lovelace <"+testEmail+">")
	assert.Contains(t, out, "notes: 1")

	out, err = execute(t, srv, path, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	assert.NoFileExists(t, path)
}

func login(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.yaml")
	_, err := execute(t, srv, path, "login", "--email", testEmail, "--password", testPassword)
	require.NoError(t, err)
	return path
}

func TestNotesList(t *testing.T) {
	srv := fakeAPI(t)
	path := login(t, srv)

	out, err := execute(t, srv, path, "notes", "list")
	require.NoError(t, err)
	assert.Contains(t, out, testNote.ID.Hex())
	assert.Contains(t, out, "Groceries")
	assert.Contains(t, out, "shared(2)")
	assert.Contains(t, out, "@-122.41940,37.77490")
}

func TestTrackPrintsNotification(t *testing.T) {
	srv := fakeAPI(t)
	path := login(t, srv)

	feed := filepath.Join(t.TempDir(), "feed.txt")
	require.NoError(t, os.WriteFile(feed, []byte("# morning walk\n-122.4194,37.7749\n-122.4195,37.7749\n"), 0o600))

	out, err := execute(t, srv, path, "track", "--input", feed)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1, "second sample is within the minimum move")

	var n map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &n))
	assert.Equal(t, "Nearby Note", n["title"])
	assert.Equal(t, "You are near the location of the note: Groceries", n["body"])
}

func TestTrackRequiresSession(t *testing.T) {
	srv := fakeAPI(t)
	path := filepath.Join(t.TempDir(), "session.yaml")

	_, err := execute(t, srv, path, "track", "--input", "-")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestWatchStreamsUntilSessionExpires(t *testing.T) {
	srv := fakeAPI(t)
	path := login(t, srv)

	out, err := execute(t, srv, path, "watch")
	require.ErrorIs(t, err, errSessionExpired)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "shared "+testNote.ID.Hex()+` "Groceries" bob@example.com`)
	assert.Contains(t, lines[1], "deleted "+testNote.ID.Hex())
}

func TestStreamURL(t *testing.T) {
	tests := []struct {
		base    string
		want    string
		wantErr bool
	}{
		{base: "http://localhost:4000", want: "ws://localhost:4000/ws/notes/stream?token=abc"},
		{base: "https://api.example.com/", want: "wss://api.example.com/ws/notes/stream?token=abc"},
		{base: "https://example.com/scribe", want: "wss://example.com/scribe/ws/notes/stream?token=abc"},
		{base: "ftp://example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := streamURL(tt.base, "abc")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

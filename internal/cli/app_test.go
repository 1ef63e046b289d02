package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/saransh1220/filebox/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type server struct {
	mu       sync.Mutex
	userID   uuid.UUID
	files    map[uuid.UUID]string
	uploaded []string
}

func newServer(t *testing.T) (*server, *httptest.Server) {
	t.Helper()
	s := &server{userID: uuid.New(), files: map[uuid.UUID]string{}}
	reply := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusCreated, map[string]string{"message": "User created successfully"})
	})
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "secret1" {
			reply(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
			return
		}
		reply(w, http.StatusOK, map[string]any{"message": "Login ok", "session": map[string]any{
			"access_token": "tok",
			"expires_at":   time.Now().Add(time.Hour).Unix(),
			"user":         map[string]any{"id": s.userID, "email": body.Email},
		}})
	})
	mux.HandleFunc("POST /logout", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]string{"message": "Logged out"})
	})
	mux.HandleFunc("GET /files", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		out := []map[string]any{}
		for id, name := range s.files {
			out = append(out, map[string]any{"id": id, "name": name, "size": 5, "type": "text/plain", "created_at": time.Now()})
		}
		reply(w, http.StatusOK, out)
	})
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("file")
		if err != nil {
			reply(w, http.StatusBadRequest, map[string]string{"error": "No file uploaded"})
			return
		}
		s.mu.Lock()
		s.uploaded = append(s.uploaded, header.Filename)
		s.mu.Unlock()
		reply(w, http.StatusOK, map[string]string{"message": "Upload successful", "path": s.userID.String() + "/1-" + header.Filename})
	})
	mux.HandleFunc("DELETE /files/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id, _ := uuid.Parse(r.PathValue("id"))
		if _, ok := s.files[id]; !ok {
			reply(w, http.StatusNotFound, map[string]string{"error": "File not found"})
			return
		}
		delete(s.files, id)
		reply(w, http.StatusOK, map[string]string{"message": "File deleted"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return s, srv
}

func newTestApp(srv *httptest.Server, stdin string) (*App, *bytes.Buffer, *client.MemoryStore) {
	store := client.NewMemoryStore()
	var out bytes.Buffer
	return NewApp(client.New(srv.URL, store), strings.NewReader(stdin), &out), &out, store
}

func TestApp_LoginPrompts(t *testing.T) {
	_, srv := newServer(t)
	app, out, store := newTestApp(srv, "a@example.com\nsecret1\n")

	require.NoError(t, app.Run(context.Background(), []string{"login"}))

	assert.Contains(t, out.String(), "Email: ")
	assert.Contains(t, out.String(), "Logged in as a@example.com")
	s, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok", s.AccessToken)
}

func TestApp_LoginWithEmailFlag(t *testing.T) {
	_, srv := newServer(t)
	app, out, _ := newTestApp(srv, "wrong\n")

	err := app.Run(context.Background(), []string{"login", "-email", "a@example.com"})
	assert.ErrorContains(t, err, "Invalid credentials")
	assert.NotContains(t, out.String(), "Email: ")
}

func TestApp_Register(t *testing.T) {
	_, srv := newServer(t)
	app, out, _ := newTestApp(srv, "secret1\n")

	require.NoError(t, app.Run(context.Background(), []string{"register", "-email", "a@example.com"}))
	assert.Contains(t, out.String(), "Signup successful. Please log in.")
}

func TestApp_FileCommandsNeedLogin(t *testing.T) {
	_, srv := newServer(t)
	app, _, _ := newTestApp(srv, "")

	assert.ErrorIs(t, app.Run(context.Background(), []string{"list"}), client.ErrNoSession)
	assert.ErrorIs(t, app.Run(context.Background(), []string{"whoami"}), client.ErrNoSession)
}

func TestApp_UploadListDelete(t *testing.T) {
	s, srv := newServer(t)
	app, out, _ := newTestApp(srv, "secret1\n")
	ctx := context.Background()
	require.NoError(t, app.Run(ctx, []string{"login", "-email", "a@example.com"}))

	require.NoError(t, app.Run(ctx, []string{"list"}))
	assert.Contains(t, out.String(), "No files found.")

	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("hello"), 0o600))

	out.Reset()
	err := app.Run(ctx, []string{"upload", notes, filepath.Join(dir, "missing.txt")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.txt")
	assert.Contains(t, out.String(), "Upload complete: "+notes)
	assert.Contains(t, out.String(), "Failed to upload")
	assert.Equal(t, []string{"notes.txt"}, s.uploaded)

	id := uuid.New()
	s.files[id] = "1-notes.txt"
	out.Reset()
	require.NoError(t, app.Run(ctx, []string{"ls"}))
	assert.Contains(t, out.String(), "1-notes.txt")
	assert.Contains(t, out.String(), id.String())

	out.Reset()
	err = app.Run(ctx, []string{"delete", id.String(), "not-an-id", uuid.NewString()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a file id")
	assert.Contains(t, err.Error(), "File not found")
	assert.Contains(t, out.String(), "File deleted: "+id.String())
	assert.Empty(t, s.files)
}

func TestApp_WhoamiAndLogout(t *testing.T) {
	s, srv := newServer(t)
	app, out, store := newTestApp(srv, "secret1\n")
	ctx := context.Background()
	require.NoError(t, app.Run(ctx, []string{"login", "-email", "a@example.com"}))

	require.NoError(t, app.Run(ctx, []string{"whoami"}))
	assert.Contains(t, out.String(), "a@example.com ("+s.userID.String()+")")
	assert.Contains(t, out.String(), "session expires")

	require.NoError(t, app.Run(ctx, []string{"logout"}))
	_, err := store.Load()
	assert.ErrorIs(t, err, client.ErrNoSession)
}

func TestApp_Usage(t *testing.T) {
	_, srv := newServer(t)
	app, out, _ := newTestApp(srv, "")
	ctx := context.Background()

	assert.ErrorIs(t, app.Run(ctx, nil), ErrUsage)
	assert.ErrorIs(t, app.Run(ctx, []string{"frobnicate"}), ErrUsage)
	assert.ErrorIs(t, app.Run(ctx, []string{"upload"}), ErrUsage)
	assert.ErrorIs(t, app.Run(ctx, []string{"delete"}), ErrUsage)
	assert.NoError(t, app.Run(ctx, []string{"help"}))
	assert.Contains(t, out.String(), "Usage: filebox")
}

func TestMain_PersistsSessionBetweenRuns(t *testing.T) {
	_, srv := newServer(t)
	session := filepath.Join(t.TempDir(), "session.json")
	var stdout, stderr bytes.Buffer

	code := Main(context.Background(),
		[]string{"-server", srv.URL, "-session", session, "login", "-email", "a@example.com"},
		strings.NewReader("secret1\n"), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	stdout.Reset()
	code = Main(context.Background(),
		[]string{"-server", srv.URL, "-session", session, "whoami"},
		strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "a@example.com")

	code = Main(context.Background(), []string{"-server", srv.URL, "-session", session}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 2, code)

	code = Main(context.Background(), []string{"-bogus"}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 2, code)
}

func TestMain_ReportsErrors(t *testing.T) {
	_, srv := newServer(t)
	var stdout, stderr bytes.Buffer

	code := Main(context.Background(),
		[]string{"-server", srv.URL, "-session", filepath.Join(t.TempDir(), "s.json"), "list"},
		strings.NewReader(""), &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "not logged in")
}

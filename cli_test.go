package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/silvertree/stc/internal/credfile"
)

// stubService plays both the authentication and the document service. Only
// requests bearing the current access token are accepted.
type stubService struct {
	t *testing.T

	mu       sync.Mutex
	access   string
	refresh  string
	rotateTo [2]string // token pair handed out by /refresh

	refreshes atomic.Int32
	resources atomic.Int32
	lastQuery string
	lastBody  map[string]any
}

func newStubService(t *testing.T) (*stubService, *httptest.Server) {
	t.Helper()

	s := &stubService{t: t, access: "A1", refresh: "R1", rotateTo: [2]string{"A2", "R2"}}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /refresh", s.handleRefresh)
	mux.HandleFunc("GET /ping", s.authorized(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"status": "ok"})
	}))
	mux.HandleFunc("GET /session", s.authorized(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"user": "alice"})
	}))
	mux.HandleFunc("/", s.authorized(s.handleResource))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return s, srv
}

func (s *stubService) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["password"] != "pw" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"bad credentials"}`))

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	writeJSON(w, map[string]any{"access_token": s.access, "refresh_token": s.refresh})
}

func (s *stubService) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshes.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+s.refresh {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	s.access, s.refresh = s.rotateTo[0], s.rotateTo[1]
	writeJSON(w, map[string]any{"access_token": s.access, "refresh_token": s.refresh})
}

func (s *stubService) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		want := "Bearer " + s.access
		s.mu.Unlock()

		if r.Header.Get("Authorization") != want {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"token expired"}`))

			return
		}

		next(w, r)
	}
}

func (s *stubService) handleResource(w http.ResponseWriter, r *http.Request) {
	s.resources.Add(1)

	s.mu.Lock()
	s.lastQuery = r.URL.RawQuery
	s.lastBody = nil

	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&s.lastBody)
	}
	s.mu.Unlock()

	switch r.Method + " " + r.URL.Path {
	case "GET /shop/items":
		writeJSON(w, []any{
			map[string]any{"_id": "1", "name": "apple", "price": 1.5},
			map[string]any{"_id": "2", "name": "pear"},
		})
	case "GET /shop/items/1":
		writeJSON(w, map[string]any{"_id": "1", "name": "apple", "qty": 3})
	case "GET /shop/items/missing":
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"not found"}`))
	case "GET /shop/items/findBy", "PUT /shop/items/updateMany", "POST /shop/items":
		writeJSON(w, map[string]any{"ok": true})
	default:
		s.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusTeapot)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// cliEnv isolates a test from the user's config, data directories, and
// STC_* variables, returning the credential file path to use.
func cliEnv(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("HOME", dir)
	t.Setenv("NO_COLOR", "1")

	for _, name := range []string{
		"STC_CONFIG", "STC_PROFILE", "STC_AUTH_URL", "STC_BASE_URL",
		"STC_CREDENTIALS_FILE", "STC_USERNAME", "STC_PASSWORD",
	} {
		t.Setenv(name, "")
	}

	return filepath.Join(dir, "creds", "credentials.json")
}

// runCLI executes the CLI against srv and returns exit code, stdout, stderr.
func runCLI(t *testing.T, srv *httptest.Server, credPath string, args ...string) (int, string, string) {
	t.Helper()

	full := append([]string{
		"--auth-url", srv.URL,
		"--base-url", srv.URL,
		"--credentials", credPath,
	}, args...)

	var stdout, stderr bytes.Buffer
	code := run(full, &stdout, &stderr)

	return code, stdout.String(), stderr.String()
}

func saveCreds(t *testing.T, path, access, refresh string) {
	t.Helper()

	require.NoError(t, credfile.Save(path, &oauth2.Token{AccessToken: access, RefreshToken: refresh}))
}

func TestCLI_LoginSavesAndPrintsTokens(t *testing.T) {
	credPath := cliEnv(t)
	_, srv := newStubService(t)

	code, stdout, stderr := runCLI(t, srv, credPath, "login", "-u", "alice", "-p", "pw")
	require.Equal(t, 0, code, stdout)

	var out map[string]string
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, map[string]string{"access_token": "A1", "refresh_token": "R1"}, out)
	assert.Contains(t, stderr, "Login successful")

	tok, err := credfile.Load(credPath)
	require.NoError(t, err)
	assert.Equal(t, "A1", tok.AccessToken)
	assert.Equal(t, "R1", tok.RefreshToken)
}

func TestCLI_LoginFromEnvironment(t *testing.T) {
	credPath := cliEnv(t)
	_, srv := newStubService(t)

	t.Setenv("STC_USERNAME", "alice")
	t.Setenv("STC_PASSWORD", "pw")

	code, stdout, _ := runCLI(t, srv, credPath, "login")
	require.Equal(t, 0, code, stdout)
}

func TestCLI_LoginRejected(t *testing.T) {
	credPath := cliEnv(t)
	_, srv := newStubService(t)

	code, stdout, _ := runCLI(t, srv, credPath, "login", "-u", "alice", "-p", "wrong")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "Error: silvertree: login failed: HTTP 401")

	_, err := os.Stat(credPath)
	assert.True(t, os.IsNotExist(err), "rejected login must not write credentials")
}

func TestCLI_LoginMissingPassword(t *testing.T) {
	credPath := cliEnv(t)
	_, srv := newStubService(t)

	code, stdout, _ := runCLI(t, srv, credPath, "login", "-u", "alice")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "username and password are required")
}

func TestCLI_NotLoggedIn(t *testing.T) {
	credPath := cliEnv(t)
	stub, srv := newStubService(t)

	code, stdout, _ := runCLI(t, srv, credPath, "all", "-b", "shop", "-c", "items")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "Error: not logged in")
	assert.Equal(t, int32(0), stub.resources.Load())
}

func TestCLI_FindAll(t *testing.T) {
	credPath := cliEnv(t)
	_, srv := newStubService(t)
	saveCreds(t, credPath, "A1", "R1")

	code, stdout, stderr := runCLI(t, srv, credPath, "all", "-b", "shop", "-c", "items")
	require.Equal(t, 0, code, stdout)
	assert.Contains(t, stderr, "Checking connection...OK")

	var docs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &docs))
	require.Len(t, docs, 2)
	assert.Equal(t, "apple", docs[0]["name"])
}

func TestCLI_StaleTokenRefreshedAndSaved(t *testing.T) {
	credPath := cliEnv(t)
	stub, srv := newStubService(t)

	stub.access = "A2"
	stub.rotateTo = [2]string{"A2", "R2"}
	saveCreds(t, credPath, "A0", "R1")

	code, stdout, stderr := runCLI(t, srv, credPath, "get", "-b", "shop", "-c", "items", "-i", "1")
	require.Equal(t, 0, code, stdout)
	assert.Contains(t, stderr, "Checking connection...OK")
	assert.Contains(t, stdout, `"apple"`)
	assert.Equal(t, int32(1), stub.refreshes.Load())

	tok, err := credfile.Load(credPath)
	require.NoError(t, err)
	assert.Equal(t, "A2", tok.AccessToken)
	assert.Equal(t, "R2", tok.RefreshToken)
}

func TestCLI_RefreshRejected(t *testing.T) {
	credPath := cliEnv(t)
	stub, srv := newStubService(t)
	saveCreds(t, credPath, "A0", "R-revoked")

	code, stdout, stderr := runCLI(t, srv, credPath, "count", "-b", "shop", "-c", "items")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Checking connection...FAILED")
	assert.Contains(t, stdout, "Error: silvertree: refresh failed")
	assert.Equal(t, int32(0), stub.resources.Load())

	tok, err := credfile.Load(credPath)
	require.NoError(t, err)
	assert.Equal(t, "A0", tok.AccessToken, "failed refresh must not rewrite credentials")
}

func TestCLI_OperationErrorExitsOne(t *testing.T) {
	credPath := cliEnv(t)
	_, srv := newStubService(t)
	saveCreds(t, credPath, "A1", "R1")

	code, stdout, _ := runCLI(t, srv, credPath, "get", "-b", "shop", "-c", "items", "-i", "missing")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "Error: silvertree: find_by_id failed: HTTP 404")
}

func TestCLI_InvalidDocumentFailsBeforeNetwork(t *testing.T) {
	credPath := cliEnv(t)
	stub, srv := newStubService(t)
	saveCreds(t, credPath, "A1", "R1")

	for _, doc := range []string{`not json`, `[1,2]`, `null`, `{"a":1} {"b":2}`} {
		code, stdout, stderr := runCLI(t, srv, credPath, "insert", "-b", "shop", "-c", "items", "-d", doc)
		assert.Equal(t, 1, code, doc)
		assert.Contains(t, stdout, "document must be a valid JSON object", doc)
		assert.NotContains(t, stderr, "Checking connection", doc)
	}

	assert.Equal(t, int32(0), stub.resources.Load())
}

func TestCLI_InsertSendsDocument(t *testing.T) {
	credPath := cliEnv(t)
	stub, srv := newStubService(t)
	saveCreds(t, credPath, "A1", "R1")

	code, stdout, _ := runCLI(t, srv, credPath, "insert", "-b", "shop", "-c", "items", "-d", `{"name":"fig","qty":12}`)
	require.Equal(t, 0, code, stdout)
	assert.Equal(t, map[string]any{"name": "fig", "qty": float64(12)}, stub.lastBody)
}

func TestCLI_FindEncodesQuery(t *testing.T) {
	credPath := cliEnv(t)
	stub, srv := newStubService(t)
	saveCreds(t, credPath, "A1", "R1")

	code, stdout, _ := runCLI(t, srv, credPath, "find", "-b", "shop", "-c", "items", "-q", `{"name":"apple","qty":3}`)
	require.Equal(t, 0, code, stdout)
	assert.Equal(t, "name=apple&qty=3", stub.lastQuery)
}

func TestCLI_UpdateMany(t *testing.T) {
	credPath := cliEnv(t)
	stub, srv := newStubService(t)
	saveCreds(t, credPath, "A1", "R1")

	code, stdout, _ := runCLI(t, srv, credPath,
		"update-many", "-b", "shop", "-c", "items", "-q", `{"name":"pear"}`, "-d", `{"qty":0}`)
	require.Equal(t, 0, code, stdout)
	assert.Equal(t, "name=pear", stub.lastQuery)
	assert.Equal(t, map[string]any{"qty": float64(0)}, stub.lastBody)
}

func TestCLI_MissingRequiredFlag(t *testing.T) {
	credPath := cliEnv(t)
	_, srv := newStubService(t)

	code, stdout, _ := runCLI(t, srv, credPath, "count", "-b", "shop")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, `required flag(s) "collection" not set`)
}

func TestCLI_PingAndSession(t *testing.T) {
	credPath := cliEnv(t)
	_, srv := newStubService(t)
	saveCreds(t, credPath, "A1", "R1")

	code, stdout, _ := runCLI(t, srv, credPath, "ping")
	require.Equal(t, 0, code, stdout)
	assert.JSONEq(t, `{"status":"ok"}`, stdout)

	code, stdout, _ = runCLI(t, srv, credPath, "session")
	require.Equal(t, 0, code, stdout)
	assert.JSONEq(t, `{"user":"alice"}`, stdout)
}

func TestCLI_Logout(t *testing.T) {
	credPath := cliEnv(t)
	_, srv := newStubService(t)
	saveCreds(t, credPath, "A1", "R1")

	code, _, stderr := runCLI(t, srv, credPath, "logout")
	require.Equal(t, 0, code)
	assert.Contains(t, stderr, "Logged out.")

	_, err := os.Stat(credPath)
	assert.True(t, os.IsNotExist(err))

	code, _, stderr = runCLI(t, srv, credPath, "logout")
	require.Equal(t, 0, code)
	assert.Contains(t, stderr, "Not logged in.")
}

func TestCLI_QuietSuppressesStatus(t *testing.T) {
	credPath := cliEnv(t)
	_, srv := newStubService(t)
	saveCreds(t, credPath, "A1", "R1")

	code, stdout, stderr := runCLI(t, srv, credPath, "--quiet", "all", "-b", "shop", "-c", "items")
	require.Equal(t, 0, code, stdout)
	assert.Empty(t, stderr)
}

func TestCLI_TableOutput(t *testing.T) {
	credPath := cliEnv(t)
	_, srv := newStubService(t)
	saveCreds(t, credPath, "A1", "R1")

	code, stdout, _ := runCLI(t, srv, credPath, "--output", "table", "all", "-b", "shop", "-c", "items")
	require.Equal(t, 0, code, stdout)
	assert.Contains(t, stdout, "_ID")
	assert.Contains(t, stdout, "apple")
	assert.Contains(t, stdout, "1.5")
}

func TestCLI_YAMLOutput(t *testing.T) {
	credPath := cliEnv(t)
	_, srv := newStubService(t)
	saveCreds(t, credPath, "A1", "R1")

	code, stdout, _ := runCLI(t, srv, credPath, "--output", "yaml", "get", "-b", "shop", "-c", "items", "-i", "1")
	require.Equal(t, 0, code, stdout)
	assert.Contains(t, stdout, "name: apple")
	assert.Contains(t, stdout, "qty: 3")
}

func TestCLI_ConfigShow(t *testing.T) {
	credPath := cliEnv(t)
	_, srv := newStubService(t)
	t.Setenv("STC_PASSWORD", "hunter2")

	code, stdout, _ := runCLI(t, srv, credPath, "config", "show")
	require.Equal(t, 0, code, stdout)
	assert.Contains(t, stdout, `profile "default"`)
	assert.Contains(t, stdout, srv.URL)
	assert.Contains(t, stdout, credPath)
	assert.Contains(t, stdout, "password = (set)")
	assert.NotContains(t, stdout, "hunter2")
}

func TestCLI_InvalidConfigOverride(t *testing.T) {
	credPath := cliEnv(t)
	_, srv := newStubService(t)

	code, stdout, _ := runCLI(t, srv, credPath, "--output", "xml", "dbs")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "Error: loading config")
	assert.Contains(t, stdout, "output")
}

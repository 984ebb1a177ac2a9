package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/4slk4/simple-note-taking/internal/auth"
	"github.com/4slk4/simple-note-taking/internal/db/jsondb"
	"github.com/4slk4/simple-note-taking/internal/ipchecker"
	"github.com/4slk4/simple-note-taking/internal/models"
	"github.com/4slk4/simple-note-taking/internal/password"
	"github.com/4slk4/simple-note-taking/internal/render"
	"github.com/4slk4/simple-note-taking/internal/service"
)

const (
	testSessionCookie = "session"
	strongPassword    = "Str0ng!Pass99"
)

type initOption func(*initOptions)

type initOptions struct {
	trustedSubnet string
}

func withTrustedSubnet(subnet string) initOption {
	return func(options *initOptions) {
		options.trustedSubnet = subnet
	}
}

func setupTestRouter(t *testing.T, optionsProto ...initOption) (*httptest.Server, *jsondb.JSONDB, string) {
	t.Helper()
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	dbFileName := filepath.Join(t.TempDir(), "users.json")
	db, err := jsondb.New(dbFileName)
	require.NoError(t, err)

	pages, err := render.New()
	require.NoError(t, err)

	guard, err := ipchecker.New(options.trustedSubnet)
	require.NoError(t, err)

	theAuth := auth.New(db, auth.NewJWTSessions(testSessionCookie, []byte("router-test-secret"), time.Hour))
	svc := service.New(db, password.NewHasher(bcrypt.MinCost))

	server := httptest.NewServer(New(svc, theAuth, pages, guard))
	t.Cleanup(server.Close)

	return server, db, dbFileName
}

// newClient returns a client that keeps cookies and does not follow redirects.
func newClient(server *httptest.Server) *resty.Client {
	return resty.New().
		SetBaseURL(server.URL).
		SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}))
}

func register(t *testing.T, client *resty.Client, name, pass, confirm string) *resty.Response {
	t.Helper()
	resp, err := client.R().
		SetFormData(map[string]string{
			"username":     name,
			"new_password": pass,
			"confirm":      confirm,
		}).
		Post("/register")
	require.NoError(t, err)

	return resp
}

func login(t *testing.T, client *resty.Client, name, pass string) *resty.Response {
	t.Helper()
	resp, err := client.R().
		SetFormData(map[string]string{
			"username": name,
			"password": pass,
		}).
		Post("/login")
	require.NoError(t, err)

	return resp
}

func hasSessionCookie(client *resty.Client, server *httptest.Server) bool {
	request := httptest.NewRequest(http.MethodGet, server.URL, nil)
	for _, cookie := range client.GetClient().Jar.Cookies(request.URL) {
		if cookie.Name == testSessionCookie && cookie.Value != "" {
			return true
		}
	}

	return false
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		confirm  string
		message  string
	}{
		{"mismatch", "alice", strongPassword, "Str0ng!Pass98", "Password does not match."},
		{"weak password", "alice", "abc", "abc", "Your password is not strong enough"},
		{"medium password", "alice", "Abcde1!x", "Abcde1!x", "Your password is not strong enough"},
		{"blank username", "   ", strongPassword, strongPassword, "Username is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, db, _ := setupTestRouter(t)
			resp := register(t, newClient(server), tt.username, tt.password, tt.confirm)

			assert.Equal(t, http.StatusOK, resp.StatusCode())
			assert.Contains(t, resp.String(), tt.message)

			users, err := db.GetNumberOfUsers(ctx)
			require.NoError(t, err)
			assert.Zero(t, users)
		})
	}

	t.Run("success and duplicate", func(t *testing.T) {
		server, db, dbFileName := setupTestRouter(t)
		client := newClient(server)

		resp := register(t, client, "alice", strongPassword, strongPassword)
		assert.Equal(t, http.StatusFound, resp.StatusCode())
		assert.Equal(t, "/login", resp.Header().Get("Location"))

		resp, err := client.R().Get("/login")
		require.NoError(t, err)
		assert.Contains(t, resp.String(), "Registration successful, please log in")

		usr, err := db.GetUserByName(ctx, "alice")
		require.NoError(t, err)
		assert.NotEqual(t, strongPassword, usr.PasswordHash)

		raw, err := os.ReadFile(dbFileName)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"name": "alice"`)

		resp = register(t, client, "alice", strongPassword, strongPassword)
		assert.Equal(t, http.StatusOK, resp.StatusCode())
		assert.Contains(t, resp.String(), "Username is already taken")

		users, err := db.GetNumberOfUsers(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, users)
	})

	t.Run("hashing failure", func(t *testing.T) {
		server, db, _ := setupTestRouter(t)
		tooLong := strongPassword + strings.Repeat("x", 64)

		resp := register(t, newClient(server), "alice", tooLong, tooLong)
		assert.Equal(t, http.StatusFound, resp.StatusCode())
		assert.Equal(t, "/register", resp.Header().Get("Location"))

		_, err := db.GetUserByName(ctx, "alice")
		assert.ErrorIs(t, err, models.ErrUserNotFound)
	})
}

func TestLogin(t *testing.T) {
	server, _, _ := setupTestRouter(t)
	client := newClient(server)
	require.Equal(t, http.StatusFound, register(t, client, "alice", strongPassword, strongPassword).StatusCode())

	failures := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "alice", "Wr0ng!Pass99"},
		{"unknown user", "bob", strongPassword},
		{"empty form", "", ""},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			resp := login(t, client, tt.username, tt.password)
			assert.Equal(t, http.StatusFound, resp.StatusCode())
			assert.Equal(t, "/login", resp.Header().Get("Location"))
			assert.False(t, hasSessionCookie(client, server))

			page, err := client.R().Get("/login")
			require.NoError(t, err)
			assert.Contains(t, page.String(), "Invalid username or password")
		})
	}

	t.Run("success", func(t *testing.T) {
		resp := login(t, client, "alice", strongPassword)
		assert.Equal(t, http.StatusFound, resp.StatusCode())
		assert.Equal(t, "/", resp.Header().Get("Location"))
		assert.True(t, hasSessionCookie(client, server))

		home, err := client.R().Get("/")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, home.StatusCode())
		assert.Contains(t, home.String(), "Hi alice")
	})

	t.Run("anonymous-only pages redirect home", func(t *testing.T) {
		for _, path := range []string{"/login", "/register"} {
			resp, err := client.R().Get(path)
			require.NoError(t, err)
			assert.Equal(t, http.StatusFound, resp.StatusCode(), path)
			assert.Equal(t, "/", resp.Header().Get("Location"), path)
		}
	})

	t.Run("logout", func(t *testing.T) {
		resp, err := client.R().Post("/logout?_method=DELETE")
		require.NoError(t, err)
		assert.Equal(t, http.StatusFound, resp.StatusCode())
		assert.Equal(t, "/login", resp.Header().Get("Location"))
		assert.False(t, hasSessionCookie(client, server))

		resp, err = client.R().Get("/")
		require.NoError(t, err)
		assert.Equal(t, http.StatusFound, resp.StatusCode())
		assert.Equal(t, "/login", resp.Header().Get("Location"))
	})
}

func TestLoginWithSurroundingWhitespace(t *testing.T) {
	ctx := context.Background()
	server, db, _ := setupTestRouter(t)
	client := newClient(server)

	resp := register(t, client, "alice ", strongPassword, strongPassword)
	require.Equal(t, http.StatusFound, resp.StatusCode())
	require.Equal(t, "/login", resp.Header().Get("Location"))

	usr, err := db.GetUserByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", usr.Name)

	resp = login(t, client, "alice ", strongPassword)
	assert.Equal(t, http.StatusFound, resp.StatusCode())
	assert.Equal(t, "/", resp.Header().Get("Location"))
	assert.True(t, hasSessionCookie(client, server))

	resp = register(t, newClient(server), "  alice", strongPassword, strongPassword)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, resp.String(), "Username is already taken")
}

func TestProtectedRoutesRequireLogin(t *testing.T) {
	server, _, _ := setupTestRouter(t)
	client := newClient(server)

	requests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/"},
		{http.MethodPost, "/new-note"},
		{http.MethodDelete, "/delete-note/n1"},
		{http.MethodPost, "/delete-note/n1?_method=DELETE"},
		{http.MethodDelete, "/logout"},
	}
	for _, tt := range requests {
		resp, err := client.R().Execute(tt.method, tt.path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusFound, resp.StatusCode(), tt.path)
		assert.Equal(t, "/login", resp.Header().Get("Location"), tt.path)
	}
}

func TestNotes(t *testing.T) {
	ctx := context.Background()
	server, db, dbFileName := setupTestRouter(t)

	alice := newClient(server)
	require.Equal(t, http.StatusFound, register(t, alice, "alice", strongPassword, strongPassword).StatusCode())
	require.Equal(t, http.StatusFound, login(t, alice, "alice", strongPassword).StatusCode())

	bob := newClient(server)
	require.Equal(t, http.StatusFound, register(t, bob, "bob", strongPassword, strongPassword).StatusCode())
	require.Equal(t, http.StatusFound, login(t, bob, "bob", strongPassword).StatusCode())

	addNote := func(client *resty.Client, title, content string) {
		resp, err := client.R().
			SetFormData(map[string]string{"title": title, "content": content}).
			Post("/new-note")
		require.NoError(t, err)
		require.Equal(t, http.StatusFound, resp.StatusCode())
		require.Equal(t, "/", resp.Header().Get("Location"))
	}

	addNote(alice, "Groceries", "milk")
	addNote(alice, "Chores", "laundry")
	addNote(bob, "Bob's", "note")

	usr, err := db.GetUserByName(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, usr.Notes, 2)
	assert.Equal(t, "Groceries", usr.Notes[0].Title)
	assert.Equal(t, "milk", usr.Notes[0].Content)
	assert.NotEmpty(t, usr.Notes[0].ID)
	assert.NotEqual(t, usr.Notes[0].ID, usr.Notes[1].ID)

	raw, err := os.ReadFile(dbFileName)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"title": "Groceries"`)

	home, err := alice.R().Get("/")
	require.NoError(t, err)
	assert.Contains(t, home.String(), "Groceries")
	assert.NotContains(t, home.String(), "Bob&#39;s")

	t.Run("delete an unknown note", func(t *testing.T) {
		resp, err := alice.R().Post("/delete-note/does-not-exist?_method=DELETE")
		require.NoError(t, err)
		assert.Equal(t, http.StatusFound, resp.StatusCode())

		usr, err := db.GetUserByName(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, usr.Notes, 2)
	})

	t.Run("notes of another user are out of reach", func(t *testing.T) {
		resp, err := bob.R().Post("/delete-note/" + usr.Notes[0].ID + "?_method=DELETE")
		require.NoError(t, err)
		assert.Equal(t, http.StatusFound, resp.StatusCode())

		again, err := db.GetUserByName(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, again.Notes, 2)
	})

	t.Run("delete", func(t *testing.T) {
		resp, err := alice.R().Post("/delete-note/" + usr.Notes[0].ID + "?_method=DELETE")
		require.NoError(t, err)
		assert.Equal(t, http.StatusFound, resp.StatusCode())
		assert.Equal(t, "/", resp.Header().Get("Location"))

		again, err := db.GetUserByName(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, again.Notes, 1)
		assert.Equal(t, "Chores", again.Notes[0].Title)

		other, err := db.GetUserByName(ctx, "bob")
		require.NoError(t, err)
		assert.Len(t, other.Notes, 1)

		raw, err := os.ReadFile(dbFileName)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "Groceries")
	})

	t.Run("flush failure", func(t *testing.T) {
		require.NoError(t, os.RemoveAll(filepath.Dir(dbFileName)))

		resp, err := alice.R().
			SetFormData(map[string]string{"title": "Lost", "content": "forever"}).
			Post("/new-note")
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())

		again, err := db.GetUserByName(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, again.Notes, 1)
	})
}

func TestMethodOverride(t *testing.T) {
	var seen string
	handler := MethodOverride(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Method
	}))

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   string
	}{
		{"query", http.MethodPost, "/x?_method=DELETE", "", http.MethodDelete},
		{"lowercase query", http.MethodPost, "/x?_method=put", "", http.MethodPut},
		{"form body", http.MethodPost, "/x", "_method=PATCH", http.MethodPatch},
		{"unsupported method", http.MethodPost, "/x?_method=CONNECT", "", http.MethodPost},
		{"only POST is overridden", http.MethodGet, "/x?_method=DELETE", "", http.MethodGet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			if tt.body != "" {
				request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			}
			handler.ServeHTTP(httptest.NewRecorder(), request)
			assert.Equal(t, tt.want, seen)
		})
	}
}

func TestGetPing(t *testing.T) {
	server, _, _ := setupTestRouter(t)

	resp, err := newClient(server).R().Get("/ping")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
}

func TestGetApiinternalstats(t *testing.T) {
	t.Run("trusted", func(t *testing.T) {
		server, _, _ := setupTestRouter(t, withTrustedSubnet("127.0.0.0/8"))
		client := newClient(server)
		require.Equal(t, http.StatusFound, register(t, client, "alice", strongPassword, strongPassword).StatusCode())
		require.Equal(t, http.StatusFound, login(t, client, "alice", strongPassword).StatusCode())
		_, err := client.R().SetFormData(map[string]string{"title": "a", "content": "b"}).Post("/new-note")
		require.NoError(t, err)

		resp, err := client.R().Get("/api/internal/stats")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())
		assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))

		var stats models.InternalStatsResponse
		require.NoError(t, json.Unmarshal(resp.Body(), &stats))
		assert.Equal(t, models.InternalStatsResponse{Users: 1, Notes: 1}, stats)
	})

	t.Run("untrusted", func(t *testing.T) {
		server, _, _ := setupTestRouter(t, withTrustedSubnet("10.0.0.0/8"))

		resp, err := newClient(server).R().Get("/api/internal/stats")
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode())
	})

	t.Run("no subnet configured", func(t *testing.T) {
		server, _, _ := setupTestRouter(t)

		resp, err := newClient(server).R().Get("/api/internal/stats")
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode())
	})
}

func TestPagesAreCompressed(t *testing.T) {
	server, _, _ := setupTestRouter(t)

	resp, err := newClient(server).R().
		SetHeader("Accept-Encoding", "gzip").
		SetDoNotParseResponse(true).
		Get("/login")
	require.NoError(t, err)
	defer resp.RawBody().Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "gzip", resp.Header().Get("Content-Encoding"))
}

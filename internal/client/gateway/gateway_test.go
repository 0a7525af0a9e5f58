package gateway

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/godiscuss/godiscuss/internal/client/models"
	"github.com/godiscuss/godiscuss/internal/client/vault"
	"github.com/godiscuss/godiscuss/internal/common"
	"github.com/godiscuss/godiscuss/internal/logging"
)

// ---- helpers ----

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testVault(t *testing.T) *vault.Vault {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE vault (key TEXT PRIMARY KEY, value BLOB NOT NULL);
CREATE TABLE vault_salt (id INTEGER PRIMARY KEY CHECK (id = 1), salt BLOB NOT NULL);
`)
	require.NoError(t, err)

	v, err := vault.Open(context.Background(), db)
	require.NoError(t, err)
	return v
}

// fakeBackend is a minimal JSON-RPC backend. Handlers are keyed by
// "model.method"; the authenticate endpoint is handled separately.
type fakeBackend struct {
	t        *testing.T
	authUID  int
	calls    int
	handlers map[string]func(params callKWParams) any
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/web/session/authenticate", func(w http.ResponseWriter, r *http.Request) {
		f.calls++
		var req struct {
			Params authenticateParams `json:"params"`
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))

		if req.Params.Password != "secret" {
			writeResult(w, map[string]any{"uid": false})
			return
		}
		writeResult(w, map[string]any{"uid": f.authUID, "session_id": "sess-token"})
	})
	mux.HandleFunc("/web/dataset/call_kw", func(w http.ResponseWriter, r *http.Request) {
		f.calls++
		var req struct {
			Params callKWParams `json:"params"`
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))

		h, ok := f.handlers[req.Params.Model+"."+req.Params.Method]
		require.True(f.t, ok, "no handler for %s.%s", req.Params.Model, req.Params.Method)
		writeResult(w, h(req.Params))
	})
	return mux
}

func writeResult(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "result": result})
}

func currentUserHandler(uid, partnerID int) func(callKWParams) any {
	return func(callKWParams) any {
		return []map[string]any{{
			"id": uid, "name": "Ann", "email": "ann@example.com",
			"avatar_128": false,
			"partner_id": []any{partnerID, "Ann"},
		}}
	}
}

func newGateway(t *testing.T, backend *fakeBackend) (*Gateway, *vault.Vault) {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	v := testVault(t)
	g := New(v, testLogger())
	g.serverURL = srv.URL
	return g, v
}

func authenticate(t *testing.T, g *Gateway) *models.Session {
	t.Helper()
	session, err := g.Authenticate(context.Background(), models.Credentials{
		ServerURL: g.serverURL, Database: "main", Username: "ann", Password: "secret",
	})
	require.NoError(t, err)
	return session
}

// ---- tests ----

func TestAuthenticateSuccessPersistsSession(t *testing.T) {
	backend := &fakeBackend{t: t, authUID: 5, handlers: map[string]func(callKWParams) any{
		"res.users.read": currentUserHandler(5, 50),
	}}
	g, v := newGateway(t, backend)

	session := authenticate(t, g)
	require.Equal(t, "sess-token", session.Token)
	require.Equal(t, 5, session.User.ID)
	require.Equal(t, 50, g.PartnerID())

	ctx := context.Background()
	for _, key := range []string{
		common.VaultKeyAuthToken, common.VaultKeyServerURL,
		common.VaultKeyDatabase, common.VaultKeyUserID, common.VaultKeyPartnerID,
	} {
		_, ok := v.Retrieve(ctx, key)
		require.True(t, ok, "vault key %s missing", key)
	}
}

func TestAuthenticateInvalidCredentials(t *testing.T) {
	backend := &fakeBackend{t: t, authUID: 5, handlers: map[string]func(callKWParams) any{}}
	g, _ := newGateway(t, backend)

	_, err := g.Authenticate(context.Background(), models.Credentials{
		ServerURL: g.serverURL, Database: "main", Username: "ann", Password: "wrong",
	})
	require.ErrorIs(t, err, common.ErrInvalidCredentials)
}

func TestAuthenticateDatabaseNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	g := New(testVault(t), testLogger())
	_, err := g.Authenticate(context.Background(), models.Credentials{
		ServerURL: srv.URL, Database: "missing", Username: "ann", Password: "secret",
	})
	require.ErrorIs(t, err, common.ErrDatabaseNotFound)
}

func TestAuthenticateServerUnreachable(t *testing.T) {
	g := New(testVault(t), testLogger())
	_, err := g.Authenticate(context.Background(), models.Credentials{
		ServerURL: "http://127.0.0.1:1", Database: "main", Username: "ann", Password: "secret",
	})
	require.ErrorIs(t, err, common.ErrServerUnreachable)
}

func TestAuthenticateCorsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	g := New(testVault(t), testLogger())
	_, err := g.Authenticate(context.Background(), models.Credentials{
		ServerURL: srv.URL, Database: "main", Username: "ann", Password: "secret",
	})
	require.ErrorIs(t, err, common.ErrCorsRejected)
}

func TestRestoreSessionEmptyVaultNoNetworkCall(t *testing.T) {
	backend := &fakeBackend{t: t, authUID: 5, handlers: map[string]func(callKWParams) any{}}
	g, _ := newGateway(t, backend)

	session, err := g.RestoreSession(context.Background())
	require.NoError(t, err)
	require.Nil(t, session)
	require.Zero(t, backend.calls)
}

func TestRestoreSessionPartialVaultIsAbsent(t *testing.T) {
	backend := &fakeBackend{t: t, authUID: 5, handlers: map[string]func(callKWParams) any{}}
	g, v := newGateway(t, backend)
	ctx := context.Background()

	// Three of four fields: treated as no session at all.
	require.NoError(t, v.Store(ctx, common.VaultKeyAuthToken, "tok"))
	require.NoError(t, v.Store(ctx, common.VaultKeyServerURL, g.serverURL))
	require.NoError(t, v.Store(ctx, common.VaultKeyDatabase, "main"))

	session, err := g.RestoreSession(ctx)
	require.NoError(t, err)
	require.Nil(t, session)
	require.Zero(t, backend.calls)
}

func TestAuthenticateThenRestoreReturnsSameUser(t *testing.T) {
	backend := &fakeBackend{t: t, authUID: 5, handlers: map[string]func(callKWParams) any{
		"res.users.read": currentUserHandler(5, 50),
	}}
	g, v := newGateway(t, backend)
	authenticate(t, g)

	// New gateway over the same vault simulates a process restart.
	g2 := New(v, testLogger())
	session, err := g2.RestoreSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, session)
	require.Equal(t, 5, session.User.ID)
}

func TestRestoreSessionRejectedClearsVault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	v := testVault(t)
	ctx := context.Background()
	require.NoError(t, v.Store(ctx, common.VaultKeyAuthToken, "tok"))
	require.NoError(t, v.Store(ctx, common.VaultKeyServerURL, srv.URL))
	require.NoError(t, v.Store(ctx, common.VaultKeyDatabase, "main"))
	require.NoError(t, v.Store(ctx, common.VaultKeyUserID, "5"))

	g := New(v, testLogger())
	session, err := g.RestoreSession(ctx)
	require.NoError(t, err)
	require.Nil(t, session)

	for _, key := range []string{
		common.VaultKeyAuthToken, common.VaultKeyServerURL,
		common.VaultKeyDatabase, common.VaultKeyUserID,
	} {
		_, ok := v.Retrieve(ctx, key)
		require.False(t, ok, "vault key %s should be cleared", key)
	}
}

func TestSessionExpiryRunsHardResetHook(t *testing.T) {
	authed := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authed {
			authed = true
			writeResult(w, map[string]any{"uid": 5, "session_id": "tok"})
			return
		}
		if r.URL.Path == "/web/dataset/call_kw" {
			var req struct {
				Params callKWParams `json:"params"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Params.Model == "res.users" {
				writeResult(w, []map[string]any{{
					"id": 5, "name": "Ann", "email": "", "avatar_128": false,
					"partner_id": []any{50, "Ann"},
				}})
				return
			}
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	v := testVault(t)
	resetCalled := false
	g := New(v, testLogger(), WithSessionExpiredHook(func() { resetCalled = true }))
	g.serverURL = srv.URL

	ctx := context.Background()
	_, err := g.Authenticate(ctx, models.Credentials{
		ServerURL: srv.URL, Database: "main", Username: "ann", Password: "secret",
	})
	require.NoError(t, err)

	_, err = g.ListUsers(ctx)
	require.ErrorIs(t, err, common.ErrSessionExpired)
	require.True(t, resetCalled)

	_, ok := v.Retrieve(ctx, common.VaultKeyAuthToken)
	require.False(t, ok)
}

func TestCallsRequireAuthentication(t *testing.T) {
	g := New(testVault(t), testLogger())

	_, err := g.ListUsers(context.Background())
	require.ErrorIs(t, err, common.ErrNotAuthenticated)
	_, err = g.ListChannels(context.Background())
	require.ErrorIs(t, err, common.ErrNotAuthenticated)
	_, err = g.SendMessage(context.Background(), 1, "hi")
	require.ErrorIs(t, err, common.ErrNotAuthenticated)
}

func TestListMessagesStripsHTMLAndSetsChannel(t *testing.T) {
	backend := &fakeBackend{t: t, authUID: 5, handlers: map[string]func(callKWParams) any{
		"res.users.read": currentUserHandler(5, 50),
		"mail.message.search_read": func(callKWParams) any {
			return []map[string]any{
				{
					"id": 2, "body": "<p>hello <b>world</b></p>",
					"author_id": []any{50, "Ann"}, "date": "2025-06-01 12:01:00",
					"starred_partner_ids": []int{50}, "res_id": 42, "parent_id": false,
				},
				{
					"id": 1, "body": "plain",
					"author_id": false, "date": "2025-06-01 12:00:00",
					"starred_partner_ids": []int{}, "res_id": 42, "parent_id": false,
				},
			}
		},
	}}
	g, _ := newGateway(t, backend)
	authenticate(t, g)

	messages, err := g.ListMessages(context.Background(), 42, 100)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	require.Equal(t, "hello world", messages[0].Content)
	require.Equal(t, 42, messages[0].ChannelID)
	require.Equal(t, 50, messages[0].AuthorID)
	require.True(t, messages[0].IsStarred)

	require.Equal(t, "plain", messages[1].Content)
	require.Zero(t, messages[1].AuthorID)
	require.False(t, messages[1].IsStarred)
}

func TestListDirectChannelsDerivesOtherParticipant(t *testing.T) {
	backend := &fakeBackend{t: t, authUID: 5, handlers: map[string]func(callKWParams) any{
		"res.users.read": currentUserHandler(5, 50),
		"discuss.channel.search_read": func(callKWParams) any {
			return []map[string]any{
				{
					"id": 1, "name": "Ann, Bob", "description": false, "channel_type": "chat",
					"channel_member_ids": []int{1, 2}, "channel_partner_ids": []int{50, 60},
					"avatar_128": false, "is_member": true, "member_count": 2, "active": true,
				},
				{
					"id": 2, "name": "team", "description": false, "channel_type": "group",
					"channel_member_ids": []int{1, 2, 3}, "channel_partner_ids": []int{50, 60, 70},
					"avatar_128": false, "is_member": true, "member_count": 3, "active": true,
				},
			}
		},
	}}
	g, _ := newGateway(t, backend)
	authenticate(t, g)

	channels, err := g.ListDirectChannels(context.Background())
	require.NoError(t, err)
	require.Len(t, channels, 2)

	require.Equal(t, models.KindChat, channels[0].Kind)
	require.Equal(t, 60, channels[0].OtherUserID)

	// Group chats have no single peer.
	require.Equal(t, models.KindGroup, channels[1].Kind)
	require.Zero(t, channels[1].OtherUserID)
}

func TestListMessagesByIDsKeepsChannelGrouping(t *testing.T) {
	backend := &fakeBackend{t: t, authUID: 5, handlers: map[string]func(callKWParams) any{
		"res.users.read": currentUserHandler(5, 50),
		"mail.message.read": func(p callKWParams) any {
			return []map[string]any{
				{
					"id": 1, "body": "a", "author_id": []any{50, "Ann"},
					"date": "2025-06-01 12:00:00", "starred_partner_ids": []int{},
					"res_id": 42, "parent_id": false,
				},
				{
					"id": 2, "body": "b", "author_id": []any{60, "Bob"},
					"date": "2025-06-01 12:01:00", "starred_partner_ids": []int{},
					"res_id": 7, "parent_id": false,
				},
			}
		},
	}}
	g, _ := newGateway(t, backend)
	authenticate(t, g)

	messages, err := g.ListMessagesByIDs(context.Background(), []int{1, 2})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, 42, messages[0].ChannelID)
	require.Equal(t, 7, messages[1].ChannelID)
}

func TestSendMessageReturnsCreatedMessage(t *testing.T) {
	backend := &fakeBackend{t: t, authUID: 5, handlers: map[string]func(callKWParams) any{
		"res.users.read":               currentUserHandler(5, 50),
		"discuss.channel.message_post": func(callKWParams) any { return 1234 },
	}}
	g, _ := newGateway(t, backend)
	authenticate(t, g)

	m, err := g.SendMessage(context.Background(), 42, "hello")
	require.NoError(t, err)
	require.Equal(t, 1234, m.ID)
	require.Equal(t, 42, m.ChannelID)
	require.Equal(t, "hello", m.Content)
	require.Equal(t, 50, m.AuthorID)
}

func TestLogoutClearsVault(t *testing.T) {
	backend := &fakeBackend{t: t, authUID: 5, handlers: map[string]func(callKWParams) any{
		"res.users.read": currentUserHandler(5, 50),
	}}
	g, v := newGateway(t, backend)
	authenticate(t, g)

	require.NoError(t, g.Logout(context.Background()))

	_, ok := v.Retrieve(context.Background(), common.VaultKeyAuthToken)
	require.False(t, ok)

	_, err := g.ListUsers(context.Background())
	require.ErrorIs(t, err, common.ErrNotAuthenticated)
}

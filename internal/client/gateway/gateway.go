// Package gateway wraps the backend's JSON-RPC API: session establishment
// and restore, entity listing, and message posting. All calls ride through
// the session relay when one is configured, carrying the target-origin and
// database headers the relay understands.
//
// Errors are returned as values mapped onto the sentinel taxonomy in
// internal/common; nothing is logged and swallowed. An authentication
// rejection from the backend is the one case with a side effect: the vault
// is cleared and the configured reset hook runs (hard reset, not a retry).
package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"

	"github.com/godiscuss/godiscuss/internal/client/models"
	"github.com/godiscuss/godiscuss/internal/client/vault"
	"github.com/godiscuss/godiscuss/internal/common"
	"github.com/godiscuss/godiscuss/internal/logging"
)

const (
	authTimeout = 10 * time.Second
	callTimeout = 30 * time.Second
)

type Gateway struct {
	httpc *http.Client
	vault *vault.Vault
	log   logging.Logger

	// relayURL is the relay base (e.g. "http://localhost:8787"); when empty,
	// calls go directly to serverURL.
	relayURL  string
	serverURL string
	database  string

	authenticated bool
	userID        int
	partnerID     int

	// onSessionExpired forces the application shell to reload after an auth
	// expiry teardown. Optional.
	onSessionExpired func()
}

type Option func(*Gateway)

// WithRelay routes all calls through the session relay at relayURL.
func WithRelay(relayURL string) Option {
	return func(g *Gateway) { g.relayURL = strings.TrimSuffix(relayURL, "/") }
}

// WithSessionExpiredHook registers fn to run after an auth-expiry teardown.
func WithSessionExpiredHook(fn func()) Option {
	return func(g *Gateway) { g.onSessionExpired = fn }
}

// WithHTTPClient replaces the transport, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.httpc = c }
}

func New(v *vault.Vault, log logging.Logger, opts ...Option) *Gateway {
	jar, _ := cookiejar.New(nil)
	g := &Gateway{
		httpc: &http.Client{Timeout: callTimeout, Jar: jar},
		vault: v,
		log:   log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// baseURL is where HTTP requests actually go: the relay's /api prefix when
// a relay is configured, the backend origin otherwise.
func (g *Gateway) baseURL() string {
	if g.relayURL != "" {
		return g.relayURL + "/api"
	}
	return g.serverURL
}

// UserID returns the authenticated user's id, 0 when not authenticated.
func (g *Gateway) UserID() int { return g.userID }

// PartnerID returns the partner id backing the authenticated user.
func (g *Gateway) PartnerID() int { return g.partnerID }

type sessionInfo struct {
	UID       odooInt    `json:"uid"`
	SessionID odooString `json:"session_id"`
}

type authenticateParams struct {
	DB       string         `json:"db"`
	Login    string         `json:"login"`
	Password string         `json:"password"`
	Context  map[string]any `json:"context"`
}

// Authenticate opens a session against the backend and persists the session
// tuple into the vault. The backend reporting no user id means the
// credentials were rejected.
func (g *Gateway) Authenticate(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	g.serverURL = strings.TrimSuffix(creds.ServerURL, "/")
	g.database = creds.Database

	var info sessionInfo
	err := g.call(ctx, "/web/session/authenticate", authenticateParams{
		DB:       creds.Database,
		Login:    creds.Username,
		Password: creds.Password,
		Context:  map[string]any{},
	}, &info)
	if err != nil {
		var rpcErr *rpcError
		if errors.As(err, &rpcErr) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}
	if info.UID == 0 {
		return nil, common.ErrInvalidCredentials
	}

	token := string(info.SessionID)
	if token == "" {
		// Newer backends keep the session purely in the cookie.
		token = "authenticated"
	}

	g.authenticated = true
	g.userID = int(info.UID)

	user, err := g.CurrentUser(ctx)
	if err != nil {
		g.authenticated = false
		return nil, err
	}

	g.persistSession(ctx, token)

	return &models.Session{Token: token, User: user}, nil
}

// persistSession writes the session tuple through the vault. Vault write
// failures degrade to a session that will not survive a restart; they do
// not fail the login.
func (g *Gateway) persistSession(ctx context.Context, token string) {
	for key, value := range map[string]string{
		common.VaultKeyAuthToken: token,
		common.VaultKeyServerURL: g.serverURL,
		common.VaultKeyDatabase:  g.database,
		common.VaultKeyUserID:    strconv.Itoa(g.userID),
	} {
		if err := g.vault.Store(ctx, key, value); err != nil {
			g.log.Warn(ctx, "failed to persist session field", "key", key, "error", err)
		}
	}
}

// RestoreSession re-opens the previous session from the vault. If any field
// of the session tuple is absent the session is treated as nonexistent and
// no network call is made. If the backend rejects the re-validation, the
// vault is cleared and the session is not retried.
func (g *Gateway) RestoreSession(ctx context.Context) (*models.Session, error) {
	token, okToken := g.vault.Retrieve(ctx, common.VaultKeyAuthToken)
	serverURL, okServer := g.vault.Retrieve(ctx, common.VaultKeyServerURL)
	database, okDB := g.vault.Retrieve(ctx, common.VaultKeyDatabase)
	userIDStr, okUser := g.vault.Retrieve(ctx, common.VaultKeyUserID)
	if !okToken || !okServer || !okDB || !okUser {
		return nil, nil
	}
	userID, err := strconv.Atoi(userIDStr)
	if err != nil {
		return nil, nil
	}

	g.serverURL = serverURL
	g.database = database
	g.userID = userID
	g.authenticated = true

	user, err := g.CurrentUser(ctx)
	if err != nil {
		g.authenticated = false
		g.userID = 0
		g.partnerID = 0
		if clearErr := g.vault.Clear(ctx); clearErr != nil {
			g.log.Warn(ctx, "failed to clear vault after invalid session", "error", clearErr)
		}
		return nil, nil
	}

	return &models.Session{Token: token, User: user}, nil
}

// Logout discards the session locally.
func (g *Gateway) Logout(ctx context.Context) error {
	g.authenticated = false
	g.userID = 0
	g.partnerID = 0
	return g.vault.Clear(ctx)
}

// teardownSession clears all local session state after the backend rejected
// authentication, then runs the hard-reset hook.
func (g *Gateway) teardownSession(ctx context.Context) {
	g.authenticated = false
	g.userID = 0
	g.partnerID = 0
	if err := g.vault.Clear(ctx); err != nil {
		g.log.Warn(ctx, "failed to clear vault on session expiry", "error", err)
	}
	if g.onSessionExpired != nil {
		g.onSessionExpired()
	}
}

package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/godiscuss/godiscuss/internal/client/bridge"
	"github.com/godiscuss/godiscuss/internal/client/cache"
	"github.com/godiscuss/godiscuss/internal/client/config"
	"github.com/godiscuss/godiscuss/internal/client/gateway"
	"github.com/godiscuss/godiscuss/internal/client/store"
	"github.com/godiscuss/godiscuss/internal/client/vault"
	"github.com/godiscuss/godiscuss/internal/logging"
)

// App ties the client's layers together for the interactive session.
type App struct {
	config  *config.Config
	db      *sql.DB
	cache   *cache.Store
	vault   *vault.Vault
	gateway *gateway.Gateway
	store   *store.Store
	log     logging.Logger

	reader   *bufio.Reader
	userName string

	stopBridge context.CancelFunc
}

func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	db, err := cache.Open(ctx, "file:"+cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local cache: %w", err)
	}

	v, err := vault.Open(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open credential vault: %w", err)
	}

	a := &App{
		config: cfg,
		db:     db,
		cache:  cache.NewStore(db),
		vault:  v,
		log:    log,
		reader: bufio.NewReader(os.Stdin),
	}

	opts := []gateway.Option{gateway.WithSessionExpiredHook(a.onSessionExpired)}
	if cfg.RelayURL != "" {
		opts = append(opts, gateway.WithRelay(cfg.RelayURL))
	}
	a.gateway = gateway.New(v, log, opts...)
	a.store = store.New(a.gateway, a.cache, log)

	return a, nil
}

// Run restores the previous session if one exists and enters the REPL.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	if session, err := a.gateway.RestoreSession(ctx); err != nil {
		a.log.Warn(ctx, "session restore failed", "error", err)
	} else if session != nil {
		a.userName = session.User.Name
		fmt.Printf("Welcome back, %s!\n", a.userName)
		a.startBridge(ctx, session.Token)
	}

	fmt.Println("Discuss CLI (type 'help' for commands)")
	runREPL(ctx, a, a.status, bufio.NewScanner(os.Stdin))
}

// Close stops the live connection and releases the cache database.
func (a *App) Close() {
	if a.stopBridge != nil {
		a.stopBridge()
	}
	_ = a.db.Close()
}

func (a *App) isLoggedIn() bool {
	return a.userName != ""
}

// status renders the prompt suffix: user name plus connectivity markers.
func (a *App) status() string {
	if !a.isLoggedIn() {
		return ""
	}
	s := a.userName
	st := a.store.Snapshot()
	if st.IsOffline {
		s += " offline"
	} else if st.IsLive {
		s += " live"
	}
	if unread := a.store.UnreadTotal(); unread > 0 {
		s += fmt.Sprintf(" [%d unread]", unread)
	}
	return "(" + s + ")"
}

// startBridge launches the live-update connection when the config names a
// notifications endpoint. Without one the client stays in request/response
// mode.
func (a *App) startBridge(ctx context.Context, token string) {
	if a.config.NotificationsURL == "" {
		return
	}
	if a.stopBridge != nil {
		a.stopBridge()
	}

	bridgeCtx, cancel := context.WithCancel(ctx)
	a.stopBridge = cancel

	b := bridge.New(a.config.NotificationsURL, token, a.store, a.log,
		bridge.WithBackoff(a.config.ReconnectBase, a.config.MaxReconnectAttempts),
		bridge.WithNotifier(terminalNotifier{}))
	go func() {
		_ = b.Run(bridgeCtx)
	}()
}

// onSessionExpired is installed as the gateway's hard-reset hook: wipe the
// in-memory identity so the prompt drops back to logged-out.
func (a *App) onSessionExpired() {
	a.userName = ""
	if a.stopBridge != nil {
		a.stopBridge()
		a.stopBridge = nil
	}
	fmt.Println("Session expired, please log in again.")
}

// terminalNotifier rings the terminal bell and prints a one-line preview.
type terminalNotifier struct{}

func (terminalNotifier) Notify(title, body string) {
	fmt.Printf("\a[%s] %s\n", title, body)
}

// Package bridge maintains the websocket connection that delivers live
// message and presence events into the synchronization store. Connection
// loss triggers reconnects with doubling delays; after the attempt cap the
// bridge gives up silently and the client keeps working in polling-free,
// cached mode.
package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/godiscuss/godiscuss/internal/client/models"
	"github.com/godiscuss/godiscuss/internal/client/store"
	"github.com/godiscuss/godiscuss/internal/logging"
)

const (
	// EventNewMessage carries a freshly posted message.
	EventNewMessage = "message.new"
	// EventPresence carries a user's online/offline transition.
	EventPresence = "presence.update"
)

// envelope is the wire frame for every event.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type presencePayload struct {
	UserID int  `json:"user_id"`
	Online bool `json:"online"`
}

// Notifier surfaces a message the user has not seen. Implementations may
// ring a terminal bell, show a desktop notification, or stay silent.
type Notifier interface {
	Notify(title, body string)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(string, string) {}

// Bridge owns one logical live connection to the events endpoint.
type Bridge struct {
	url      string
	token    string
	store    *store.Store
	notifier Notifier
	log      logging.Logger

	dialer      *websocket.Dialer
	baseDelay   time.Duration
	maxAttempts int
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithNotifier sets the notifier for messages in channels that are not
// currently open.
func WithNotifier(n Notifier) Option {
	return func(b *Bridge) { b.notifier = n }
}

// WithBackoff overrides the reconnect schedule.
func WithBackoff(base time.Duration, maxAttempts int) Option {
	return func(b *Bridge) {
		b.baseDelay = base
		b.maxAttempts = maxAttempts
	}
}

// WithDialer overrides the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(b *Bridge) { b.dialer = d }
}

// New creates a bridge for the given events URL. The session token is sent
// as a bearer header on the upgrade request.
func New(url, token string, s *store.Store, log logging.Logger, opts ...Option) *Bridge {
	b := &Bridge{
		url:         url,
		token:       token,
		store:       s,
		notifier:    NopNotifier{},
		log:         log,
		dialer:      websocket.DefaultDialer,
		baseDelay:   time.Second,
		maxAttempts: 5,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run connects and re-connects until ctx is canceled or the attempt cap is
// reached. A successful connection resets the attempt counter, so only
// consecutive failures count toward the cap. Run returns nil both on
// cancellation and on giving up: losing the live feed is not an error the
// client can act on.
func (b *Bridge) Run(ctx context.Context) error {
	attempt := 0
	for {
		conn, err := b.dial(ctx)
		if err == nil {
			attempt = 0
			b.store.SetLive(true)
			b.readLoop(ctx, conn)
			b.store.SetLive(false)
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		attempt++
		if attempt >= b.maxAttempts {
			b.log.Warn(ctx, "live connection given up", "attempts", attempt)
			b.store.SetLive(false)
			return nil
		}

		delay := b.nextDelay(attempt)
		b.log.Debug(ctx, "live connection failed, retrying", "attempt", attempt, "delay", delay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// nextDelay doubles per consecutive failure: base, 2*base, 4*base, ...
func (b *Bridge) nextDelay(attempt int) time.Duration {
	return b.baseDelay << (attempt - 1)
}

func (b *Bridge) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if b.token != "" {
		header.Set("Authorization", "Bearer "+b.token)
	}
	conn, resp, err := b.dialer.DialContext(ctx, b.url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

func (b *Bridge) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var ev envelope
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() == nil {
				b.log.Debug(ctx, "live connection dropped", "error", err)
			}
			return
		}
		b.handleEvent(ctx, ev)
	}
}

func (b *Bridge) handleEvent(ctx context.Context, ev envelope) {
	switch ev.Type {
	case EventNewMessage:
		var m models.Message
		if err := json.Unmarshal(ev.Payload, &m); err != nil {
			b.log.Warn(ctx, "malformed message event", "error", err)
			return
		}
		open := b.store.Snapshot().CurrentChannelID == m.ChannelID
		b.store.ApplyNewMessage(ctx, &m)
		if !open {
			b.notifier.Notify("New message", m.Content)
		}
	case EventPresence:
		var p presencePayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			b.log.Warn(ctx, "malformed presence event", "error", err)
			return
		}
		b.store.ApplyPresence(p.UserID, p.Online)
	default:
		b.log.Debug(ctx, "unknown live event", "type", ev.Type)
	}
}

// Package relay implements the session relay: an HTTP forwarder that lets
// clients reach an Odoo backend chosen per request via the X-Target-URL
// header, while the backend's session cookie never reaches the client in
// cleartext. Depending on the cookie mode the upstream session is either
// parked in a server-side store behind a signed opaque id, or encrypted
// into the relay's own cookie.
package relay

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/godiscuss/godiscuss/internal/common"
	"github.com/godiscuss/godiscuss/internal/logging"
	"github.com/godiscuss/godiscuss/internal/relay/config"
	"github.com/godiscuss/godiscuss/internal/relay/session"
)

// forwardedRequestHeaders is the allow-list of client headers passed
// upstream. Everything else, the client's relay cookie included, stays on
// this side.
var forwardedRequestHeaders = []string{
	"Content-Type",
	"Accept",
	common.HeaderDatabase,
}

// droppedResponseHeaders never reach the client; the upstream session
// cookie is re-packaged, not forwarded.
var droppedResponseHeaders = map[string]struct{}{
	"Set-Cookie":        {},
	"Content-Length":    {},
	"Transfer-Encoding": {},
}

// Relay forwards /api/* requests to the backend named by X-Target-URL.
type Relay struct {
	cfg    *config.Config
	store  session.Store
	codec  *session.CookieCodec
	sealed *session.SealedCodec
	client *http.Client
	log    logging.Logger
}

func New(cfg *config.Config, store session.Store, log logging.Logger) *Relay {
	secret := []byte(cfg.CookieSecret)
	return &Relay{
		cfg:    cfg,
		store:  store,
		codec:  session.NewCookieCodec(secret),
		sealed: session.NewSealedCodec(secret, []byte("godiscuss-relay-cookie-v1")),
		client: &http.Client{Timeout: 60 * time.Second},
		log:    log,
	}
}

// Router builds the gin engine with the origin filter and the catch-all
// forwarding route.
func (r *Relay) Router() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(r.originFilter())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.Any("/api/*path", r.handle)

	return engine
}

// originFilter rejects browser requests from origins outside the allow
// list. Requests without an Origin header (native clients) pass through.
func (r *Relay) originFilter() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			c.Next()
			return
		}

		for _, o := range r.cfg.AllowedOrigins {
			if o == "*" || o == origin {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Access-Control-Allow-Headers",
					"Content-Type, Accept, "+common.HeaderTargetURL+", "+common.HeaderDatabase)
				c.Header("Access-Control-Allow-Credentials", "true")
				if c.Request.Method == http.MethodOptions {
					c.AbortWithStatus(http.StatusNoContent)
					return
				}
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "origin not allowed"})
	}
}

func (r *Relay) handle(c *gin.Context) {
	ctx := c.Request.Context()

	target := c.GetHeader(common.HeaderTargetURL)
	if target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing " + common.HeaderTargetURL + " header"})
		return
	}
	targetURL, err := url.Parse(target)
	if err != nil || targetURL.Scheme == "" || targetURL.Host == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + common.HeaderTargetURL + " header"})
		return
	}

	upstreamURL := strings.TrimSuffix(targetURL.String(), "/") + strings.TrimPrefix(c.Request.URL.Path, "/api")
	if q := c.Request.URL.RawQuery; q != "" {
		upstreamURL += "?" + q
	}

	req, err := http.NewRequestWithContext(ctx, c.Request.Method, upstreamURL, c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	for _, h := range forwardedRequestHeaders {
		if v := c.GetHeader(h); v != "" {
			req.Header.Set(h, v)
		}
	}
	r.attachUpstreamSession(c, req)

	resp, err := r.client.Do(req)
	if err != nil {
		r.log.Warn(ctx, "upstream request failed", "target", targetURL.Host, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upstream request failed"})
		return
	}
	defer resp.Body.Close()

	r.captureUpstreamSession(c, resp)

	for name, values := range resp.Header {
		if _, drop := droppedResponseHeaders[name]; drop {
			continue
		}
		for _, v := range values {
			c.Writer.Header().Add(name, v)
		}
	}
	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		r.log.Debug(ctx, "response copy interrupted", "error", err)
	}
}

// attachUpstreamSession restores the parked upstream session cookie onto
// the outgoing request, if the client presented a valid relay cookie.
func (r *Relay) attachUpstreamSession(c *gin.Context, req *http.Request) {
	raw, err := c.Cookie(common.RelayCookieName)
	if err != nil || raw == "" {
		return
	}

	var value string
	switch r.cfg.CookieMode {
	case config.CookieModeSealed:
		value, err = r.sealed.Open(raw)
	default:
		var sid string
		sid, err = r.codec.Parse(raw)
		if err == nil {
			value, err = r.store.Get(c.Request.Context(), sid)
		}
	}
	if err != nil || value == "" {
		return
	}

	req.AddCookie(&http.Cookie{Name: common.OdooSessionCookie, Value: value})
}

// captureUpstreamSession parks a session cookie issued by the upstream and
// hands the client a relay cookie instead.
func (r *Relay) captureUpstreamSession(c *gin.Context, resp *http.Response) {
	var upstream *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == common.OdooSessionCookie {
			upstream = ck
			break
		}
	}
	if upstream == nil {
		return
	}

	ctx := c.Request.Context()
	var cookieValue string
	switch r.cfg.CookieMode {
	case config.CookieModeSealed:
		sealed, err := r.sealed.Seal(upstream.Value)
		if err != nil {
			r.log.Error(ctx, "failed to seal session cookie", "error", err)
			return
		}
		cookieValue = sealed
	default:
		sid := r.existingSID(c)
		if sid == "" {
			sid = uuid.NewString()
		}
		if err := r.store.Set(ctx, sid, upstream.Value, r.cfg.SessionTTL); err != nil {
			r.log.Error(ctx, "failed to store session", "error", err)
			return
		}
		token, err := r.codec.Issue(sid, r.cfg.SessionTTL)
		if err != nil {
			r.log.Error(ctx, "failed to issue session token", "error", err)
			return
		}
		cookieValue = token
	}

	maxAge := int(r.cfg.SessionTTL.Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(common.RelayCookieName, cookieValue, maxAge, "/", "", false, true)
}

// existingSID reuses the session id from a still-valid relay cookie so a
// re-login replaces the parked value instead of leaking a new entry.
func (r *Relay) existingSID(c *gin.Context) string {
	raw, err := c.Cookie(common.RelayCookieName)
	if err != nil || raw == "" {
		return ""
	}
	sid, err := r.codec.Parse(raw)
	if err != nil {
		return ""
	}
	return sid
}

// Serve runs the relay's HTTP server until ctx is canceled, then shuts
// down gracefully.
func (r *Relay) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    r.cfg.ListenAddr,
		Handler: r.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		r.log.Info(ctx, "relay listening", "addr", r.cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

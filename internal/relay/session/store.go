// Package session keeps upstream session secrets on the relay side, keyed
// by an opaque id. The client only ever sees the relay's own cookie; the
// upstream session value never leaves the relay in cleartext.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a session id is unknown or expired.
var ErrNotFound = errors.New("session not found")

// Store persists upstream session values with a TTL.
type Store interface {
	// Get returns the upstream session value for sid.
	Get(ctx context.Context, sid string) (string, error)

	// Set stores the upstream session value for sid, replacing any
	// previous value and resetting the TTL.
	Set(ctx context.Context, sid, value string, ttl time.Duration) error

	// Delete removes the session. Deleting an absent session is a no-op.
	Delete(ctx context.Context, sid string) error
}

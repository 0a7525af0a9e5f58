// Package common defines shared constants and sentinel errors used across
// the client and relay layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Authentication errors.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDatabaseNotFound   = errors.New("database not found")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrSessionExpired     = errors.New("session expired")

	// Transport errors.
	ErrServerUnreachable = errors.New("server unreachable")
	ErrCorsRejected      = errors.New("request rejected by cross-origin policy")
	ErrNetwork           = errors.New("network error")

	// Local storage errors. Cache failures degrade a load to network-only
	// and must never fail the overall operation.
	ErrCacheUnavailable = errors.New("local cache unavailable")
)

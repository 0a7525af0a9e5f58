package common

// Headers understood by the session relay. The target header names the
// backend origin the relay should forward to; the database header selects
// the Odoo database and is passed through to the backend.
const (
	HeaderTargetURL = "X-Target-URL"
	HeaderDatabase  = "X-Odoo-Database"
)

// RelayCookieName is the browser-held cookie issued by the relay. Its value
// never contains the upstream session in cleartext.
const RelayCookieName = "relay_session"

// OdooSessionCookie is the cookie name the backend uses for its session.
const OdooSessionCookie = "session_id"

// Vault keys for the persisted session tuple. The session is valid only if
// auth_token, server_url, database and user_id are all present.
const (
	VaultKeyAuthToken = "auth_token"
	VaultKeyServerURL = "server_url"
	VaultKeyDatabase  = "database"
	VaultKeyUserID    = "user_id"
	VaultKeyPartnerID = "partner_id"
)

package vault

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupVault(t *testing.T) (*Vault, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE vault (key TEXT PRIMARY KEY, value BLOB NOT NULL);
CREATE TABLE vault_salt (id INTEGER PRIMARY KEY CHECK (id = 1), salt BLOB NOT NULL);
`)
	require.NoError(t, err)

	v, err := Open(context.Background(), db)
	require.NoError(t, err)
	return v, db
}

func TestStoreRetrieveRoundTrip(t *testing.T) {
	v, _ := setupVault(t)
	ctx := context.Background()

	require.NoError(t, v.Store(ctx, "auth_token", "abc123"))

	got, ok := v.Retrieve(ctx, "auth_token")
	require.True(t, ok)
	require.Equal(t, "abc123", got)
}

func TestRetrieveAbsentKey(t *testing.T) {
	v, _ := setupVault(t)

	_, ok := v.Retrieve(context.Background(), "never_set")
	require.False(t, ok)
}

func TestRetrieveForeignCiphertextReadsAsAbsent(t *testing.T) {
	v, db := setupVault(t)
	ctx := context.Background()

	// Not produced by the vault's own encryption.
	_, err := db.Exec(`INSERT INTO vault (key, value) VALUES ('auth_token', ?)`, []byte("garbage"))
	require.NoError(t, err)

	got, ok := v.Retrieve(ctx, "auth_token")
	require.False(t, ok)
	require.Empty(t, got)
}

func TestRetrieveCorruptedCiphertextReadsAsAbsent(t *testing.T) {
	v, db := setupVault(t)
	ctx := context.Background()

	require.NoError(t, v.Store(ctx, "auth_token", "abc123"))

	var sealed []byte
	require.NoError(t, db.QueryRow(`SELECT value FROM vault WHERE key = 'auth_token'`).Scan(&sealed))
	sealed[len(sealed)-1] ^= 0xff
	_, err := db.Exec(`UPDATE vault SET value = ? WHERE key = 'auth_token'`, sealed)
	require.NoError(t, err)

	_, ok := v.Retrieve(ctx, "auth_token")
	require.False(t, ok)
}

func TestStoreOverwrites(t *testing.T) {
	v, _ := setupVault(t)
	ctx := context.Background()

	require.NoError(t, v.Store(ctx, "database", "prod"))
	require.NoError(t, v.Store(ctx, "database", "staging"))

	got, ok := v.Retrieve(ctx, "database")
	require.True(t, ok)
	require.Equal(t, "staging", got)
}

func TestRemoveAndClear(t *testing.T) {
	v, _ := setupVault(t)
	ctx := context.Background()

	require.NoError(t, v.Store(ctx, "auth_token", "t"))
	require.NoError(t, v.Store(ctx, "server_url", "https://odoo.example.com"))

	require.NoError(t, v.Remove(ctx, "auth_token"))
	_, ok := v.Retrieve(ctx, "auth_token")
	require.False(t, ok)

	require.NoError(t, v.Clear(ctx))
	_, ok = v.Retrieve(ctx, "server_url")
	require.False(t, ok)
}

func TestRemoveAbsentKeyIsNoop(t *testing.T) {
	v, _ := setupVault(t)
	require.NoError(t, v.Remove(context.Background(), "missing"))
}

func TestSaltPersistsAcrossOpens(t *testing.T) {
	v, db := setupVault(t)
	ctx := context.Background()

	require.NoError(t, v.Store(ctx, "auth_token", "abc123"))

	// Reopening over the same database must derive the same key.
	v2, err := Open(ctx, db)
	require.NoError(t, err)

	got, ok := v2.Retrieve(ctx, "auth_token")
	require.True(t, ok)
	require.Equal(t, "abc123", got)
}

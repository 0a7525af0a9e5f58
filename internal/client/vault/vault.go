// Package vault stores small credential strings (token, server URL,
// database name, user id) encrypted at rest in the cache database.
//
// The vault intentionally has a single failure mode: absence. A value that
// was never set, a value whose ciphertext was corrupted, and a value written
// by a foreign key all read back as absent — callers cannot and must not
// distinguish these cases.
package vault

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/godiscuss/godiscuss/internal/cryptox"
	"github.com/godiscuss/godiscuss/internal/dbx"
)

// clientSecret is the fixed symmetric secret baked into the client. The
// effective key is derived from it with a random per-database salt, so two
// installations never share a key.
var clientSecret = []byte("godiscuss-credential-vault-v1")

type Vault struct {
	db  *sql.DB
	key []byte
}

// Open prepares the vault over the given database handle, creating the
// per-database salt on first use.
func Open(ctx context.Context, db *sql.DB) (*Vault, error) {
	salt, err := loadOrCreateSalt(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vault: %w", err)
	}
	return &Vault{db: db, key: cryptox.DeriveKey(clientSecret, salt)}, nil
}

func loadOrCreateSalt(ctx context.Context, db *sql.DB) ([]byte, error) {
	var salt []byte
	err := db.QueryRowContext(ctx, `SELECT salt FROM vault_salt WHERE id = 1`).Scan(&salt)
	if err == nil {
		return salt, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	salt, err = cryptox.RandBytes(16)
	if err != nil {
		return nil, err
	}
	_, err = db.ExecContext(ctx, `INSERT INTO vault_salt (id, salt) VALUES (1, ?)`, salt)
	if err != nil {
		return nil, err
	}
	return salt, nil
}

// Store encrypts plaintext and upserts it under key.
func (v *Vault) Store(ctx context.Context, key, plaintext string) error {
	sealed, err := cryptox.Seal([]byte(plaintext), v.key)
	if err != nil {
		return fmt.Errorf("failed to seal vault[%s]: %w", key, err)
	}
	_, err = v.db.ExecContext(ctx, `
		INSERT INTO vault (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, sealed)
	if err != nil {
		return fmt.Errorf("failed to store vault[%s]: %w", key, err)
	}
	return nil
}

// Retrieve returns the decrypted value for key. The second return value is
// false when the key was never set, the ciphertext cannot be decrypted, or
// the store is unavailable.
func (v *Vault) Retrieve(ctx context.Context, key string) (string, bool) {
	var sealed []byte
	err := v.db.QueryRowContext(ctx, `SELECT value FROM vault WHERE key = ?`, key).Scan(&sealed)
	if err != nil {
		return "", false
	}
	plaintext, err := cryptox.Open(sealed, v.key)
	if err != nil {
		return "", false
	}
	return string(plaintext), true
}

// Remove deletes the value stored under key. Removing an absent key is a
// no-op.
func (v *Vault) Remove(ctx context.Context, key string) error {
	_, err := v.db.ExecContext(ctx, `DELETE FROM vault WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to remove vault[%s]: %w", key, err)
	}
	return nil
}

// Clear deletes every stored value in one transaction.
func (v *Vault) Clear(ctx context.Context) error {
	return dbx.WithTx(ctx, v.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM vault`)
		return err
	})
}

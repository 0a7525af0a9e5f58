// Package cache is the on-device persistent store for fetched entities.
// It keeps three collections (users, channels, messages) in sqlite so the
// client can display data instantly and keep working offline. Writes are
// idempotent upserts; the synchronization store treats the cache as a
// write-through shadow of its in-memory state.
package cache

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/godiscuss/godiscuss/internal/client/cache/migrations"
	"github.com/godiscuss/godiscuss/internal/dbx"
)

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the cache database at dsn and applies
// migrations. The caller owns the returned handle.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Store bundles the three collection repositories over one database handle.
type Store struct {
	db       *sql.DB
	Users    *UserRepository
	Channels *ChannelRepository
	Messages *MessageRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:       db,
		Users:    NewUserRepository(db),
		Channels: NewChannelRepository(db),
		Messages: NewMessageRepository(db),
	}
}

// ClearAll empties all three collections in a single transaction.
func (s *Store) ClearAll(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, table := range []string{"messages", "channels", "users"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}

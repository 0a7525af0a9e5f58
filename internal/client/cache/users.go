package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/godiscuss/godiscuss/internal/client/models"
	"github.com/godiscuss/godiscuss/internal/dbx"
)

type UserRepository struct {
	db dbx.DBTX
}

func NewUserRepository(db dbx.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// PutMany upserts users by id. Calling it twice with the same records leaves
// the collection unchanged.
func (r *UserRepository) PutMany(ctx context.Context, users []*models.User) error {
	for _, u := range users {
		var lastSeen any
		if u.LastSeen != nil {
			lastSeen = u.LastSeen.UTC().Format(time.RFC3339Nano)
		}
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO users (id, name, email, avatar, is_online, last_seen)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				email = excluded.email,
				avatar = excluded.avatar,
				is_online = excluded.is_online,
				last_seen = excluded.last_seen
		`, u.ID, u.Name, u.Email, u.Avatar, boolToInt(u.IsOnline), lastSeen)
		if err != nil {
			return fmt.Errorf("failed to upsert user %d: %w", u.ID, err)
		}
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, avatar, is_online, last_seen FROM users WHERE id = ?
	`, id)
	u, err := scanUser(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return u, nil
}

func (r *UserRepository) GetAll(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, avatar, is_online, last_seen FROM users ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func scanUser(scan func(dest ...any) error) (*models.User, error) {
	var u models.User
	var isOnline int
	var lastSeen sql.NullString
	if err := scan(&u.ID, &u.Name, &u.Email, &u.Avatar, &isOnline, &lastSeen); err != nil {
		return nil, err
	}
	u.IsOnline = isOnline != 0
	if lastSeen.Valid {
		if t, err := time.Parse(time.RFC3339Nano, lastSeen.String); err == nil {
			u.LastSeen = &t
		}
	}
	return &u, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

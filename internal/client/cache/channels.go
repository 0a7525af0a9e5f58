package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/godiscuss/godiscuss/internal/client/models"
	"github.com/godiscuss/godiscuss/internal/dbx"
)

type ChannelRepository struct {
	db dbx.DBTX
}

func NewChannelRepository(db dbx.DBTX) *ChannelRepository {
	return &ChannelRepository{db: db}
}

// PutMany upserts channels by id.
func (r *ChannelRepository) PutMany(ctx context.Context, channels []*models.Channel) error {
	for _, c := range channels {
		memberIDs, err := json.Marshal(c.MemberIDs)
		if err != nil {
			return fmt.Errorf("failed to encode member ids: %w", err)
		}
		partnerIDs, err := json.Marshal(c.PartnerIDs)
		if err != nil {
			return fmt.Errorf("failed to encode partner ids: %w", err)
		}
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO channels (id, name, description, kind, member_ids, partner_ids,
				avatar, unread_count, member_count, is_archived, other_user_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				description = excluded.description,
				kind = excluded.kind,
				member_ids = excluded.member_ids,
				partner_ids = excluded.partner_ids,
				avatar = excluded.avatar,
				unread_count = excluded.unread_count,
				member_count = excluded.member_count,
				is_archived = excluded.is_archived,
				other_user_id = excluded.other_user_id
		`, c.ID, c.Name, c.Description, string(c.Kind), string(memberIDs), string(partnerIDs),
			c.Avatar, c.UnreadCount, c.MemberCount, boolToInt(c.IsArchived), c.OtherUserID)
		if err != nil {
			return fmt.Errorf("failed to upsert channel %d: %w", c.ID, err)
		}
	}
	return nil
}

func (r *ChannelRepository) GetAll(ctx context.Context) ([]*models.Channel, error) {
	return r.query(ctx, `
		SELECT id, name, description, kind, member_ids, partner_ids, avatar,
			unread_count, member_count, is_archived, other_user_id
		FROM channels ORDER BY name
	`)
}

// GetByKinds returns the channels whose kind is one of the given variants.
func (r *ChannelRepository) GetByKinds(ctx context.Context, kinds ...models.ChannelKind) ([]*models.Channel, error) {
	if len(kinds) == 0 {
		return r.GetAll(ctx)
	}
	query := `
		SELECT id, name, description, kind, member_ids, partner_ids, avatar,
			unread_count, member_count, is_archived, other_user_id
		FROM channels WHERE kind IN (`
	args := make([]any, 0, len(kinds))
	for i, k := range kinds {
		if i > 0 {
			query += ", "
		}
		query += "?"
		args = append(args, string(k))
	}
	query += ") ORDER BY name"
	return r.query(ctx, query, args...)
}

// SetUnreadCount updates a single channel's unread counter.
func (r *ChannelRepository) SetUnreadCount(ctx context.Context, channelID, count int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE channels SET unread_count = ? WHERE id = ?`, count, channelID)
	if err != nil {
		return fmt.Errorf("failed to update unread count for channel %d: %w", channelID, err)
	}
	return nil
}

func (r *ChannelRepository) query(ctx context.Context, query string, args ...any) ([]*models.Channel, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	var result []*models.Channel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan channel row: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func scanChannel(rows *sql.Rows) (*models.Channel, error) {
	var c models.Channel
	var kind, memberIDs, partnerIDs string
	var isArchived int
	err := rows.Scan(&c.ID, &c.Name, &c.Description, &kind, &memberIDs, &partnerIDs,
		&c.Avatar, &c.UnreadCount, &c.MemberCount, &isArchived, &c.OtherUserID)
	if err != nil {
		return nil, err
	}
	c.Kind = models.ChannelKind(kind)
	c.IsArchived = isArchived != 0
	if err := json.Unmarshal([]byte(memberIDs), &c.MemberIDs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(partnerIDs), &c.PartnerIDs); err != nil {
		return nil, err
	}
	return &c, nil
}

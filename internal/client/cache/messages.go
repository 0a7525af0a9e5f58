package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/godiscuss/godiscuss/internal/client/models"
	"github.com/godiscuss/godiscuss/internal/dbx"
)

type MessageRepository struct {
	db dbx.DBTX
}

func NewMessageRepository(db dbx.DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = `id, content, author_id, channel_id, created_at, is_starred, parent_id, attachments, reactions`

// PutMany upserts messages by id.
func (r *MessageRepository) PutMany(ctx context.Context, messages []*models.Message) error {
	for _, m := range messages {
		attachments, err := json.Marshal(m.Attachments)
		if err != nil {
			return fmt.Errorf("failed to encode attachments: %w", err)
		}
		reactions, err := json.Marshal(m.Reactions)
		if err != nil {
			return fmt.Errorf("failed to encode reactions: %w", err)
		}
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO messages (`+messageColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				content = excluded.content,
				author_id = excluded.author_id,
				channel_id = excluded.channel_id,
				created_at = excluded.created_at,
				is_starred = excluded.is_starred,
				parent_id = excluded.parent_id,
				attachments = excluded.attachments,
				reactions = excluded.reactions
		`, m.ID, m.Content, m.AuthorID, m.ChannelID,
			m.CreatedAt.UTC().Format(time.RFC3339Nano),
			boolToInt(m.IsStarred), m.ParentID, string(attachments), string(reactions))
		if err != nil {
			return fmt.Errorf("failed to upsert message %d: %w", m.ID, err)
		}
	}
	return nil
}

// GetByChannel returns up to limit messages for a channel, newest first.
func (r *MessageRepository) GetByChannel(ctx context.Context, channelID, limit int) ([]*models.Message, error) {
	return r.query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE channel_id = ? ORDER BY created_at DESC LIMIT ?
	`, channelID, limit)
}

// GetRecent returns the newest messages across all channels.
func (r *MessageRepository) GetRecent(ctx context.Context, limit int) ([]*models.Message, error) {
	return r.query(ctx, `
		SELECT `+messageColumns+` FROM messages ORDER BY created_at DESC LIMIT ?
	`, limit)
}

// GetStarred returns all starred messages, newest first.
func (r *MessageRepository) GetStarred(ctx context.Context) ([]*models.Message, error) {
	return r.query(ctx, `
		SELECT `+messageColumns+` FROM messages WHERE is_starred = 1 ORDER BY created_at DESC
	`)
}

func (r *MessageRepository) query(ctx context.Context, query string, args ...any) ([]*models.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var result []*models.Message
	for rows.Next() {
		var m models.Message
		var createdAt, attachments, reactions string
		var isStarred int
		err := rows.Scan(&m.ID, &m.Content, &m.AuthorID, &m.ChannelID, &createdAt,
			&isStarred, &m.ParentID, &attachments, &reactions)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		m.IsStarred = isStarred != 0
		if m.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse message timestamp: %w", err)
		}
		if err := json.Unmarshal([]byte(attachments), &m.Attachments); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(reactions), &m.Reactions); err != nil {
			return nil, err
		}
		result = append(result, &m)
	}
	return result, rows.Err()
}

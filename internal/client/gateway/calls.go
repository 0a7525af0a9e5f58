package gateway

import (
	"context"
	"time"

	"github.com/godiscuss/godiscuss/internal/client/models"
	"github.com/godiscuss/godiscuss/internal/common"
)

// odooTimeLayout is the backend's datetime serialization.
const odooTimeLayout = "2006-01-02 15:04:05"

var userFields = []string{"id", "name", "email", "avatar_128"}

var channelFields = []string{
	"active", "id", "name", "description", "channel_type",
	"channel_member_ids", "channel_partner_ids", "avatar_128",
	"is_member", "member_count",
}

var messageFields = []string{
	"id", "body", "author_id", "date", "starred_partner_ids",
	"res_id", "model", "parent_id",
}

type partnerRecord struct {
	ID     int        `json:"id"`
	Name   odooString `json:"name"`
	Email  odooString `json:"email"`
	Avatar odooString `json:"avatar_128"`
}

func (p partnerRecord) toUser() *models.User {
	return &models.User{
		ID:     p.ID,
		Name:   string(p.Name),
		Email:  string(p.Email),
		Avatar: avatarDataURL(string(p.Avatar)),
	}
}

func avatarDataURL(b64 string) string {
	if b64 == "" {
		return ""
	}
	return "data:image/png;base64," + b64
}

type userRecord struct {
	ID        int        `json:"id"`
	Name      odooString `json:"name"`
	Email     odooString `json:"email"`
	Avatar    odooString `json:"avatar_128"`
	PartnerID odooRef    `json:"partner_id"`
}

// CurrentUser fetches the authenticated user's record and remembers its
// partner id for direct-channel derivation.
func (g *Gateway) CurrentUser(ctx context.Context) (*models.User, error) {
	var records []userRecord
	err := g.callKW(ctx, "res.users", "read", []any{[]int{g.userID}}, map[string]any{
		"fields": append(userFields, "partner_id"),
	}, &records)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, common.ErrNotAuthenticated
	}

	r := records[0]
	if r.PartnerID.ID != 0 {
		g.partnerID = r.PartnerID.ID
		if err := g.vault.Store(ctx, common.VaultKeyPartnerID, itoa(g.partnerID)); err != nil {
			g.log.Warn(ctx, "failed to persist partner id", "error", err)
		}
	}

	return &models.User{
		ID:     r.ID,
		Name:   string(r.Name),
		Email:  string(r.Email),
		Avatar: avatarDataURL(string(r.Avatar)),
	}, nil
}

// ListUsers returns the backend's partner directory.
func (g *Gateway) ListUsers(ctx context.Context) ([]*models.User, error) {
	var records []partnerRecord
	err := g.callKW(ctx, "res.partner", "search_read", []any{[]any{}}, map[string]any{
		"fields": userFields,
		"limit":  1000,
	}, &records)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, len(records))
	for _, r := range records {
		users = append(users, r.toUser())
	}
	return users, nil
}

// ListUsersByIDs reads specific partner records.
func (g *Gateway) ListUsersByIDs(ctx context.Context, ids []int) ([]*models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var records []partnerRecord
	err := g.callKW(ctx, "res.partner", "read", []any{ids}, map[string]any{
		"fields": userFields,
	}, &records)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, len(records))
	for _, r := range records {
		users = append(users, r.toUser())
	}
	return users, nil
}

type channelRecord struct {
	ID          int        `json:"id"`
	Name        odooString `json:"name"`
	Description odooString `json:"description"`
	Type        odooString `json:"channel_type"`
	MemberIDs   []int      `json:"channel_member_ids"`
	PartnerIDs  []int      `json:"channel_partner_ids"`
	Avatar      odooString `json:"avatar_128"`
	MemberCount odooInt    `json:"member_count"`
	Active      bool       `json:"active"`
}

func (g *Gateway) channelFromRecord(r channelRecord) *models.Channel {
	avatar := avatarDataURL(string(r.Avatar))
	if avatar == "" {
		avatar = g.serverURL + "/web/image/discuss.channel/" + itoa(r.ID) + "/avatar_128"
	}
	return &models.Channel{
		ID:          r.ID,
		Name:        string(r.Name),
		Description: string(r.Description),
		Kind:        models.ChannelKind(r.Type),
		MemberIDs:   r.MemberIDs,
		PartnerIDs:  r.PartnerIDs,
		Avatar:      avatar,
		MemberCount: int(r.MemberCount),
		IsArchived:  !r.Active,
	}
}

// ListChannels returns the broadcast channels the user is a member of.
func (g *Gateway) ListChannels(ctx context.Context) ([]*models.Channel, error) {
	domain := []any{
		[]any{"is_member", "=", true},
		[]any{"channel_type", "=", "channel"},
	}
	return g.listChannels(ctx, domain, false)
}

// ListDirectChannels returns direct chats and group chats. For a one-to-one
// chat the peer is derived by excluding the current user's own partner id
// from the channel's participant list.
func (g *Gateway) ListDirectChannels(ctx context.Context) ([]*models.Channel, error) {
	domain := []any{
		[]any{"channel_type", "in", []string{"chat", "group"}},
		[]any{"is_member", "=", true},
	}
	return g.listChannels(ctx, domain, true)
}

func (g *Gateway) listChannels(ctx context.Context, domain []any, deriveOther bool) ([]*models.Channel, error) {
	var records []channelRecord
	err := g.callKW(ctx, "discuss.channel", "search_read", []any{domain}, map[string]any{
		"fields": channelFields,
		"limit":  100,
	}, &records)
	if err != nil {
		return nil, err
	}

	channels := make([]*models.Channel, 0, len(records))
	for _, r := range records {
		c := g.channelFromRecord(r)
		if deriveOther && c.Kind == models.KindChat {
			c.OtherUserID = otherParticipant(c.PartnerIDs, g.partnerID)
		}
		channels = append(channels, c)
	}
	return channels, nil
}

// ListChannelsByIDs reads specific channel records.
func (g *Gateway) ListChannelsByIDs(ctx context.Context, ids []int) ([]*models.Channel, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var records []channelRecord
	err := g.callKW(ctx, "discuss.channel", "read", []any{ids}, map[string]any{
		"fields": channelFields,
	}, &records)
	if err != nil {
		return nil, err
	}

	channels := make([]*models.Channel, 0, len(records))
	for _, r := range records {
		channels = append(channels, g.channelFromRecord(r))
	}
	return channels, nil
}

func otherParticipant(partnerIDs []int, self int) int {
	for _, id := range partnerIDs {
		if id != self {
			return id
		}
	}
	return 0
}

type messageRecord struct {
	ID              int        `json:"id"`
	Body            odooString `json:"body"`
	AuthorID        odooRef    `json:"author_id"`
	Date            odooString `json:"date"`
	StarredPartners []int      `json:"starred_partner_ids"`
	ResID           odooInt    `json:"res_id"`
	ParentID        odooRef    `json:"parent_id"`
}

func messageFromRecord(r messageRecord, channelID int) *models.Message {
	createdAt, err := time.Parse(odooTimeLayout, string(r.Date))
	if err != nil {
		createdAt = time.Time{}
	}
	if channelID == 0 {
		channelID = int(r.ResID)
	}
	return &models.Message{
		ID:        r.ID,
		Content:   StripHTML(string(r.Body)),
		AuthorID:  r.AuthorID.ID,
		ChannelID: channelID,
		CreatedAt: createdAt,
		IsStarred: len(r.StarredPartners) > 0,
		ParentID:  r.ParentID.ID,
	}
}

// ListMessages returns up to limit messages for a channel, newest first.
func (g *Gateway) ListMessages(ctx context.Context, channelID, limit int) ([]*models.Message, error) {
	domain := []any{
		[]any{"res_id", "=", channelID},
		[]any{"model", "=", "discuss.channel"},
	}
	var records []messageRecord
	err := g.callKW(ctx, "mail.message", "search_read", []any{domain}, map[string]any{
		"fields": messageFields,
		"limit":  limit,
		"order":  "date desc",
	}, &records)
	if err != nil {
		return nil, err
	}

	messages := make([]*models.Message, 0, len(records))
	for _, r := range records {
		messages = append(messages, messageFromRecord(r, channelID))
	}
	return messages, nil
}

// ListMessagesByIDs reads specific messages; each message's channel comes
// from its own record.
func (g *Gateway) ListMessagesByIDs(ctx context.Context, ids []int) ([]*models.Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var records []messageRecord
	err := g.callKW(ctx, "mail.message", "read", []any{ids}, map[string]any{
		"fields": messageFields,
	}, &records)
	if err != nil {
		return nil, err
	}

	messages := make([]*models.Message, 0, len(records))
	for _, r := range records {
		messages = append(messages, messageFromRecord(r, 0))
	}
	return messages, nil
}

// ListRecentMessages returns the newest messages across every channel as a
// flat feed; callers regroup them by channel id.
func (g *Gateway) ListRecentMessages(ctx context.Context, limit, offset int) ([]*models.Message, error) {
	domain := []any{[]any{"model", "=", "discuss.channel"}}
	var records []messageRecord
	err := g.callKW(ctx, "mail.message", "search_read", []any{domain}, map[string]any{
		"fields": messageFields,
		"limit":  limit,
		"offset": offset,
		"order":  "date desc",
	}, &records)
	if err != nil {
		return nil, err
	}

	messages := make([]*models.Message, 0, len(records))
	for _, r := range records {
		messages = append(messages, messageFromRecord(r, 0))
	}
	return messages, nil
}

// SendMessage posts a comment to a channel and returns the created message.
func (g *Gateway) SendMessage(ctx context.Context, channelID int, content string) (*models.Message, error) {
	var messageID int
	err := g.callKW(ctx, "discuss.channel", "message_post", []any{channelID}, map[string]any{
		"body":         content,
		"message_type": "comment",
	}, &messageID)
	if err != nil {
		return nil, err
	}

	return &models.Message{
		ID:        messageID,
		Content:   StripHTML(content),
		AuthorID:  g.partnerID,
		ChannelID: channelID,
		CreatedAt: time.Now().UTC(),
	}, nil
}

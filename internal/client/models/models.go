// Package models defines the entities the client tracks: users, channels
// and messages, plus the credentials used to open a session.
package models

import "time"

// ChannelKind distinguishes the three channel variants the backend exposes.
type ChannelKind string

const (
	// KindChannel is a broadcast channel with open membership.
	KindChannel ChannelKind = "channel"
	// KindChat is a one-to-one direct conversation.
	KindChat ChannelKind = "chat"
	// KindGroup is an ad-hoc multi-member conversation.
	KindGroup ChannelKind = "group"
)

// User identity is immutable; presence and avatar may change.
type User struct {
	ID       int        `json:"id"`
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Avatar   string     `json:"avatar,omitempty"`
	IsOnline bool       `json:"isOnline"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

type Attachment struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

type Reaction struct {
	Emoji   string `json:"emoji"`
	UserIDs []int  `json:"userIds"`
}

// Message content is plain text; the gateway strips the backend's HTML body
// before a message reaches this struct. Only IsStarred and Reactions change
// after creation.
type Message struct {
	ID          int          `json:"id"`
	Content     string       `json:"content"`
	AuthorID    int          `json:"authorId"`
	ChannelID   int          `json:"channelId"`
	CreatedAt   time.Time    `json:"createdAt"`
	IsStarred   bool         `json:"isStarred"`
	ParentID    int          `json:"parentId,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Reactions   []Reaction   `json:"reactions,omitempty"`
}

// Channel as discovered via a listing fetch. UnreadCount is mutated locally
// on live-update receipt and reset when the channel is opened. OtherUserID
// is set only for direct (chat) channels and names the peer.
type Channel struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Kind        ChannelKind `json:"kind"`
	MemberIDs   []int       `json:"memberIds"`
	PartnerIDs  []int       `json:"partnerIds,omitempty"`
	Avatar      string      `json:"avatar,omitempty"`
	UnreadCount int         `json:"unreadCount"`
	MemberCount int         `json:"memberCount,omitempty"`
	IsArchived  bool        `json:"isArchived"`
	OtherUserID int         `json:"otherUserId,omitempty"`
}

// Credentials identify a backend, a database on it, and a login.
type Credentials struct {
	ServerURL string
	Database  string
	Username  string
	Password  string
}

// Session is the result of a successful authentication or restore.
type Session struct {
	Token string
	User  *User
}

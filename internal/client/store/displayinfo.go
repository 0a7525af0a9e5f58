package store

import "github.com/godiscuss/godiscuss/internal/client/models"

// DisplayInfo is what a channel list row renders.
type DisplayInfo struct {
	Name    string
	Avatar  string
	IsGroup bool
}

// ChannelDisplayInfo resolves how a channel presents itself. A one-to-one
// chat borrows the peer's name and avatar when the peer is known; group
// chats and broadcast channels use their own. The function reads only its
// arguments, so the same inputs always render the same row.
func ChannelDisplayInfo(c *models.Channel, users map[int]*models.User) DisplayInfo {
	info := DisplayInfo{
		Name:    c.Name,
		Avatar:  c.Avatar,
		IsGroup: c.Kind != models.KindChat,
	}
	if c.Kind == models.KindChat {
		if peer, ok := users[c.OtherUserID]; ok {
			if peer.Name != "" {
				info.Name = peer.Name
			}
			if peer.Avatar != "" {
				info.Avatar = peer.Avatar
			}
		}
	}
	if info.Name == "" {
		info.Name = "Unknown"
	}
	return info
}

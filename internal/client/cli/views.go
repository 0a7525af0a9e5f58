package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/godiscuss/godiscuss/internal/client/models"
	"github.com/godiscuss/godiscuss/internal/client/store"
)

// Channels lists broadcast channels the user is a member of.
func (a *App) Channels(ctx context.Context) error {
	a.store.SetCurrentTab(store.TabChannels)
	a.store.LoadChannels(ctx)

	st := a.store.Snapshot()
	a.reportError(st)
	for _, c := range sortedChannels(st.Channels, models.KindChannel) {
		line := fmt.Sprintf("  #%d  %s", c.ID, c.Name)
		if c.UnreadCount > 0 {
			line += fmt.Sprintf("  (%d unread)", c.UnreadCount)
		}
		fmt.Println(line)
	}
	return nil
}

// Direct lists one-to-one and group chats.
func (a *App) Direct(ctx context.Context) error {
	a.store.SetCurrentTab(store.TabDirect)
	a.store.LoadUsers(ctx)
	a.store.LoadDirectChannels(ctx)

	st := a.store.Snapshot()
	a.reportError(st)
	for _, c := range sortedChannels(st.Channels, models.KindChat, models.KindGroup) {
		info := store.ChannelDisplayInfo(c, st.Users)
		marker := "@"
		if info.IsGroup {
			marker = "+"
		}
		line := fmt.Sprintf("  #%d  %s%s", c.ID, marker, info.Name)
		if c.UnreadCount > 0 {
			line += fmt.Sprintf("  (%d unread)", c.UnreadCount)
		}
		fmt.Println(line)
	}
	return nil
}

// Users lists the contact directory with presence markers.
func (a *App) Users(ctx context.Context) error {
	a.store.LoadUsers(ctx)

	st := a.store.Snapshot()
	a.reportError(st)

	users := make([]*models.User, 0, len(st.Users))
	for _, u := range st.Users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })

	for _, u := range users {
		marker := " "
		if u.IsOnline {
			marker = "*"
		}
		fmt.Printf("  %s %s <%s>\n", marker, u.Name, u.Email)
	}
	return nil
}

// Recent shows the newest messages across all channels.
func (a *App) Recent(ctx context.Context) error {
	a.store.SetCurrentTab(store.TabRecent)
	a.store.LoadRecentMessages(ctx)

	st := a.store.Snapshot()
	a.reportError(st)
	for _, m := range st.RecentMessages {
		a.printMessage(st, m, true)
	}
	return nil
}

// Starred shows starred messages from the loaded channels.
func (a *App) Starred(ctx context.Context) error {
	a.store.SetCurrentTab(store.TabStarred)

	st := a.store.Snapshot()
	for _, m := range a.store.StarredMessages() {
		a.printMessage(st, m, true)
	}
	return nil
}

// Open switches into a channel and shows its history, oldest first so the
// newest message ends up next to the prompt.
func (a *App) Open(ctx context.Context, arg string) error {
	channelID, err := strconv.Atoi(arg)
	if err != nil {
		fmt.Println("Channel id must be a number.")
		return err
	}

	a.store.SetCurrentChannel(ctx, channelID)
	a.store.LoadMessages(ctx, channelID)

	st := a.store.Snapshot()
	a.reportError(st)
	list := st.Messages[channelID]
	for i := len(list) - 1; i >= 0; i-- {
		a.printMessage(st, list[i], false)
	}
	return nil
}

// Send posts to the currently open channel.
func (a *App) Send(ctx context.Context, text string) error {
	st := a.store.Snapshot()
	if st.CurrentChannelID == 0 {
		fmt.Println("Open a channel first: open <id>")
		return nil
	}

	a.store.SendMessage(ctx, st.CurrentChannelID, text)
	a.reportError(a.store.Snapshot())
	return nil
}

// Back closes the current channel.
func (a *App) Back(ctx context.Context) error {
	a.store.SetCurrentChannel(ctx, 0)
	return nil
}

func (a *App) reportError(st store.State) {
	if st.LastError != "" {
		fmt.Println(st.LastError)
	}
}

func (a *App) printMessage(st store.State, m *models.Message, withChannel bool) {
	author := "unknown"
	if u, ok := st.Users[m.AuthorID]; ok {
		author = u.Name
	}
	star := " "
	if m.IsStarred {
		star = "*"
	}
	prefix := ""
	if withChannel {
		prefix = fmt.Sprintf("#%d ", m.ChannelID)
	}
	fmt.Printf("  %s%s %s [%s]: %s\n",
		prefix, star, m.CreatedAt.Local().Format("2006-01-02 15:04"), author, m.Content)
}

func sortedChannels(channels map[int]*models.Channel, kinds ...models.ChannelKind) []*models.Channel {
	want := make(map[models.ChannelKind]struct{}, len(kinds))
	for _, k := range kinds {
		want[k] = struct{}{}
	}

	out := make([]*models.Channel, 0, len(channels))
	for _, c := range channels {
		if _, ok := want[c.Kind]; ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

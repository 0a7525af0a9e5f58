// Package store orchestrates the cache-then-fetch data flow: every
// collection load publishes cached data immediately, refetches from the
// gateway, writes the fresh result through the cache and overwrites the
// in-memory state. Live-update events re-enter the same reconciliation
// point.
//
// Gateway failures never propagate past the store: they surface as a
// human-readable message on the state's LastError field, and previously
// published cached data stays visible. Cache failures are swallowed — a
// load degrades to network-only.
package store

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"

	"github.com/godiscuss/godiscuss/internal/client/cache"
	"github.com/godiscuss/godiscuss/internal/client/models"
	"github.com/godiscuss/godiscuss/internal/common"
	"github.com/godiscuss/godiscuss/internal/logging"
)

// Tab is the client's current navigation tab.
type Tab string

const (
	TabInbox    Tab = "inbox"
	TabRecent   Tab = "recent"
	TabStarred  Tab = "starred"
	TabChannels Tab = "channels"
	TabDirect   Tab = "direct"
)

// messagePageSize bounds per-channel history fetches.
const messagePageSize = 100

// recentPageSize bounds the flat recent-messages feed.
const recentPageSize = 20

// Gateway is the remote API surface the store consumes.
type Gateway interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	ListChannels(ctx context.Context) ([]*models.Channel, error)
	ListDirectChannels(ctx context.Context) ([]*models.Channel, error)
	ListMessages(ctx context.Context, channelID, limit int) ([]*models.Message, error)
	ListRecentMessages(ctx context.Context, limit, offset int) ([]*models.Message, error)
	SendMessage(ctx context.Context, channelID int, content string) (*models.Message, error)
}

// State is the renderable projection. Maps and slices in a snapshot are
// copies; readers never observe in-place mutation.
type State struct {
	CurrentTab       Tab
	CurrentChannelID int

	Users          map[int]*models.User
	Channels       map[int]*models.Channel
	Messages       map[int][]*models.Message
	RecentMessages []*models.Message

	IsLoading bool
	LastError string
	IsOffline bool
	IsLive    bool
}

// Store owns the in-memory projections. The cache is a write-through
// shadow: read once per collection during the optimistic phase, written on
// every successful fetch, never consulted again within a session.
type Store struct {
	gw    Gateway
	cache *cache.Store
	log   logging.Logger

	mu    sync.Mutex
	state State

	// Per-collection generation counters. A fetch completion older than the
	// newest completed generation for its key is discarded, so a slow stale
	// response cannot overwrite a newer one.
	seq       map[string]uint64
	completed map[string]uint64

	subs []func()
}

func New(gw Gateway, c *cache.Store, log logging.Logger) *Store {
	return &Store{
		gw:    gw,
		cache: c,
		log:   log,
		state: State{
			CurrentTab: TabInbox,
			Users:      map[int]*models.User{},
			Channels:   map[int]*models.Channel{},
			Messages:   map[int][]*models.Message{},
		},
		seq:       map[string]uint64{},
		completed: map[string]uint64{},
	}
}

// Subscribe registers fn to run after every state publish.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Snapshot returns a copy of the current state safe for concurrent reads.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	st := s.state
	st.Users = make(map[int]*models.User, len(s.state.Users))
	for k, v := range s.state.Users {
		st.Users[k] = v
	}
	st.Channels = make(map[int]*models.Channel, len(s.state.Channels))
	for k, v := range s.state.Channels {
		st.Channels[k] = v
	}
	st.Messages = make(map[int][]*models.Message, len(s.state.Messages))
	for k, v := range s.state.Messages {
		st.Messages[k] = append([]*models.Message(nil), v...)
	}
	st.RecentMessages = append([]*models.Message(nil), s.state.RecentMessages...)
	return st
}

// publish runs the mutation under the lock and then notifies subscribers.
func (s *Store) publish(mutate func(*State)) {
	s.mu.Lock()
	mutate(&s.state)
	subs := append(([]func())(nil), s.subs...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// beginLoad starts a generation for a collection key, raises the loading
// flag and clears the previous error.
func (s *Store) beginLoad(key string) uint64 {
	s.mu.Lock()
	s.seq[key]++
	gen := s.seq[key]
	s.mu.Unlock()

	s.publish(func(st *State) {
		st.IsLoading = true
		st.LastError = ""
	})
	return gen
}

// tryComplete marks gen as completed for key. It reports false when a newer
// generation already completed, in which case the caller must discard its
// result.
func (s *Store) tryComplete(key string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen <= s.completed[key] {
		return false
	}
	s.completed[key] = gen
	return true
}

// failLoad records a fetch failure. The previously published cached state
// stays visible; the store never reverts a collection to empty. An
// unreachable server additionally flips the offline flag, which the next
// successful fetch clears.
func (s *Store) failLoad(key string, gen uint64, err error) {
	if !s.tryComplete(key, gen) {
		return
	}
	msg := humanMessage(err)
	offline := errors.Is(err, common.ErrServerUnreachable)
	s.publish(func(st *State) {
		st.IsLoading = false
		st.LastError = msg
		if offline {
			st.IsOffline = true
		}
	})
}

func humanMessage(err error) string {
	switch {
	case errors.Is(err, common.ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.Is(err, common.ErrDatabaseNotFound):
		return "Database not found. Please check the database name."
	case errors.Is(err, common.ErrServerUnreachable):
		return "Server unreachable. Please check the URL."
	case errors.Is(err, common.ErrCorsRejected):
		return "The server does not allow requests from this origin."
	case errors.Is(err, common.ErrNotAuthenticated):
		return "Not authenticated"
	case errors.Is(err, common.ErrSessionExpired):
		return "Session expired, please log in again"
	default:
		return "Request failed: " + err.Error()
	}
}

const (
	keyUsers    = "users"
	keyChannels = "channels"
	keyDirect   = "direct"
	keyRecent   = "recent"
)

func messagesKey(channelID int) string {
	return "messages:" + strconv.Itoa(channelID)
}

// LoadUsers reconciles the user directory.
func (s *Store) LoadUsers(ctx context.Context) {
	gen := s.beginLoad(keyUsers)

	if cached, err := s.cache.Users.GetAll(ctx); err != nil {
		s.log.Debug(ctx, "user cache read failed", "error", err)
	} else if len(cached) > 0 {
		s.publish(func(st *State) { st.Users = usersByID(cached) })
	}

	users, err := s.gw.ListUsers(ctx)
	if err != nil {
		s.failLoad(keyUsers, gen, err)
		return
	}
	if !s.tryComplete(keyUsers, gen) {
		return
	}

	if err := s.cache.Users.PutMany(ctx, users); err != nil {
		s.log.Debug(ctx, "user cache write failed", "error", err)
	}
	s.publish(func(st *State) {
		st.Users = usersByID(users)
		st.IsLoading = false
		st.IsOffline = false
	})
}

// LoadChannels reconciles the broadcast channel list.
func (s *Store) LoadChannels(ctx context.Context) {
	s.loadChannelCollection(ctx, keyChannels,
		func(ctx context.Context) ([]*models.Channel, error) {
			return s.cache.Channels.GetByKinds(ctx, models.KindChannel)
		},
		s.gw.ListChannels)
}

// LoadDirectChannels reconciles direct and group chats.
func (s *Store) LoadDirectChannels(ctx context.Context) {
	s.loadChannelCollection(ctx, keyDirect,
		func(ctx context.Context) ([]*models.Channel, error) {
			return s.cache.Channels.GetByKinds(ctx, models.KindChat, models.KindGroup)
		},
		s.gw.ListDirectChannels)
}

func (s *Store) loadChannelCollection(
	ctx context.Context,
	key string,
	readCache func(context.Context) ([]*models.Channel, error),
	fetch func(context.Context) ([]*models.Channel, error),
) {
	gen := s.beginLoad(key)

	if cached, err := readCache(ctx); err != nil {
		s.log.Debug(ctx, "channel cache read failed", "error", err)
	} else if len(cached) > 0 {
		s.publish(func(st *State) { mergeChannels(st, cached) })
	}

	channels, err := fetch(ctx)
	if err != nil {
		s.failLoad(key, gen, err)
		return
	}
	if !s.tryComplete(key, gen) {
		return
	}

	if err := s.cache.Channels.PutMany(ctx, channels); err != nil {
		s.log.Debug(ctx, "channel cache write failed", "error", err)
	}
	s.publish(func(st *State) {
		mergeChannels(st, channels)
		st.IsLoading = false
		st.IsOffline = false
	})
}

// LoadMessages reconciles one channel's message history, newest first.
func (s *Store) LoadMessages(ctx context.Context, channelID int) {
	key := messagesKey(channelID)
	gen := s.beginLoad(key)

	if cached, err := s.cache.Messages.GetByChannel(ctx, channelID, messagePageSize); err != nil {
		s.log.Debug(ctx, "message cache read failed", "error", err)
	} else if len(cached) > 0 {
		s.publish(func(st *State) { st.Messages[channelID] = cached })
	}

	messages, err := s.gw.ListMessages(ctx, channelID, messagePageSize)
	if err != nil {
		s.failLoad(key, gen, err)
		return
	}
	if !s.tryComplete(key, gen) {
		return
	}

	if err := s.cache.Messages.PutMany(ctx, messages); err != nil {
		s.log.Debug(ctx, "message cache write failed", "error", err)
	}
	s.publish(func(st *State) {
		st.Messages[channelID] = messages
		st.IsLoading = false
		st.IsOffline = false
	})
}

// LoadRecentMessages reconciles the flat cross-channel feed.
func (s *Store) LoadRecentMessages(ctx context.Context) {
	gen := s.beginLoad(keyRecent)

	if cached, err := s.cache.Messages.GetRecent(ctx, recentPageSize); err != nil {
		s.log.Debug(ctx, "recent cache read failed", "error", err)
	} else if len(cached) > 0 {
		s.publish(func(st *State) { st.RecentMessages = cached })
	}

	messages, err := s.gw.ListRecentMessages(ctx, recentPageSize, 0)
	if err != nil {
		s.failLoad(keyRecent, gen, err)
		return
	}
	if !s.tryComplete(keyRecent, gen) {
		return
	}

	if err := s.cache.Messages.PutMany(ctx, messages); err != nil {
		s.log.Debug(ctx, "recent cache write failed", "error", err)
	}
	s.publish(func(st *State) {
		st.RecentMessages = messages
		st.IsLoading = false
		st.IsOffline = false
	})
}

// SendMessage posts through the gateway, then prepends the returned message
// to the channel's list and writes it through the cache. There is no
// optimistic local echo and no rollback: a failed send only sets LastError,
// leaving the composed content for the user to retry.
func (s *Store) SendMessage(ctx context.Context, channelID int, content string) {
	m, err := s.gw.SendMessage(ctx, channelID, content)
	if err != nil {
		msg := humanMessage(err)
		s.publish(func(st *State) { st.LastError = msg })
		return
	}

	if err := s.cache.Messages.PutMany(ctx, []*models.Message{m}); err != nil {
		s.log.Debug(ctx, "message cache write failed", "error", err)
	}
	s.publish(func(st *State) {
		st.Messages[channelID] = append([]*models.Message{m}, st.Messages[channelID]...)
	})
}

// ApplyNewMessage handles a live "new message" event: the message is
// prepended to its channel's list and written through the cache, and the
// channel's unread counter grows unless that channel is currently open.
func (s *Store) ApplyNewMessage(ctx context.Context, m *models.Message) {
	if err := s.cache.Messages.PutMany(ctx, []*models.Message{m}); err != nil {
		s.log.Debug(ctx, "message cache write failed", "error", err)
	}

	var unread int
	s.publish(func(st *State) {
		st.Messages[m.ChannelID] = append([]*models.Message{m}, st.Messages[m.ChannelID]...)
		st.RecentMessages = append([]*models.Message{m}, st.RecentMessages...)
		if m.ChannelID != st.CurrentChannelID {
			if c, ok := st.Channels[m.ChannelID]; ok {
				updated := *c
				updated.UnreadCount++
				st.Channels[m.ChannelID] = &updated
				unread = updated.UnreadCount
			}
		}
	})
	if unread > 0 {
		if err := s.cache.Channels.SetUnreadCount(ctx, m.ChannelID, unread); err != nil {
			s.log.Debug(ctx, "unread cache write failed", "error", err)
		}
	}
}

// ApplyPresence handles a live presence event, patching only the online
// flag of the matching user.
func (s *Store) ApplyPresence(userID int, online bool) {
	s.publish(func(st *State) {
		if u, ok := st.Users[userID]; ok {
			updated := *u
			updated.IsOnline = online
			st.Users[userID] = &updated
		}
	})
}

// SetCurrentTab switches the navigation tab.
func (s *Store) SetCurrentTab(tab Tab) {
	s.publish(func(st *State) { st.CurrentTab = tab })
}

// SetCurrentChannel opens (or with id 0 closes) a channel and resets its
// unread counter.
func (s *Store) SetCurrentChannel(ctx context.Context, channelID int) {
	s.publish(func(st *State) {
		st.CurrentChannelID = channelID
		if c, ok := st.Channels[channelID]; ok && c.UnreadCount != 0 {
			updated := *c
			updated.UnreadCount = 0
			st.Channels[channelID] = &updated
		}
	})
	if channelID != 0 {
		if err := s.cache.Channels.SetUnreadCount(ctx, channelID, 0); err != nil {
			s.log.Debug(ctx, "unread cache write failed", "error", err)
		}
	}
}

// SetOffline flips the offline flag.
func (s *Store) SetOffline(offline bool) {
	s.publish(func(st *State) { st.IsOffline = offline })
}

// SetLive flips the live-connection flag.
func (s *Store) SetLive(live bool) {
	s.publish(func(st *State) { st.IsLive = live })
}

// UnreadTotal sums unread counters across all channels.
func (s *Store) UnreadTotal() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, c := range s.state.Channels {
		total += c.UnreadCount
	}
	return total
}

// StarredMessages returns every starred message across channels, newest
// first.
func (s *Store) StarredMessages() []*models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var starred []*models.Message
	for _, list := range s.state.Messages {
		for _, m := range list {
			if m.IsStarred {
				starred = append(starred, m)
			}
		}
	}
	sort.Slice(starred, func(i, j int) bool {
		return starred[i].CreatedAt.After(starred[j].CreatedAt)
	})
	return starred
}

func usersByID(users []*models.User) map[int]*models.User {
	m := make(map[int]*models.User, len(users))
	for _, u := range users {
		m[u.ID] = u
	}
	return m
}

// mergeChannels overwrites the state's entries for the given channels
// without dropping channels from other kinds.
func mergeChannels(st *State, channels []*models.Channel) {
	for _, c := range channels {
		st.Channels[c.ID] = c
	}
}

// GroupByChannel regroups a flat message feed into per-channel lists,
// preserving feed order within each channel. Every message lands in the
// list keyed by its own ChannelID, so flattening the groups reproduces the
// original ids exactly once.
func GroupByChannel(messages []*models.Message) map[int][]*models.Message {
	grouped := make(map[int][]*models.Message)
	for _, m := range messages {
		grouped[m.ChannelID] = append(grouped[m.ChannelID], m)
	}
	return grouped
}

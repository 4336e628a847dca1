package store

import "github.com/nerimity/nerimity-go/internal/permission"

// Channel is a cached server channel or DM channel.
type Channel struct {
	ID             string
	Name           string
	ServerID       string // empty for DM channels
	Type           ChannelType
	Permissions    uint64
	Order          int
	CategoryID     string
	LastMessagedAt int64
	CreatedAt      int64

	// LastSeen is local-only read state; the bulk snapshot seeds it and
	// notification dismissal advances it.
	LastSeen int64
	// RecipientID is the other participant of a DM channel, back-filled
	// by the inbox store.
	RecipientID string
}

// IsAdminChannel reports whether the channel is marked private, which
// restricts notification visibility to members with admin standing.
func (c *Channel) IsAdminChannel() bool {
	return permission.HasBit(c.Permissions, permission.ChannelPrivate.Bit)
}

// Channels is the keyed cache of all channels across servers and DMs.
type Channels struct {
	root  *Store
	cache map[string]*Channel
}

// AddCache inserts or replaces a channel. LastSeen carries over from a
// previous entry so a resync does not mark everything unread.
func (c *Channels) AddCache(raw RawChannel) {
	tx := c.root.Begin()
	tx.AddChannel(raw)
	tx.Publish("store.channel_added", raw.ID)
	tx.Commit()
}

// Get returns a copy of the cached channel, or nil when absent.
func (c *Channels) Get(id string) *Channel {
	c.root.mu.RLock()
	defer c.root.mu.RUnlock()
	return c.get(id).clone()
}

// Array returns every cached channel.
func (c *Channels) Array() []Channel {
	c.root.mu.RLock()
	defer c.root.mu.RUnlock()
	out := make([]Channel, 0, len(c.cache))
	for _, ch := range c.cache {
		out = append(out, *ch)
	}
	return out
}

// ByServer returns the channels of a server. When hidePrivate is set,
// private channels are omitted unless the viewing account has admin
// standing on the server.
func (c *Channels) ByServer(serverID string, hidePrivate bool) []Channel {
	c.root.mu.RLock()
	defer c.root.mu.RUnlock()

	hideAdminOnly := hidePrivate
	if hidePrivate {
		if self := c.root.Account.self; self != nil && c.root.Members.isAdmin(serverID, self.ID) {
			hideAdminOnly = false
		}
	}

	var out []Channel
	for _, ch := range c.cache {
		if ch.ServerID != serverID {
			continue
		}
		if hideAdminOnly && ch.IsAdminChannel() {
			continue
		}
		out = append(out, *ch)
	}
	return out
}

// NotificationState derives the tri-state unread indicator for a channel.
// Only text channels ever report unread state; private channels require
// the viewer to hold admin standing; a mention counter wins over plain
// unread.
func (c *Channels) NotificationState(channelID string) NotificationState {
	c.root.mu.RLock()
	defer c.root.mu.RUnlock()
	return c.notificationState(c.get(channelID))
}

// notificationState implements NotificationState. Lock must be held.
func (c *Channels) notificationState(ch *Channel) NotificationState {
	if ch == nil {
		return NotificationNone
	}
	if ch.Type != ChannelServerText && ch.Type != ChannelDMText {
		return NotificationNone
	}
	if ch.ServerID != "" && ch.IsAdminChannel() {
		self := c.root.Account.self
		if self == nil || !c.root.Members.isAdmin(ch.ServerID, self.ID) {
			return NotificationNone
		}
	}
	if m := c.root.Mentions.get(ch.ID); m != nil && m.Count > 0 {
		return NotificationMention
	}
	if ch.LastSeen == 0 {
		return NotificationUnread
	}
	if ch.LastMessagedAt > ch.LastSeen {
		return NotificationUnread
	}
	return NotificationNone
}

// get returns the cached channel without copying. Lock must be held.
func (c *Channels) get(id string) *Channel {
	return c.cache[id]
}

func (ch *Channel) clone() *Channel {
	if ch == nil {
		return nil
	}
	c := *ch
	return &c
}

// AddChannel caches a channel, preserving local read state across resyncs.
func (t *Tx) AddChannel(raw RawChannel) {
	prev := t.s.Channels.cache[raw.ID]
	ch := &Channel{
		ID:             raw.ID,
		Name:           raw.Name,
		ServerID:       raw.ServerID,
		Type:           raw.Type,
		Permissions:    raw.Permissions,
		Order:          raw.Order,
		CategoryID:     raw.CategoryID,
		LastMessagedAt: raw.LastMessagedAt,
		CreatedAt:      raw.CreatedAt,
	}
	if prev != nil {
		ch.LastSeen = prev.LastSeen
		ch.RecipientID = prev.RecipientID
	}
	t.s.Channels.cache[raw.ID] = ch
}

// UpdateLastSeen moves the channel's read checkpoint. No-op when absent.
func (t *Tx) UpdateLastSeen(channelID string, lastSeen int64) {
	if ch := t.s.Channels.cache[channelID]; ch != nil {
		ch.LastSeen = lastSeen
	}
}

// UpdateLastMessaged records the newest message timestamp on a channel.
func (t *Tx) UpdateLastMessaged(channelID string, lastMessagedAt int64) {
	if ch := t.s.Channels.cache[channelID]; ch != nil {
		ch.LastMessagedAt = lastMessagedAt
	}
}

// DismissNotification advances the read checkpoint past everything seen so
// far and drops the channel's mention counter.
func (t *Tx) DismissNotification(channelID string) {
	ch := t.s.Channels.cache[channelID]
	if ch != nil {
		seen := ch.LastMessagedAt
		if now := t.s.nowMillis(); now > seen {
			seen = now
		}
		ch.LastSeen = seen + 1
	}
	t.RemoveMention(channelID)
}

// setRecipientID back-fills the DM participant on a channel.
func (t *Tx) setRecipientID(channelID, userID string) {
	if ch := t.s.Channels.cache[channelID]; ch != nil {
		ch.RecipientID = userID
	}
}

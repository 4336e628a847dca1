package store

// InboxItem is a cached DM conversation wrapper, keyed by channel id.
// Channel and recipient are id references resolved through their stores.
type InboxItem struct {
	ID          string
	ChannelID   string
	RecipientID string
	CreatedAt   int64
}

// Inbox caches DM conversations. Inserting one cascades: the recipient
// snapshot is cached, the channel gains its recipientId and the recipient
// gains its inboxChannelId back-reference.
type Inbox struct {
	root  *Store
	cache map[string]*InboxItem
}

// AddCache inserts an inbox item and wires its cross-references.
func (i *Inbox) AddCache(raw RawInboxItem) {
	tx := i.root.Begin()
	tx.AddInboxItem(raw)
	tx.Publish("store.inbox_added", raw.ChannelID)
	tx.Commit()
}

// Get returns a copy of the inbox item for a channel, or nil when absent.
func (i *Inbox) Get(channelID string) *InboxItem {
	i.root.mu.RLock()
	defer i.root.mu.RUnlock()
	item := i.get(channelID)
	if item == nil {
		return nil
	}
	c := *item
	return &c
}

// Array returns every cached inbox item.
func (i *Inbox) Array() []InboxItem {
	i.root.mu.RLock()
	defer i.root.mu.RUnlock()
	out := make([]InboxItem, 0, len(i.cache))
	for _, item := range i.cache {
		out = append(out, *item)
	}
	return out
}

// get returns the cached item without copying. Lock must be held.
func (i *Inbox) get(channelID string) *InboxItem {
	return i.cache[channelID]
}

// AddInboxItem caches a DM wrapper and back-fills both sides of the
// user/channel relation. When the payload embeds the DM channel it is
// cached first so the references resolve.
func (t *Tx) AddInboxItem(raw RawInboxItem) {
	if raw.Channel != nil {
		t.AddChannel(*raw.Channel)
	}
	t.AddUser(raw.Recipient)
	t.setRecipientID(raw.ChannelID, raw.Recipient.ID)
	t.setInboxChannelID(raw.Recipient.ID, raw.ChannelID)
	t.s.Inbox.cache[raw.ChannelID] = &InboxItem{
		ID:          raw.ID,
		ChannelID:   raw.ChannelID,
		RecipientID: raw.Recipient.ID,
		CreatedAt:   raw.CreatedAt,
	}
}

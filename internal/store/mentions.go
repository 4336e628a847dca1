package store

// Mentions caches per-channel unread mention counters.
type Mentions struct {
	root  *Store
	cache map[string]*Mention
}

// Get returns a copy of the mention counter for a channel, or nil.
func (m *Mentions) Get(channelID string) *Mention {
	m.root.mu.RLock()
	defer m.root.mu.RUnlock()
	mention := m.get(channelID)
	if mention == nil {
		return nil
	}
	c := *mention
	return &c
}

// Array returns every cached mention counter.
func (m *Mentions) Array() []Mention {
	m.root.mu.RLock()
	defer m.root.mu.RUnlock()
	out := make([]Mention, 0, len(m.cache))
	for _, mention := range m.cache {
		out = append(out, *mention)
	}
	return out
}

// Set stores a mention counter.
func (m *Mentions) Set(mention Mention) {
	tx := m.root.Begin()
	tx.SetMention(mention)
	tx.Publish("store.mention_updated", mention.ChannelID)
	tx.Commit()
}

// Remove drops a channel's mention counter.
func (m *Mentions) Remove(channelID string) {
	tx := m.root.Begin()
	tx.RemoveMention(channelID)
	tx.Publish("store.mention_updated", channelID)
	tx.Commit()
}

// DMCount returns the unread mention count for a user's DM conversation.
func (m *Mentions) DMCount(userID string) int {
	m.root.mu.RLock()
	defer m.root.mu.RUnlock()
	for _, mention := range m.cache {
		if mention.UserID != userID {
			continue
		}
		ch := m.root.Channels.get(mention.ChannelID)
		if ch == nil || ch.RecipientID != "" {
			return mention.Count
		}
	}
	return 0
}

// get returns the cached counter without copying. Lock must be held.
func (m *Mentions) get(channelID string) *Mention {
	return m.cache[channelID]
}

// SetMention stores a mention counter.
func (t *Tx) SetMention(mention Mention) {
	m := mention
	t.s.Mentions.cache[mention.ChannelID] = &m
}

// IncrementMention bumps (or creates) a channel's mention counter.
func (t *Tx) IncrementMention(channelID, userID, serverID string) {
	if existing := t.s.Mentions.cache[channelID]; existing != nil {
		existing.Count++
		return
	}
	t.s.Mentions.cache[channelID] = &Mention{
		ChannelID: channelID,
		UserID:    userID,
		ServerID:  serverID,
		Count:     1,
	}
}

// RemoveMention drops a channel's mention counter.
func (t *Tx) RemoveMention(channelID string) {
	delete(t.s.Mentions.cache, channelID)
}

// Mention returns a copy of the channel's counter inside a batch, or nil.
func (t *Tx) Mention(channelID string) *Mention {
	mention := t.s.Mentions.cache[channelID]
	if mention == nil {
		return nil
	}
	c := *mention
	return &c
}

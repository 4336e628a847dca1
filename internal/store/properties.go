package store

// ChannelProperty is local-only per-channel compose state: the draft text
// and a pending attachment. Never synced to the server.
type ChannelProperty struct {
	Content    string
	Attachment *FileAttach
}

// ChannelProperties caches compose state per channel.
type ChannelProperties struct {
	root  *Store
	cache map[string]*ChannelProperty
}

// Get returns a copy of the compose state for a channel, or nil.
func (p *ChannelProperties) Get(channelID string) *ChannelProperty {
	p.root.mu.RLock()
	defer p.root.mu.RUnlock()
	prop := p.cache[channelID]
	if prop == nil {
		return nil
	}
	c := *prop
	if prop.Attachment != nil {
		a := *prop.Attachment
		c.Attachment = &a
	}
	return &c
}

// SetContent stores the draft text for a channel.
func (p *ChannelProperties) SetContent(channelID, content string) {
	p.root.mu.Lock()
	p.ensure(channelID).Content = content
	p.root.mu.Unlock()
}

// SetAttachment stores (or clears, with nil) the pending attachment.
func (p *ChannelProperties) SetAttachment(channelID string, attachment *FileAttach) {
	p.root.mu.Lock()
	p.ensure(channelID).Attachment = attachment
	p.root.mu.Unlock()
}

// ensure returns the channel's compose state, creating it when missing.
// Lock must be held.
func (p *ChannelProperties) ensure(channelID string) *ChannelProperty {
	prop := p.cache[channelID]
	if prop == nil {
		prop = &ChannelProperty{}
		p.cache[channelID] = prop
	}
	return prop
}

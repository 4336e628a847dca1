package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Message is a cached message. SentStatus is local-only state for
// optimistic entries awaiting (or denied) server confirmation.
type Message struct {
	RawMessage
	SentStatus SentStatus
}

// MessagePatch is a partial message update. Nil fields are left untouched.
type MessagePatch struct {
	Content    *string
	EditedAt   *int64
	SentStatus *SentStatus
}

// Messages caches message pages per channel, newest first (index 0 is the
// most recent message).
type Messages struct {
	root  *Store
	svc   MessageService
	cache map[string][]Message
}

// DefaultFetchLimit is the page size used when fetching channel history.
const DefaultFetchLimit = 50

// uploadingSuffix is appended to optimistic content while an attachment
// upload is pending.
const uploadingSuffix = "\nUploading %s..."

// ChannelMessages returns a copy of the cached page for a channel, or nil
// when the channel has not been fetched yet.
func (m *Messages) ChannelMessages(channelID string) []Message {
	m.root.mu.RLock()
	defer m.root.mu.RUnlock()
	msgs, ok := m.cache[channelID]
	if !ok {
		return nil
	}
	return append([]Message(nil), msgs...)
}

// FetchAndCache loads the latest page for a channel. Cached pages are kept
// unless force is set. The server returns oldest-first; the cache stores
// newest-first.
func (m *Messages) FetchAndCache(ctx context.Context, channelID string, force bool) error {
	m.root.mu.RLock()
	_, cached := m.cache[channelID]
	m.root.mu.RUnlock()
	if cached && !force {
		return nil
	}

	raw, err := m.svc.FetchMessages(ctx, channelID, FetchMessagesOptions{Limit: DefaultFetchLimit})
	if err != nil {
		return err
	}

	tx := m.root.Begin()
	tx.SetMessages(channelID, reversed(raw))
	tx.Publish("store.messages_fetched", channelID)
	tx.Commit()
	return nil
}

// LoadMore extends a cached page backwards in time, fetching the messages
// before the oldest cached one. No-op when the channel page is not cached
// yet or is empty.
func (m *Messages) LoadMore(ctx context.Context, channelID string) error {
	m.root.mu.RLock()
	page := m.cache[channelID]
	m.root.mu.RUnlock()
	if len(page) == 0 {
		return nil
	}
	oldest := page[len(page)-1].ID

	raw, err := m.svc.FetchMessages(ctx, channelID, FetchMessagesOptions{
		Limit:  DefaultFetchLimit,
		Before: oldest,
	})
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}

	tx := m.root.Begin()
	// Re-read the page under the write lock; it may have grown at the
	// head while the fetch was in flight.
	page = append(append([]Message(nil), m.cache[channelID]...), reversed(raw)...)
	tx.SetMessages(channelID, page)
	tx.Publish("store.messages_fetched", channelID)
	tx.Commit()
	return nil
}

// reversed converts a server page (oldest first) into cache order (newest
// first).
func reversed(raw []RawMessage) []Message {
	msgs := make([]Message, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		msgs = append(msgs, Message{RawMessage: raw[i]})
	}
	return msgs
}

// PostMessage sends a message through the optimistic write path: a
// provisional entry appears at the head of the channel page immediately,
// tagged with the gateway session id so the realtime echo is skipped. On
// confirmation the provisional entry is replaced in place; on failure it
// stays cached flagged failed, and the send error is returned.
func (m *Messages) PostMessage(ctx context.Context, channelID, content string, attachment *FileAttach) error {
	self := m.root.Account.SelfUser()
	if self == nil {
		return fmt.Errorf("post message: not logged in")
	}

	localContent := content
	if attachment != nil {
		localContent = content + fmt.Sprintf(uploadingSuffix, attachment.Name)
	}
	local := Message{
		RawMessage: RawMessage{
			ID:             uuid.NewString(),
			ChannelID:      channelID,
			Content:        localContent,
			Type:           MessageContent,
			CreatedAt:      m.root.nowMillis(),
			CreatedBy:      self.RawUser(),
			Reactions:      []RawReaction{},
			QuotedMessages: []RawMessage{},
		},
		SentStatus: SentStatusSending,
	}

	tx := m.root.Begin()
	tx.PrependMessage(channelID, local)
	tx.Publish("store.message_created", messageRef{channelID, local.ID})
	tx.Commit()

	raw, err := m.svc.PostMessage(ctx, channelID, content, m.root.socketID(), attachment)

	tx = m.root.Begin()
	if err != nil || raw == nil {
		failed := SentStatusFailed
		tx.UpdateMessage(channelID, local.ID, MessagePatch{SentStatus: &failed})
		tx.Publish("store.message_send_failed", messageRef{channelID, local.ID})
		tx.Commit()
		if err == nil {
			err = fmt.Errorf("post message: empty response")
		}
		return err
	}
	tx.ReplaceMessage(channelID, local.ID, Message{RawMessage: *raw})
	tx.Publish("store.message_send_ack", messageRef{channelID, raw.ID})
	tx.Commit()
	return nil
}

// messageRef identifies a message in bus event payloads.
type messageRef struct {
	ChannelID string
	MessageID string
}

// SetMessages replaces a channel's cached page. The slice must already be
// newest-first.
func (t *Tx) SetMessages(channelID string, msgs []Message) {
	t.s.Messages.cache[channelID] = msgs
}

// AddMessage prepends a message to a channel's page, only when the page is
// cached; uncached channels pick the message up on their next fetch.
func (t *Tx) AddMessage(channelID string, msg Message) {
	msgs, ok := t.s.Messages.cache[channelID]
	if !ok {
		return
	}
	t.s.Messages.cache[channelID] = append([]Message{msg}, msgs...)
}

// PrependMessage prepends a message, creating the page when missing. Used
// by the optimistic write path, which must always surface its entry.
func (t *Tx) PrependMessage(channelID string, msg Message) {
	t.s.Messages.cache[channelID] = append([]Message{msg}, t.s.Messages.cache[channelID]...)
}

// UpdateMessage applies a partial update in place. No-op when the message
// is not cached.
func (t *Tx) UpdateMessage(channelID, messageID string, patch MessagePatch) {
	msgs := t.s.Messages.cache[channelID]
	for i := range msgs {
		if msgs[i].ID != messageID {
			continue
		}
		if patch.Content != nil {
			msgs[i].Content = *patch.Content
		}
		if patch.EditedAt != nil {
			msgs[i].EditedAt = *patch.EditedAt
		}
		if patch.SentStatus != nil {
			msgs[i].SentStatus = *patch.SentStatus
		}
		return
	}
}

// ReplaceMessage swaps a cached message wholesale, keeping its position.
// Used to reconcile a provisional entry with the server's canonical one.
func (t *Tx) ReplaceMessage(channelID, messageID string, msg Message) {
	msgs := t.s.Messages.cache[channelID]
	for i := range msgs {
		if msgs[i].ID == messageID {
			msgs[i] = msg
			return
		}
	}
}

// DeleteMessage removes a message from a channel's page. No-op when not
// cached.
func (t *Tx) DeleteMessage(channelID, messageID string) {
	msgs := t.s.Messages.cache[channelID]
	for i := range msgs {
		if msgs[i].ID == messageID {
			t.s.Messages.cache[channelID] = append(msgs[:i], msgs[i+1:]...)
			return
		}
	}
}

// Package sync applies realtime gateway events to the entity store. Each
// inbound event becomes exactly one store transaction, so observers only
// ever see fully applied events.
package sync

import (
	"context"

	"go.uber.org/zap"

	"github.com/nerimity/nerimity-go/internal/bus"
	"github.com/nerimity/nerimity-go/internal/gateway"
	"github.com/nerimity/nerimity-go/internal/store"
)

// Engine subscribes to "gateway." events on the bus and mutates the store.
type Engine struct {
	store  *store.Store
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc

	// socketID reports this client's gateway session id, used to skip
	// the realtime echo of its own optimistic sends.
	socketID func() string
	// persistUserID stores the authenticated user id so the CLI can
	// report the session's identity without a connection.
	persistUserID func(userID string) error
}

// NewEngine creates a sync engine. persistUserID may be nil.
func NewEngine(st *store.Store, b *bus.Bus, socketID func() string, persistUserID func(string) error, logger *zap.Logger) *Engine {
	if socketID == nil {
		socketID = func() string { return "" }
	}
	return &Engine{
		store:         st,
		bus:           b,
		logger:        logger,
		socketID:      socketID,
		persistUserID: persistUserID,
	}
}

// Start subscribes to inbound gateway events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	ch, unsub := e.bus.Subscribe("gateway.", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case "gateway.authenticated":
		payload, ok := evt.Payload.(gateway.AuthenticatedPayload)
		if !ok {
			return
		}
		e.handleAuthenticated(payload)
	case "gateway.message_created":
		payload, ok := evt.Payload.(gateway.MessageCreatedPayload)
		if !ok {
			return
		}
		e.handleMessageCreated(payload)
	case "gateway.message_updated":
		payload, ok := evt.Payload.(gateway.MessageUpdatedPayload)
		if !ok {
			return
		}
		e.handleMessageUpdated(payload)
	case "gateway.message_deleted":
		payload, ok := evt.Payload.(gateway.MessageDeletedPayload)
		if !ok {
			return
		}
		e.handleMessageDeleted(payload)
	case "gateway.notification_dismissed":
		payload, ok := evt.Payload.(gateway.NotificationDismissedPayload)
		if !ok {
			return
		}
		e.handleNotificationDismissed(payload)
	case "gateway.inbox_opened":
		payload, ok := evt.Payload.(gateway.InboxOpenedPayload)
		if !ok {
			return
		}
		e.handleInboxOpened(payload)
	case "gateway.presence_update":
		payload, ok := evt.Payload.(gateway.PresenceUpdatePayload)
		if !ok {
			return
		}
		e.handlePresenceUpdate(payload)
	case "gateway.disconnected":
		e.logger.Info("gateway disconnected")
	}
}

// handleAuthenticated warms the cache from the bulk snapshot in one
// transaction, then persists the account identity.
func (e *Engine) handleAuthenticated(payload gateway.AuthenticatedPayload) {
	tx := e.store.Begin()
	tx.SetSelf(payload.User)
	for _, srv := range payload.Servers {
		tx.AddServer(srv)
	}
	for _, role := range payload.ServerRoles {
		tx.AddRole(role)
	}
	for _, ch := range payload.ServerChannels {
		tx.AddChannel(ch)
	}
	for _, member := range payload.ServerMembers {
		tx.AddMember(member)
	}
	for _, friend := range payload.Friends {
		tx.AddFriend(friend)
	}
	for _, item := range payload.Inbox {
		tx.AddInboxItem(item)
	}
	for _, settings := range payload.ServerSettings {
		tx.SetServerSettings(settings)
	}
	for _, presence := range payload.Presences {
		status := presence.Status
		patch := store.PresencePatch{Status: &status}
		if presence.Custom != "" {
			custom := presence.Custom
			patch.Custom = &custom
		}
		tx.UpdatePresence(presence.UserID, patch)
	}
	for _, mention := range payload.MessageMentions {
		tx.AddUser(mention.MentionedBy)
		tx.SetMention(store.Mention{
			ChannelID: mention.ChannelID,
			UserID:    mention.MentionedBy.ID,
			ServerID:  mention.ServerID,
			Count:     mention.Count,
		})
	}
	for channelID, lastSeen := range payload.LastSeenServerChannelIDs {
		tx.UpdateLastSeen(channelID, lastSeen)
	}
	tx.Publish("store.authenticated", payload.User.ID)
	tx.Commit()

	e.logger.Info("cache warmed",
		zap.String("user_id", payload.User.ID),
		zap.Int("servers", len(payload.Servers)),
		zap.Int("channels", len(payload.ServerChannels)),
		zap.Int("friends", len(payload.Friends)))

	if e.persistUserID != nil {
		if err := e.persistUserID(payload.User.ID); err != nil {
			e.logger.Error("failed to persist user id", zap.Error(err))
		}
	}
}

// handleMessageCreated applies a realtime message: skips this client's
// own echo, moves the channel activity markers, counts mentions and
// prepends the message to an already-fetched page.
func (e *Engine) handleMessageCreated(payload gateway.MessageCreatedPayload) {
	if payload.SocketID != "" && payload.SocketID == e.socketID() {
		return
	}
	msg := payload.Message

	tx := e.store.Begin()
	defer tx.Commit()

	tx.AddUser(msg.CreatedBy)
	tx.UpdateLastMessaged(msg.ChannelID, msg.CreatedAt)

	self := tx.SelfUser()
	fromSelf := self != nil && msg.CreatedBy.ID == self.ID
	if fromSelf {
		tx.UpdateLastSeen(msg.ChannelID, msg.CreatedAt+1)
	} else if e.shouldCountMention(tx, msg, self) {
		ch := tx.Channel(msg.ChannelID)
		serverID := ""
		if ch != nil {
			serverID = ch.ServerID
		}
		tx.IncrementMention(msg.ChannelID, msg.CreatedBy.ID, serverID)
	}

	tx.AddMessage(msg.ChannelID, store.Message{RawMessage: msg})
	tx.Publish("store.message_created", msg.ChannelID)
}

// shouldCountMention reports whether a message bumps the channel's
// mention counter: DMs always count, server messages only when they
// mention the account, and muted servers never count.
func (e *Engine) shouldCountMention(tx *store.Tx, msg store.RawMessage, self *store.SelfUser) bool {
	ch := tx.Channel(msg.ChannelID)
	isDM := ch != nil && ch.ServerID == ""

	mentionsSelf := false
	if self != nil {
		for _, m := range msg.Mentions {
			if m.ID == self.ID {
				mentionsSelf = true
				break
			}
		}
	}
	if !isDM && !mentionsSelf {
		return false
	}
	if ch != nil && ch.ServerID != "" {
		if settings := tx.ServerSettings(ch.ServerID); settings != nil &&
			settings.NotificationPingMode == store.PingMute {
			return false
		}
	}
	return true
}

func (e *Engine) handleMessageUpdated(payload gateway.MessageUpdatedPayload) {
	tx := e.store.Begin()
	content := payload.Content
	editedAt := payload.EditedAt
	tx.UpdateMessage(payload.ChannelID, payload.MessageID, store.MessagePatch{
		Content:  &content,
		EditedAt: &editedAt,
	})
	tx.Publish("store.message_updated", payload.ChannelID)
	tx.Commit()
}

func (e *Engine) handleMessageDeleted(payload gateway.MessageDeletedPayload) {
	tx := e.store.Begin()
	tx.DeleteMessage(payload.ChannelID, payload.MessageID)
	tx.Publish("store.message_deleted", payload.ChannelID)
	tx.Commit()
}

func (e *Engine) handleNotificationDismissed(payload gateway.NotificationDismissedPayload) {
	tx := e.store.Begin()
	tx.DismissNotification(payload.ChannelID)
	tx.Publish("store.notification_dismissed", payload.ChannelID)
	tx.Commit()
}

func (e *Engine) handleInboxOpened(payload gateway.InboxOpenedPayload) {
	tx := e.store.Begin()
	tx.AddInboxItem(payload)
	tx.Publish("store.inbox_opened", payload.ChannelID)
	tx.Commit()
}

func (e *Engine) handlePresenceUpdate(payload gateway.PresenceUpdatePayload) {
	tx := e.store.Begin()
	tx.UpdatePresence(payload.UserID, payload.Patch())
	tx.Publish("store.presence_update", payload.UserID)
	tx.Commit()
}

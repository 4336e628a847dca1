package gateway

import (
	"bytes"

	"github.com/goccy/go-json"

	"github.com/nerimity/nerimity-go/internal/store"
)

// Wire event names. Inbound names match the server's realtime contract;
// EventAuthenticate and EventNotificationDismiss are client-to-server.
const (
	EventHello                 = "hello"
	EventAuthenticate          = "user:authenticate"
	EventAuthenticated         = "user:authenticated"
	EventMessageCreated        = "message:created"
	EventMessageUpdated        = "message:updated"
	EventMessageDeleted        = "message:deleted"
	EventNotificationDismissed = "notification:dismissed"
	EventNotificationDismiss   = "notification:dismiss"
	EventInboxOpened           = "inbox:opened"
	EventPresenceUpdate        = "user:presence_update"
)

// frame is the wire envelope: an event name plus its payload.
type frame struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// helloPayload opens every connection and carries the socket session id
// used to tag outbound messages.
type helloPayload struct {
	SID string `json:"sid"`
}

// authenticatePayload is the client's first emit after hello.
type authenticatePayload struct {
	Token string `json:"token"`
}

// UserPresence is a user's presence inside the bulk snapshot.
type UserPresence struct {
	UserID string           `json:"userId"`
	Status store.UserStatus `json:"status"`
	Custom string           `json:"custom,omitempty"`
}

// MessageMention is a pending mention counter inside the bulk snapshot.
type MessageMention struct {
	MentionedBy store.RawUser `json:"mentionedBy"`
	ChannelID   string        `json:"channelId"`
	ServerID    string        `json:"serverId,omitempty"`
	Count       int           `json:"count"`
}

// AuthenticatedPayload is the bulk state snapshot delivered once the
// server accepts the token. It carries everything needed to warm the
// cache in one transaction.
type AuthenticatedPayload struct {
	User                     store.RawSelfUser         `json:"user"`
	Servers                  []store.RawServer         `json:"servers"`
	ServerChannels           []store.RawChannel        `json:"serverChannels"`
	ServerMembers            []store.RawServerMember   `json:"serverMembers"`
	ServerRoles              []store.RawServerRole     `json:"serverRoles"`
	Presences                []UserPresence            `json:"presences"`
	Friends                  []store.RawFriend         `json:"friends"`
	Inbox                    []store.RawInboxItem      `json:"inbox"`
	ServerSettings           []store.RawServerSettings `json:"serverSettings"`
	MessageMentions          []MessageMention          `json:"messageMentions"`
	LastSeenServerChannelIDs map[string]int64          `json:"lastSeenServerChannelIds"`
}

// MessageCreatedPayload wraps a new message with the socket session id of
// the sender's connection, when the sender tagged the create call.
type MessageCreatedPayload struct {
	SocketID string           `json:"socketId,omitempty"`
	Message  store.RawMessage `json:"message"`
}

// MessageUpdatedPayload carries the changed fields of an edited message.
type MessageUpdatedPayload struct {
	ChannelID string `json:"channelId"`
	MessageID string `json:"messageId"`
	Content   string `json:"content"`
	EditedAt  int64  `json:"editedAt"`
}

// MessageDeletedPayload identifies a removed message.
type MessageDeletedPayload struct {
	ChannelID string `json:"channelId"`
	MessageID string `json:"messageId"`
}

// InboxOpenedPayload announces a DM conversation opened from another
// device; it carries the full inbox item including its channel.
type InboxOpenedPayload = store.RawInboxItem

// NotificationDismissedPayload marks a channel read across devices.
type NotificationDismissedPayload struct {
	ChannelID string `json:"channelId"`
}

// PresenceUpdatePayload is a partial presence change. A missing custom
// field leaves the text untouched; an explicit null clears it, so the
// two cases are separated during decoding.
type PresenceUpdatePayload struct {
	UserID      string
	Status      *store.UserStatus
	Custom      *string
	ClearCustom bool
}

var jsonNull = []byte("null")

func (p *PresenceUpdatePayload) UnmarshalJSON(data []byte) error {
	var raw struct {
		UserID string            `json:"userId"`
		Status *store.UserStatus `json:"status"`
		Custom json.RawMessage   `json:"custom"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.UserID = raw.UserID
	p.Status = raw.Status
	p.Custom = nil
	p.ClearCustom = false
	if raw.Custom != nil {
		if bytes.Equal(bytes.TrimSpace(raw.Custom), jsonNull) {
			p.ClearCustom = true
		} else {
			var custom string
			if err := json.Unmarshal(raw.Custom, &custom); err != nil {
				return err
			}
			p.Custom = &custom
		}
	}
	return nil
}

// Patch converts the payload into the store's presence patch form.
func (p *PresenceUpdatePayload) Patch() store.PresencePatch {
	return store.PresencePatch{
		Status:      p.Status,
		Custom:      p.Custom,
		ClearCustom: p.ClearCustom,
	}
}

package store

// Wire-level entity payloads as delivered by the REST API and the gateway.
// Field names follow the service's JSON contract.

// ChannelType discriminates channel kinds.
type ChannelType int

const (
	ChannelDMText     ChannelType = 0
	ChannelServerText ChannelType = 1
	ChannelCategory   ChannelType = 2
)

// UserStatus is a presence status.
type UserStatus int

const (
	StatusOffline UserStatus = 0
	StatusOnline  UserStatus = 1
	StatusLTP     UserStatus = 2 // looking to play
	StatusAFK     UserStatus = 3
	StatusDND     UserStatus = 4
)

// MessageType discriminates content messages from system events.
type MessageType int

const (
	MessageContent     MessageType = 0
	MessageJoinServer  MessageType = 1
	MessageLeaveServer MessageType = 2
	MessageKickUser    MessageType = 3
	MessageBanUser     MessageType = 4
)

// FriendStatus is the state of a friend relation, keyed by recipient.
type FriendStatus int

const (
	FriendSent     FriendStatus = 0
	FriendPending  FriendStatus = 1
	FriendAccepted FriendStatus = 2
	FriendBlocked  FriendStatus = 3
)

// NotificationPingMode is the per-server notification setting.
type NotificationPingMode int

const (
	PingAll          NotificationPingMode = 0
	PingMentionsOnly NotificationPingMode = 1
	PingMute         NotificationPingMode = 2
)

// SentStatus is the local-only delivery state of an optimistic message.
type SentStatus int

const (
	SentStatusNone    SentStatus = 0
	SentStatusSending SentStatus = 1
	SentStatusFailed  SentStatus = 2
)

// NotificationState is the derived tri-state unread indicator of a channel.
type NotificationState int

const (
	NotificationNone NotificationState = iota
	NotificationUnread
	NotificationMention
)

// RawUser is a user snapshot embedded in messages, friends and members.
type RawUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Tag      string `json:"tag"`
	HexColor string `json:"hexColor"`
	Avatar   string `json:"avatar,omitempty"`
	Badges   uint64 `json:"badges,omitempty"`
}

// RawSelfUser is the authenticated account user.
type RawSelfUser struct {
	RawUser
	Email            string   `json:"email"`
	Banner           string   `json:"banner,omitempty"`
	OrderedServerIDs []string `json:"orderedServerIds"`
}

// RawServer is a joined server.
type RawServer struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Avatar        string `json:"avatar,omitempty"`
	HexColor      string `json:"hexColor"`
	DefaultRoleID string `json:"defaultRoleId"`
	CreatedByID   string `json:"createdById"`
	CreatedAt     int64  `json:"createdAt"`
}

// RawChannel is a server channel or DM channel. ServerID is empty for DMs.
type RawChannel struct {
	ID             string      `json:"id"`
	Name           string      `json:"name,omitempty"`
	ServerID       string      `json:"serverId,omitempty"`
	Type           ChannelType `json:"type"`
	Permissions    uint64      `json:"permissions,omitempty"`
	Order          int         `json:"order,omitempty"`
	CategoryID     string      `json:"categoryId,omitempty"`
	LastMessagedAt int64       `json:"lastMessagedAt,omitempty"`
	CreatedAt      int64       `json:"createdAt,omitempty"`
}

// RawServerRole is a role within a server.
type RawServerRole struct {
	ID          string `json:"id"`
	ServerID    string `json:"serverId"`
	Name        string `json:"name"`
	HexColor    string `json:"hexColor"`
	Order       int    `json:"order"`
	Permissions uint64 `json:"permissions"`
	HideRole    bool   `json:"hideRole,omitempty"`
}

// RawServerMember is a server membership with its embedded user snapshot.
type RawServerMember struct {
	ServerID string   `json:"serverId"`
	User     RawUser  `json:"user"`
	RoleIDs  []string `json:"roleIds"`
	JoinedAt int64    `json:"joinedAt,omitempty"`
}

// RawFriend is a friend relation with its embedded recipient snapshot.
type RawFriend struct {
	Status    FriendStatus `json:"status"`
	Recipient RawUser      `json:"recipient"`
	CreatedAt int64        `json:"createdAt,omitempty"`
}

// RawInboxItem is a DM conversation wrapper. Channel is only present on
// open-DM responses and inbox-opened events; bulk snapshots deliver the
// channel separately.
type RawInboxItem struct {
	ID        string      `json:"id"`
	ChannelID string      `json:"channelId"`
	Recipient RawUser     `json:"recipient"`
	Channel   *RawChannel `json:"channel,omitempty"`
	CreatedAt int64       `json:"createdAt,omitempty"`
}

// RawServerSettings is the account's per-server notification settings.
type RawServerSettings struct {
	ServerID             string               `json:"serverId"`
	NotificationPingMode NotificationPingMode `json:"notificationPingMode"`
}

// RawAttachment is an uploaded file reference on a message.
type RawAttachment struct {
	ID     string `json:"id"`
	Path   string `json:"path"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// RawReaction is an aggregated emoji reaction on a message.
type RawReaction struct {
	Name    string `json:"name"`
	EmojiID string `json:"emojiId,omitempty"`
	GIF     bool   `json:"gif,omitempty"`
	Count   int    `json:"count"`
	Reacted bool   `json:"reacted,omitempty"`
}

// RawMessage is a channel message.
type RawMessage struct {
	ID             string          `json:"id"`
	ChannelID      string          `json:"channelId"`
	Content        string          `json:"content,omitempty"`
	Type           MessageType     `json:"type"`
	CreatedAt      int64           `json:"createdAt"`
	EditedAt       int64           `json:"editedAt,omitempty"`
	CreatedBy      RawUser         `json:"createdBy"`
	Mentions       []RawUser       `json:"mentions,omitempty"`
	Attachments    []RawAttachment `json:"attachments,omitempty"`
	Reactions      []RawReaction   `json:"reactions,omitempty"`
	QuotedMessages []RawMessage    `json:"quotedMessages,omitempty"`
}

// Presence is a user's live status.
type Presence struct {
	Status UserStatus `json:"status"`
	Custom string     `json:"custom,omitempty"`
}

// Mention is the per-channel unread mention counter.
type Mention struct {
	ChannelID string `json:"channelId"`
	UserID    string `json:"userId"`
	ServerID  string `json:"serverId,omitempty"`
	Count     int    `json:"count"`
}

// FileAttach is a local file queued for upload with a message.
type FileAttach struct {
	Path string
	Name string
	Mime string
}

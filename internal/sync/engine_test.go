package sync

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nerimity/nerimity-go/internal/bus"
	"github.com/nerimity/nerimity-go/internal/gateway"
	"github.com/nerimity/nerimity-go/internal/store"
)

// testEngine wires an engine to a fresh store without going through the
// bus; handlers are driven directly so tests are synchronous.
func testEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	st := store.New(bus.New(), store.Options{
		SocketID: func() string { return "my-sock" },
	})
	e := NewEngine(st, bus.New(), func() string { return "my-sock" }, nil, zap.NewNop())
	return e, st
}

func authPayload() gateway.AuthenticatedPayload {
	return gateway.AuthenticatedPayload{
		User: store.RawSelfUser{RawUser: store.RawUser{ID: "me", Username: "self"}},
		Servers: []store.RawServer{
			{ID: "srv1", Name: "home", DefaultRoleID: "def", CreatedByID: "owner"},
		},
		ServerRoles: []store.RawServerRole{
			{ID: "def", ServerID: "srv1", Name: "everyone"},
		},
		ServerChannels: []store.RawChannel{
			{ID: "c1", ServerID: "srv1", Type: store.ChannelServerText, LastMessagedAt: 900},
		},
		ServerMembers: []store.RawServerMember{
			{ServerID: "srv1", User: store.RawUser{ID: "u1", Username: "alice"}},
		},
		Friends: []store.RawFriend{
			{Status: store.FriendAccepted, Recipient: store.RawUser{ID: "u2", Username: "bob"}},
		},
		Inbox: []store.RawInboxItem{
			{ID: "i1", ChannelID: "dm1", Recipient: store.RawUser{ID: "u2"},
				Channel: &store.RawChannel{ID: "dm1", Type: store.ChannelDMText}},
		},
		ServerSettings: []store.RawServerSettings{
			{ServerID: "srv1", NotificationPingMode: store.PingAll},
		},
		Presences: []gateway.UserPresence{
			{UserID: "u1", Status: store.StatusOnline, Custom: "hi"},
		},
		MessageMentions: []gateway.MessageMention{
			{MentionedBy: store.RawUser{ID: "u3"}, ChannelID: "c1", ServerID: "srv1", Count: 4},
		},
		LastSeenServerChannelIDs: map[string]int64{"c1": 1000},
	}
}

func TestBulkLoad(t *testing.T) {
	e, st := testEngine(t)
	e.handleAuthenticated(authPayload())

	if self := st.Account.SelfUser(); self == nil || self.ID != "me" {
		t.Fatalf("self = %+v, want me", self)
	}
	if st.Servers.Get("srv1") == nil || st.Roles.Get("srv1", "def") == nil {
		t.Error("server or role missing after bulk load")
	}
	if st.Members.Get("srv1", "u1") == nil || st.Users.Get("u1") == nil {
		t.Error("member cascade missing after bulk load")
	}
	if st.Friends.Get("u2") == nil {
		t.Error("friend missing after bulk load")
	}

	// Inbox cascade links both sides.
	dm := st.Channels.Get("dm1")
	if dm == nil || dm.RecipientID != "u2" {
		t.Errorf("dm channel = %+v", dm)
	}
	if u := st.Users.Get("u2"); u == nil || u.InboxChannelID != "dm1" {
		t.Errorf("recipient = %+v", u)
	}

	if u := st.Users.Get("u1"); u.Presence == nil || u.Presence.Custom != "hi" {
		t.Errorf("presence = %+v", u.Presence)
	}
	if m := st.Mentions.Get("c1"); m == nil || m.Count != 4 {
		t.Errorf("mention = %+v", m)
	}
	// Read checkpoints from the snapshot seed lastSeen.
	if ch := st.Channels.Get("c1"); ch.LastSeen != 1000 {
		t.Errorf("lastSeen = %d, want 1000", ch.LastSeen)
	}
	if settings := st.Account.SettingsByServer("srv1"); settings == nil {
		t.Error("server settings missing after bulk load")
	}
}

func TestBulkLoadPersistsUserID(t *testing.T) {
	var persisted string
	st := store.New(bus.New(), store.Options{})
	e := NewEngine(st, bus.New(), nil, func(id string) error {
		persisted = id
		return nil
	}, zap.NewNop())

	e.handleAuthenticated(authPayload())
	if persisted != "me" {
		t.Errorf("persisted id = %q, want me", persisted)
	}
}

func inbound(id, channelID, authorID string, mentions ...store.RawUser) gateway.MessageCreatedPayload {
	return gateway.MessageCreatedPayload{
		Message: store.RawMessage{
			ID:        id,
			ChannelID: channelID,
			Content:   "hey",
			CreatedAt: 2000,
			CreatedBy: store.RawUser{ID: authorID},
			Mentions:  mentions,
		},
	}
}

func TestOwnEchoIsSkipped(t *testing.T) {
	e, st := testEngine(t)
	e.handleAuthenticated(authPayload())
	seedPage(st, "c1")

	payload := inbound("m1", "c1", "u1")
	payload.SocketID = "my-sock"
	e.handleMessageCreated(payload)

	if got := len(st.Messages.ChannelMessages("c1")); got != 0 {
		t.Errorf("page length = %d, want 0 (echo must be dropped)", got)
	}
	if ch := st.Channels.Get("c1"); ch.LastMessagedAt != 900 {
		t.Errorf("lastMessagedAt = %d, want untouched", ch.LastMessagedAt)
	}
}

func seedPage(st *store.Store, channelID string) {
	tx := st.Begin()
	tx.SetMessages(channelID, []store.Message{})
	tx.Commit()
}

func TestServerMessageWithoutMention(t *testing.T) {
	e, st := testEngine(t)
	e.handleAuthenticated(authPayload())
	seedPage(st, "c1")

	e.handleMessageCreated(inbound("m1", "c1", "u1"))

	msgs := st.Messages.ChannelMessages("c1")
	if len(msgs) != 1 || msgs[0].ID != "m1" {
		t.Fatalf("page = %v", msgs)
	}
	if ch := st.Channels.Get("c1"); ch.LastMessagedAt != 2000 {
		t.Errorf("lastMessagedAt = %d, want 2000", ch.LastMessagedAt)
	}
	// Plain server chatter never counts as a mention.
	if st.Mentions.Get("c1").Count != 4 {
		t.Errorf("mention count changed, want snapshot value kept")
	}
}

func TestServerMentionIncrements(t *testing.T) {
	e, st := testEngine(t)
	e.handleAuthenticated(authPayload())

	e.handleMessageCreated(inbound("m1", "c1", "u1", store.RawUser{ID: "me"}))
	if got := st.Mentions.Get("c1").Count; got != 5 {
		t.Errorf("mention count = %d, want 5", got)
	}
}

func TestDMAlwaysCounts(t *testing.T) {
	e, st := testEngine(t)
	e.handleAuthenticated(authPayload())
	seedPage(st, "dm1")

	e.handleMessageCreated(inbound("m1", "dm1", "u2"))

	m := st.Mentions.Get("dm1")
	if m == nil || m.Count != 1 {
		t.Fatalf("mention = %+v, want count 1", m)
	}
	if got := st.Channels.NotificationState("dm1"); got != store.NotificationMention {
		t.Errorf("state = %v, want mention", got)
	}
}

func TestMutedServerNeverCounts(t *testing.T) {
	e, st := testEngine(t)
	payload := authPayload()
	payload.ServerSettings = []store.RawServerSettings{
		{ServerID: "srv1", NotificationPingMode: store.PingMute},
	}
	e.handleAuthenticated(payload)

	e.handleMessageCreated(inbound("m1", "c1", "u1", store.RawUser{ID: "me"}))
	if got := st.Mentions.Get("c1").Count; got != 4 {
		t.Errorf("mention count = %d, want snapshot value kept on muted server", got)
	}
}

func TestSelfAuthoredAdvancesLastSeen(t *testing.T) {
	e, st := testEngine(t)
	e.handleAuthenticated(authPayload())

	// Sent from another device, so the socket id differs.
	payload := inbound("m1", "c1", "me")
	payload.SocketID = "other-device"
	e.handleMessageCreated(payload)

	ch := st.Channels.Get("c1")
	if ch.LastSeen != 2001 {
		t.Errorf("lastSeen = %d, want past own message", ch.LastSeen)
	}
	if got := st.Channels.NotificationState("c1"); got == store.NotificationUnread {
		t.Error("own message must not mark the channel unread")
	}
}

func TestMessageUpdatedAndDeleted(t *testing.T) {
	e, st := testEngine(t)
	e.handleAuthenticated(authPayload())
	tx := st.Begin()
	tx.SetMessages("c1", []store.Message{
		{RawMessage: store.RawMessage{ID: "m1", ChannelID: "c1", Content: "old"}},
	})
	tx.Commit()

	e.handleMessageUpdated(gateway.MessageUpdatedPayload{
		ChannelID: "c1", MessageID: "m1", Content: "new", EditedAt: 3000,
	})
	msgs := st.Messages.ChannelMessages("c1")
	if msgs[0].Content != "new" || msgs[0].EditedAt != 3000 {
		t.Errorf("message = %+v", msgs[0])
	}

	// Unknown ids are tolerated.
	e.handleMessageUpdated(gateway.MessageUpdatedPayload{ChannelID: "c1", MessageID: "ghost"})
	e.handleMessageDeleted(gateway.MessageDeletedPayload{ChannelID: "c1", MessageID: "ghost"})

	e.handleMessageDeleted(gateway.MessageDeletedPayload{ChannelID: "c1", MessageID: "m1"})
	if got := len(st.Messages.ChannelMessages("c1")); got != 0 {
		t.Errorf("page length = %d, want 0", got)
	}
}

func TestNotificationDismissed(t *testing.T) {
	e, st := testEngine(t)
	e.handleAuthenticated(authPayload())
	tx := st.Begin()
	tx.UpdateLastMessaged("c1", 5000)
	tx.Commit()

	before := time.Now().UnixMilli()
	e.handleNotificationDismissed(gateway.NotificationDismissedPayload{ChannelID: "c1"})

	ch := st.Channels.Get("c1")
	if ch.LastSeen < before {
		t.Errorf("lastSeen = %d, want advanced past now", ch.LastSeen)
	}
	if st.Mentions.Get("c1") != nil {
		t.Error("mention entry must be removed on dismissal")
	}
	if got := st.Channels.NotificationState("c1"); got != store.NotificationNone {
		t.Errorf("state = %v, want none", got)
	}
}

func TestInboxOpenedRemotely(t *testing.T) {
	e, st := testEngine(t)
	e.handleAuthenticated(authPayload())

	e.handleInboxOpened(gateway.InboxOpenedPayload{
		ID:        "i2",
		ChannelID: "dm2",
		Recipient: store.RawUser{ID: "u9", Username: "dave"},
		Channel:   &store.RawChannel{ID: "dm2", Type: store.ChannelDMText},
	})

	if st.Inbox.Get("dm2") == nil {
		t.Fatal("inbox item missing")
	}
	if ch := st.Channels.Get("dm2"); ch == nil || ch.RecipientID != "u9" {
		t.Errorf("channel = %+v", ch)
	}
}

func TestPresenceUpdateMerges(t *testing.T) {
	e, st := testEngine(t)
	e.handleAuthenticated(authPayload())

	online := store.StatusOnline
	e.handlePresenceUpdate(gateway.PresenceUpdatePayload{
		UserID: "u2", Status: &online,
	})
	if u := st.Users.Get("u2"); u.Presence == nil || u.Presence.Status != store.StatusOnline {
		t.Errorf("presence = %+v", u.Presence)
	}

	offline := store.StatusOffline
	e.handlePresenceUpdate(gateway.PresenceUpdatePayload{
		UserID: "u2", Status: &offline,
	})
	if u := st.Users.Get("u2"); u.Presence != nil {
		t.Error("offline must clear presence")
	}
}

func TestEngineAppliesBusEvents(t *testing.T) {
	b := bus.New()
	st := store.New(bus.New(), store.Options{})
	e := NewEngine(st, b, nil, nil, zap.NewNop())
	e.Start(context.Background())
	defer e.Stop()

	b.Publish(bus.Event{Kind: "gateway.authenticated", Payload: authPayload()})

	deadline := time.After(2 * time.Second)
	for st.Account.SelfUser() == nil {
		select {
		case <-deadline:
			t.Fatal("bulk load never applied")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

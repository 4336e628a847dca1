// Package store is the reactive in-memory entity cache mirroring server
// state. The gateway sync engine and the REST layer are the only writers;
// consumers read through the typed accessors and observe changes on the
// event bus. Absence of an entity is an expected state during cache
// warm-up, so lookups return nil instead of failing.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/nerimity/nerimity-go/internal/bus"
)

// FetchMessagesOptions selects a channel history page. After and Before
// carry message id cursors; a zero Limit means DefaultFetchLimit.
type FetchMessagesOptions struct {
	Limit  int
	After  string
	Before string
}

// MessageService issues the REST calls the message store needs.
// Implemented by rest.Client.
type MessageService interface {
	FetchMessages(ctx context.Context, channelID string, opts FetchMessagesOptions) ([]RawMessage, error)
	PostMessage(ctx context.Context, channelID, content, socketID string, attachment *FileAttach) (*RawMessage, error)
}

// DMService opens DM channels on the server. Implemented by rest.Client.
type DMService interface {
	OpenDMChannel(ctx context.Context, userID string) (*RawInboxItem, error)
}

// Store composes all entity stores behind a single write lock. A Tx groups
// the mutations of one inbound event so observers never see a half-applied
// event; queued bus events flush only after Commit releases the lock.
type Store struct {
	mu  sync.RWMutex
	bus *bus.Bus

	// now returns unix milliseconds; swapped out in tests.
	now func() int64
	// socketID returns the gateway session id used to tag outbound
	// messages for echo dedup. Empty while disconnected.
	socketID func() string

	Users      *Users
	Servers    *Servers
	Channels   *Channels
	Roles      *ServerRoles
	Members    *ServerMembers
	Friends    *Friends
	Inbox      *Inbox
	Messages   *Messages
	Mentions   *Mentions
	Account    *Account
	Properties *ChannelProperties
}

// Options carries the external collaborators of the store.
type Options struct {
	Messages MessageService
	DMs      DMService
	// SocketID reports the current gateway session id, or "".
	SocketID func() string
}

// New creates an empty store publishing change events on b.
func New(b *bus.Bus, opts Options) *Store {
	s := &Store{
		bus:      b,
		now:      func() int64 { return time.Now().UnixMilli() },
		socketID: opts.SocketID,
	}
	if s.socketID == nil {
		s.socketID = func() string { return "" }
	}
	s.Users = &Users{root: s, dms: opts.DMs, cache: map[string]*User{}}
	s.Servers = &Servers{root: s, cache: map[string]*Server{}}
	s.Channels = &Channels{root: s, cache: map[string]*Channel{}}
	s.Roles = &ServerRoles{root: s, cache: map[string]map[string]*ServerRole{}}
	s.Members = &ServerMembers{root: s, cache: map[string]map[string]*ServerMember{}}
	s.Friends = &Friends{root: s, cache: map[string]*Friend{}}
	s.Inbox = &Inbox{root: s, cache: map[string]*InboxItem{}}
	s.Messages = &Messages{root: s, svc: opts.Messages, cache: map[string][]Message{}}
	s.Mentions = &Mentions{root: s, cache: map[string]*Mention{}}
	s.Account = &Account{root: s, serverSettings: map[string]RawServerSettings{}}
	s.Properties = &ChannelProperties{root: s, cache: map[string]*ChannelProperty{}}
	return s
}

// Reset clears every entity store. Called on logout and before a
// reconnection resync replaces all state wholesale.
func (s *Store) Reset() {
	s.mu.Lock()
	s.Users.cache = map[string]*User{}
	s.Servers.cache = map[string]*Server{}
	s.Channels.cache = map[string]*Channel{}
	s.Roles.cache = map[string]map[string]*ServerRole{}
	s.Members.cache = map[string]map[string]*ServerMember{}
	s.Friends.cache = map[string]*Friend{}
	s.Inbox.cache = map[string]*InboxItem{}
	s.Messages.cache = map[string][]Message{}
	s.Mentions.cache = map[string]*Mention{}
	s.Account.reset()
	s.Properties.cache = map[string]*ChannelProperty{}
	s.mu.Unlock()

	s.publish("store.reset", nil)
}

func (s *Store) publish(kind string, payload any) {
	if s.bus != nil {
		s.bus.Publish(bus.Event{Kind: kind, Payload: payload})
	}
}

// Tx is a batch of store mutations applied under one write lock.
// Events queued with Publish are delivered after Commit releases the
// lock, so a subscriber reading back into the store observes the whole
// batch or none of it.
type Tx struct {
	s      *Store
	events []bus.Event
}

// Begin takes the write lock and starts a mutation batch.
func (s *Store) Begin() *Tx {
	s.mu.Lock()
	return &Tx{s: s}
}

// Publish queues an event for delivery after Commit.
func (t *Tx) Publish(kind string, payload any) {
	t.events = append(t.events, bus.Event{Kind: kind, Payload: payload})
}

// Commit releases the lock and flushes queued events in order.
func (t *Tx) Commit() {
	events := t.events
	t.events = nil
	t.s.mu.Unlock()
	if t.s.bus != nil {
		for _, evt := range events {
			t.s.bus.Publish(evt)
		}
	}
}

func (s *Store) nowMillis() int64 {
	return s.now()
}

package store

import (
	"context"
	"fmt"
)

// User is a cached user. Relations to the inbox channel are held as ids
// and resolved through the owning store, never as pointers.
type User struct {
	ID       string
	Username string
	Tag      string
	HexColor string
	Avatar   string
	Badges   uint64

	// Presence is nil while the user is offline or unknown.
	Presence *Presence
	// InboxChannelID back-references the user's DM channel, when opened.
	InboxChannelID string
}

// UserPatch is a partial user update. Nil fields are left untouched.
type UserPatch struct {
	Username *string
	Tag      *string
	Avatar   *string
	HexColor *string
}

// PresencePatch is a partial presence update. A nil Status (or
// StatusOffline) clears the cached presence entirely. ClearCustom marks an
// explicit null for the custom text, as opposed to the field being absent.
type PresencePatch struct {
	Status      *UserStatus
	Custom      *string
	ClearCustom bool
}

// Users is the keyed cache of every user referenced by messages, friends,
// members and inbox items.
type Users struct {
	root  *Store
	dms   DMService
	cache map[string]*User
}

// AddCache inserts a user snapshot. No-op when the user is already cached,
// so embedded snapshots never clobber live presence state.
func (u *Users) AddCache(raw RawUser) {
	tx := u.root.Begin()
	tx.AddUser(raw)
	tx.Publish("store.user_added", raw.ID)
	tx.Commit()
}

// Get returns a copy of the cached user, or nil when absent.
func (u *Users) Get(id string) *User {
	u.root.mu.RLock()
	defer u.root.mu.RUnlock()
	return u.get(id).clone()
}

// Array returns a copy of every cached user.
func (u *Users) Array() []User {
	u.root.mu.RLock()
	defer u.root.mu.RUnlock()
	out := make([]User, 0, len(u.cache))
	for _, usr := range u.cache {
		out = append(out, *usr)
	}
	return out
}

// OpenDMChannel returns the user's DM channel, opening one on the server
// when none is cached. The channel and its inbox item are inserted in one
// batch so observers never see the half-linked pair.
func (u *Users) OpenDMChannel(ctx context.Context, userID string) (*Channel, error) {
	u.root.mu.RLock()
	usr := u.get(userID)
	var existing *Channel
	if usr != nil && usr.InboxChannelID != "" {
		if u.root.Inbox.get(usr.InboxChannelID) != nil {
			existing = u.root.Channels.get(usr.InboxChannelID).clone()
		}
	}
	u.root.mu.RUnlock()
	if existing != nil {
		return existing, nil
	}

	raw, err := u.dms.OpenDMChannel(ctx, userID)
	if err != nil {
		return nil, err
	}
	if raw.Channel == nil {
		return nil, fmt.Errorf("open dm: response carried no channel")
	}

	tx := u.root.Begin()
	tx.AddChannel(*raw.Channel)
	tx.AddInboxItem(*raw)
	tx.Publish("store.inbox_opened", raw.ChannelID)
	tx.Commit()

	return u.root.Channels.Get(raw.Channel.ID), nil
}

// get returns the cached user without copying. Lock must be held.
func (u *Users) get(id string) *User {
	return u.cache[id]
}

func (usr *User) clone() *User {
	if usr == nil {
		return nil
	}
	c := *usr
	if usr.Presence != nil {
		p := *usr.Presence
		c.Presence = &p
	}
	return &c
}

// AddUser caches a user snapshot unless already present.
func (t *Tx) AddUser(raw RawUser) {
	users := t.s.Users
	if users.cache[raw.ID] != nil {
		return
	}
	users.cache[raw.ID] = &User{
		ID:       raw.ID,
		Username: raw.Username,
		Tag:      raw.Tag,
		HexColor: raw.HexColor,
		Avatar:   raw.Avatar,
		Badges:   raw.Badges,
	}
}

// UpdateUser applies a partial update to a cached user. No-op when absent.
func (t *Tx) UpdateUser(id string, patch UserPatch) {
	usr := t.s.Users.cache[id]
	if usr == nil {
		return
	}
	if patch.Username != nil {
		usr.Username = *patch.Username
	}
	if patch.Tag != nil {
		usr.Tag = *patch.Tag
	}
	if patch.Avatar != nil {
		usr.Avatar = *patch.Avatar
	}
	if patch.HexColor != nil {
		usr.HexColor = *patch.HexColor
	}
}

// UpdatePresence merges a presence patch into a cached user. An offline or
// absent status drops the presence; an explicit null clears the custom text.
func (t *Tx) UpdatePresence(userID string, patch PresencePatch) {
	usr := t.s.Users.cache[userID]
	if usr == nil {
		return
	}
	if patch.Status == nil || *patch.Status == StatusOffline {
		usr.Presence = nil
		return
	}
	if usr.Presence == nil {
		usr.Presence = &Presence{}
	}
	usr.Presence.Status = *patch.Status
	if patch.ClearCustom {
		usr.Presence.Custom = ""
	} else if patch.Custom != nil {
		usr.Presence.Custom = *patch.Custom
	}
}

// setInboxChannelID back-fills the DM channel reference on a user.
func (t *Tx) setInboxChannelID(userID, channelID string) {
	if usr := t.s.Users.cache[userID]; usr != nil {
		usr.InboxChannelID = channelID
	}
}

package store

// SelfUser is the authenticated account user.
type SelfUser struct {
	ID               string
	Email            string
	Username         string
	Tag              string
	HexColor         string
	Avatar           string
	Banner           string
	Badges           uint64
	OrderedServerIDs []string
}

// RawUser returns the embeddable snapshot of the self user, used as the
// author of optimistic local messages.
func (u *SelfUser) RawUser() RawUser {
	return RawUser{
		ID:       u.ID,
		Username: u.Username,
		Tag:      u.Tag,
		HexColor: u.HexColor,
		Avatar:   u.Avatar,
		Badges:   u.Badges,
	}
}

// Account holds the authenticated self user, the bearer token and the
// per-server notification settings.
type Account struct {
	root           *Store
	self           *SelfUser
	token          string
	serverSettings map[string]RawServerSettings
}

// SelfUser returns a copy of the authenticated user, or nil before the
// bulk snapshot loads.
func (a *Account) SelfUser() *SelfUser {
	a.root.mu.RLock()
	defer a.root.mu.RUnlock()
	if a.self == nil {
		return nil
	}
	c := *a.self
	c.OrderedServerIDs = append([]string(nil), a.self.OrderedServerIDs...)
	return &c
}

// Token returns the bearer token, or "" when logged out.
func (a *Account) Token() string {
	a.root.mu.RLock()
	defer a.root.mu.RUnlock()
	return a.token
}

// SetToken stores the bearer token in memory.
func (a *Account) SetToken(token string) {
	a.root.mu.Lock()
	a.token = token
	a.root.mu.Unlock()
}

// SettingsByServer returns a copy of the notification settings for a
// server, or nil when the server uses defaults.
func (a *Account) SettingsByServer(serverID string) *RawServerSettings {
	a.root.mu.RLock()
	defer a.root.mu.RUnlock()
	settings, ok := a.serverSettings[serverID]
	if !ok {
		return nil
	}
	c := settings
	return &c
}

// reset wipes the account including the in-memory token; the daemon
// reloads it from the credential store on the next login.
func (a *Account) reset() {
	a.self = nil
	a.token = ""
	a.serverSettings = map[string]RawServerSettings{}
}

// SetSelf stores the authenticated user.
func (t *Tx) SetSelf(raw RawSelfUser) {
	t.s.Account.self = &SelfUser{
		ID:               raw.ID,
		Email:            raw.Email,
		Username:         raw.Username,
		Tag:              raw.Tag,
		HexColor:         raw.HexColor,
		Avatar:           raw.Avatar,
		Banner:           raw.Banner,
		Badges:           raw.Badges,
		OrderedServerIDs: append([]string(nil), raw.OrderedServerIDs...),
	}
}

// SetServerSettings replaces the notification settings for a server.
func (t *Tx) SetServerSettings(raw RawServerSettings) {
	t.s.Account.serverSettings[raw.ServerID] = raw
}

// SelfUser returns a copy of the authenticated user inside a batch, or nil.
func (t *Tx) SelfUser() *SelfUser {
	if t.s.Account.self == nil {
		return nil
	}
	c := *t.s.Account.self
	return &c
}

// Channel returns a copy of a cached channel inside a batch, or nil.
func (t *Tx) Channel(channelID string) *Channel {
	return t.s.Channels.get(channelID).clone()
}

// ServerSettings returns the notification settings inside a batch, or nil.
func (t *Tx) ServerSettings(serverID string) *RawServerSettings {
	settings, ok := t.s.Account.serverSettings[serverID]
	if !ok {
		return nil
	}
	c := settings
	return &c
}

package store

// Server is a cached joined server.
type Server struct {
	ID            string
	Name          string
	Avatar        string
	HexColor      string
	DefaultRoleID string
	CreatedByID   string
	CreatedAt     int64
}

// Servers is the keyed cache of joined servers.
type Servers struct {
	root  *Store
	cache map[string]*Server
}

// AddCache inserts or replaces a server.
func (s *Servers) AddCache(raw RawServer) {
	tx := s.root.Begin()
	tx.AddServer(raw)
	tx.Publish("store.server_added", raw.ID)
	tx.Commit()
}

// Get returns a copy of the cached server, or nil when absent.
func (s *Servers) Get(id string) *Server {
	s.root.mu.RLock()
	defer s.root.mu.RUnlock()
	srv := s.cache[id]
	if srv == nil {
		return nil
	}
	c := *srv
	return &c
}

// Array returns every cached server.
func (s *Servers) Array() []Server {
	s.root.mu.RLock()
	defer s.root.mu.RUnlock()
	out := make([]Server, 0, len(s.cache))
	for _, srv := range s.cache {
		out = append(out, *srv)
	}
	return out
}

// OrderedArray returns servers in the account's sidebar order; servers
// missing from that order are appended at the end.
func (s *Servers) OrderedArray() []Server {
	s.root.mu.RLock()
	defer s.root.mu.RUnlock()

	out := make([]Server, 0, len(s.cache))
	seen := make(map[string]bool, len(s.cache))
	if self := s.root.Account.self; self != nil {
		for _, id := range self.OrderedServerIDs {
			if srv := s.cache[id]; srv != nil {
				out = append(out, *srv)
				seen[id] = true
			}
		}
	}
	for id, srv := range s.cache {
		if !seen[id] {
			out = append(out, *srv)
		}
	}
	return out
}

// HasNotifications reports whether any of the server's channels has
// unread state.
func (s *Servers) HasNotifications(serverID string) bool {
	s.root.mu.RLock()
	defer s.root.mu.RUnlock()
	for _, ch := range s.root.Channels.cache {
		if ch.ServerID == serverID && s.root.Channels.notificationState(ch) != NotificationNone {
			return true
		}
	}
	return false
}

// AvatarURL returns the CDN URL for the server avatar, or "" when unset.
// cdnURL is the configured CDN origin.
func (srv *Server) AvatarURL(cdnURL string) string {
	if srv.Avatar == "" {
		return ""
	}
	return cdnURL + "/" + srv.Avatar
}

// AddServer caches a server, replacing any previous entry wholesale.
func (t *Tx) AddServer(raw RawServer) {
	t.s.Servers.cache[raw.ID] = &Server{
		ID:            raw.ID,
		Name:          raw.Name,
		Avatar:        raw.Avatar,
		HexColor:      raw.HexColor,
		DefaultRoleID: raw.DefaultRoleID,
		CreatedByID:   raw.CreatedByID,
		CreatedAt:     raw.CreatedAt,
	}
}

package store

import "sort"

// ServerRole is a cached role within a server.
type ServerRole struct {
	ID          string
	ServerID    string
	Name        string
	HexColor    string
	Order       int
	Permissions uint64
	HideRole    bool
}

// ServerRoles caches roles keyed by (serverId, roleId).
type ServerRoles struct {
	root  *Store
	cache map[string]map[string]*ServerRole
}

// AddCache inserts or replaces a role.
func (r *ServerRoles) AddCache(raw RawServerRole) {
	tx := r.root.Begin()
	tx.AddRole(raw)
	tx.Publish("store.role_added", raw.ID)
	tx.Commit()
}

// Get returns a copy of the cached role, or nil when absent.
func (r *ServerRoles) Get(serverID, roleID string) *ServerRole {
	r.root.mu.RLock()
	defer r.root.mu.RUnlock()
	role := r.get(serverID, roleID)
	if role == nil {
		return nil
	}
	c := *role
	return &c
}

// SortedByServer returns a server's roles ordered highest first.
func (r *ServerRoles) SortedByServer(serverID string) []ServerRole {
	r.root.mu.RLock()
	defer r.root.mu.RUnlock()
	out := make([]ServerRole, 0, len(r.cache[serverID]))
	for _, role := range r.cache[serverID] {
		out = append(out, *role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order > out[j].Order })
	return out
}

// get returns the cached role without copying. Lock must be held.
func (r *ServerRoles) get(serverID, roleID string) *ServerRole {
	return r.cache[serverID][roleID]
}

// AddRole caches a role, replacing any previous entry.
func (t *Tx) AddRole(raw RawServerRole) {
	roles := t.s.Roles
	if roles.cache[raw.ServerID] == nil {
		roles.cache[raw.ServerID] = map[string]*ServerRole{}
	}
	roles.cache[raw.ServerID][raw.ID] = &ServerRole{
		ID:          raw.ID,
		ServerID:    raw.ServerID,
		Name:        raw.Name,
		HexColor:    raw.HexColor,
		Order:       raw.Order,
		Permissions: raw.Permissions,
		HideRole:    raw.HideRole,
	}
}

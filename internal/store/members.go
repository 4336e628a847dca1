package store

import "github.com/nerimity/nerimity-go/internal/permission"

// ServerMember is a cached server membership, keyed by (serverId, userId).
// The member's user lives in the Users store; only the id is held here.
type ServerMember struct {
	ServerID string
	UserID   string
	RoleIDs  []string
	JoinedAt int64
}

// ServerMembers caches memberships keyed by (serverId, userId). Inserting
// a member also registers its embedded user snapshot in the Users store.
type ServerMembers struct {
	root  *Store
	cache map[string]map[string]*ServerMember
}

// AddCache inserts or replaces a membership and caches its embedded user.
func (m *ServerMembers) AddCache(raw RawServerMember) {
	tx := m.root.Begin()
	tx.AddMember(raw)
	tx.Publish("store.member_added", raw.ServerID+":"+raw.User.ID)
	tx.Commit()
}

// Get returns a copy of the cached membership, or nil when absent.
func (m *ServerMembers) Get(serverID, userID string) *ServerMember {
	m.root.mu.RLock()
	defer m.root.mu.RUnlock()
	mem := m.get(serverID, userID)
	if mem == nil {
		return nil
	}
	c := *mem
	c.RoleIDs = append([]string(nil), mem.RoleIDs...)
	return &c
}

// ByServer returns every cached member of a server.
func (m *ServerMembers) ByServer(serverID string) []ServerMember {
	m.root.mu.RLock()
	defer m.root.mu.RUnlock()
	out := make([]ServerMember, 0, len(m.cache[serverID]))
	for _, mem := range m.cache[serverID] {
		c := *mem
		c.RoleIDs = append([]string(nil), mem.RoleIDs...)
		out = append(out, c)
	}
	return out
}

// Permissions returns the member's aggregate permission bits: the server
// default role OR-ed with every assigned role. Zero when the member or
// server is unknown.
func (m *ServerMembers) Permissions(serverID, userID string) uint64 {
	m.root.mu.RLock()
	defer m.root.mu.RUnlock()
	return m.permissions(serverID, userID)
}

// HasPermission reports whether the member holds the given permission bit.
// Admin standing grants every bit unless ignoreAdmin is set.
func (m *ServerMembers) HasPermission(serverID, userID string, bit uint64, ignoreAdmin bool) bool {
	m.root.mu.RLock()
	defer m.root.mu.RUnlock()
	return m.hasPermission(serverID, userID, bit, ignoreAdmin)
}

// TopRole returns the member's highest-order role that is not hidden,
// falling back to the server's default role.
func (m *ServerMembers) TopRole(serverID, userID string) *ServerRole {
	m.root.mu.RLock()
	defer m.root.mu.RUnlock()

	mem := m.get(serverID, userID)
	if mem == nil {
		return nil
	}
	var top *ServerRole
	for _, id := range mem.RoleIDs {
		role := m.root.Roles.get(serverID, id)
		if role == nil || role.HideRole {
			continue
		}
		if top == nil || role.Order > top.Order {
			top = role
		}
	}
	if top == nil {
		if srv := m.root.Servers.cache[serverID]; srv != nil {
			top = m.root.Roles.get(serverID, srv.DefaultRoleID)
		}
	}
	if top == nil {
		return nil
	}
	c := *top
	return &c
}

// get returns the cached membership without copying. Lock must be held.
func (m *ServerMembers) get(serverID, userID string) *ServerMember {
	return m.cache[serverID][userID]
}

// permissions implements Permissions. Lock must be held.
func (m *ServerMembers) permissions(serverID, userID string) uint64 {
	mem := m.get(serverID, userID)
	if mem == nil {
		return 0
	}
	var perms uint64
	if srv := m.root.Servers.cache[serverID]; srv != nil {
		if def := m.root.Roles.get(serverID, srv.DefaultRoleID); def != nil {
			perms = permission.AddBit(perms, def.Permissions)
		}
	}
	for _, id := range mem.RoleIDs {
		if role := m.root.Roles.get(serverID, id); role != nil {
			perms = permission.AddBit(perms, role.Permissions)
		}
	}
	return perms
}

// hasPermission implements HasPermission. Lock must be held.
func (m *ServerMembers) hasPermission(serverID, userID string, bit uint64, ignoreAdmin bool) bool {
	perms := m.permissions(serverID, userID)
	if !ignoreAdmin && permission.HasBit(perms, permission.RoleAdmin.Bit) {
		return true
	}
	return permission.HasBit(perms, bit)
}

// isAdmin reports admin standing: the admin permission bit or server
// creatorship. Lock must be held.
func (m *ServerMembers) isAdmin(serverID, userID string) bool {
	if srv := m.root.Servers.cache[serverID]; srv != nil && srv.CreatedByID == userID {
		return true
	}
	return m.hasPermission(serverID, userID, permission.RoleAdmin.Bit, false)
}

// AddMember caches a membership and its embedded user snapshot.
func (t *Tx) AddMember(raw RawServerMember) {
	t.AddUser(raw.User)
	members := t.s.Members
	if members.cache[raw.ServerID] == nil {
		members.cache[raw.ServerID] = map[string]*ServerMember{}
	}
	members.cache[raw.ServerID][raw.User.ID] = &ServerMember{
		ServerID: raw.ServerID,
		UserID:   raw.User.ID,
		RoleIDs:  append([]string(nil), raw.RoleIDs...),
		JoinedAt: raw.JoinedAt,
	}
}

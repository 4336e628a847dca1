// Package permission holds the permission bit tables shared by servers,
// roles and channels, plus the bitmask helpers used to combine them.
package permission

// Bitwise is a single named permission bit.
type Bitwise struct {
	Name string
	Bit  uint64
}

// Role permissions. A member's effective permissions are the OR of the
// server default role and every assigned role.
var (
	RoleAdmin          = Bitwise{Name: "Admin", Bit: 1}
	RoleSendMessage    = Bitwise{Name: "Send Message", Bit: 2}
	RoleManageRoles    = Bitwise{Name: "Manage Roles", Bit: 4}
	RoleManageChannels = Bitwise{Name: "Manage Channels", Bit: 8}
	RoleKick           = Bitwise{Name: "Kick", Bit: 16}
	RoleBan            = Bitwise{Name: "Ban", Bit: 32}
)

// Channel permissions.
var (
	ChannelPrivate     = Bitwise{Name: "Private Channel", Bit: 1}
	ChannelSendMessage = Bitwise{Name: "Send Message", Bit: 2}
	ChannelJoinVoice   = Bitwise{Name: "Join Voice", Bit: 4}
)

// AddBit returns perms with bit set.
func AddBit(perms, bit uint64) uint64 {
	return perms | bit
}

// RemoveBit returns perms with bit cleared.
func RemoveBit(perms, bit uint64) uint64 {
	return perms &^ bit
}

// HasBit reports whether bit is set in perms.
func HasBit(perms, bit uint64) bool {
	return perms&bit == bit
}

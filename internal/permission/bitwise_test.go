package permission

import "testing"

func TestAddBit(t *testing.T) {
	var perms uint64
	perms = AddBit(perms, RoleSendMessage.Bit)
	perms = AddBit(perms, RoleKick.Bit)

	if !HasBit(perms, RoleSendMessage.Bit) {
		t.Error("SendMessage bit not set")
	}
	if !HasBit(perms, RoleKick.Bit) {
		t.Error("Kick bit not set")
	}
	if HasBit(perms, RoleAdmin.Bit) {
		t.Error("Admin bit set unexpectedly")
	}

	// Re-adding is idempotent.
	if AddBit(perms, RoleKick.Bit) != perms {
		t.Error("AddBit not idempotent")
	}
}

func TestRemoveBit(t *testing.T) {
	perms := AddBit(AddBit(0, RoleKick.Bit), RoleBan.Bit)
	perms = RemoveBit(perms, RoleKick.Bit)

	if HasBit(perms, RoleKick.Bit) {
		t.Error("Kick bit still set after remove")
	}
	if !HasBit(perms, RoleBan.Bit) {
		t.Error("Ban bit removed unexpectedly")
	}
}

func TestHasBitZero(t *testing.T) {
	if !HasBit(RoleAdmin.Bit, 0) {
		t.Error("every mask contains the empty bit set")
	}
	if HasBit(0, ChannelPrivate.Bit) {
		t.Error("empty mask reports private bit")
	}
}

package iface

import "testing"

func TestTuntapKindString(t *testing.T) {
	if got := tunKind.String(); got != "tun" {
		t.Errorf("tunKind.String() = %q, want %q", got, "tun")
	}
	if got := tapKind.String(); got != "tap" {
		t.Errorf("tapKind.String() = %q, want %q", got, "tap")
	}
}

func TestNewTunTapContract(t *testing.T) {
	tun := NewTun()
	if tun.Name() != "tun" {
		t.Errorf("tun.Name() = %q, want %q", tun.Name(), "tun")
	}
	if tun.MTU() != MTU {
		t.Errorf("tun.MTU() = %d, want %d", tun.MTU(), MTU)
	}
	if !tun.Blocking() {
		t.Error("tun.Blocking() = false, want true")
	}

	tap := NewTap()
	if tap.Name() != "tap" {
		t.Errorf("tap.Name() = %q, want %q", tap.Name(), "tap")
	}
}

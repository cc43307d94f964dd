//go:build linux

package iface

import "github.com/pasis/pppoat2/internal/packet"

// compatLayer is a no-op on Linux: TUNSETIFF frames already carry the
// generic TUN/TAP header (2 flag bytes + 2-byte EtherType), so no
// conversion is needed, mirroring if_tun_compat_layer's Linux branch.
func compatLayer(_ tuntapKind, _ *packet.Packet, _ bool) {}

//go:build linux

package iface

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// tunPath is the Linux TUN/TAP clone device, mirroring if_tun.c's
// if_tun_path.
const tunPath = "/dev/net/tun"

// tuntapOpen opens /dev/net/tun and binds it to a TUN or TAP device
// via the TUNSETIFF ioctl, mirroring if_tuntap_fd_init's Linux branch.
// Shared by both tun_linux.go and tap_linux.go: the only difference
// between the two kinds is which IFF_* flag is requested.
func tuntapOpen(kind tuntapKind) (*os.File, string, error) {
	f, err := os.OpenFile(tunPath, os.O_RDWR, 0)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", tunPath, err)
	}

	var flags uint16
	switch kind {
	case tunKind:
		flags = unix.IFF_TUN
	case tapKind:
		flags = unix.IFF_TAP
	default:
		_ = f.Close()
		return nil, "", fmt.Errorf("unknown interface kind %v", kind)
	}

	var ifr struct {
		name  [unix.IFNAMSIZ]byte
		flags uint16
		_     [22]byte // pad to match struct ifreq's union size
	}
	ifr.flags = flags

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), uintptr(unix.TUNSETIFF),
		uintptr(unsafe.Pointer(&ifr)))
	if errno != 0 {
		_ = f.Close()
		return nil, "", fmt.Errorf("ioctl TUNSETIFF: %w", errno)
	}

	ifname := cString(ifr.name[:])
	if ifname == "" {
		_ = f.Close()
		return nil, "", fmt.Errorf("ioctl TUNSETIFF: empty interface name")
	}

	return f, ifname, nil
}

// cString trims a NUL-padded byte slice to its string prefix.
func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

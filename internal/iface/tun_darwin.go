//go:build darwin

package iface

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// utunControlName is the kernel control name registered by the utun
// driver, mirroring if_tun.c's UTUN_CONTROL_NAME usage.
const utunControlName = "com.apple.net.utun_control"

// tuntapOpen opens a utun control socket, mirroring if_tuntap_fd_init's
// __APPLE__ branch: socket(PF_SYSTEM) -> CTLIOCGINFO -> connect ->
// getsockopt(UTUN_OPT_IFNAME). Only TUN is supported on macOS; a TAP
// request returns a "not supported on darwin" error here.
func tuntapOpen(kind tuntapKind) (*os.File, string, error) {
	if kind != tunKind {
		return nil, "", fmt.Errorf("%s: not supported on darwin", kind)
	}

	fd, err := unix.Socket(unix.AF_SYSTEM, unix.SOCK_DGRAM, unix.SYSPROTO_CONTROL)
	if err != nil {
		return nil, "", fmt.Errorf("socket(PF_SYSTEM): %w", err)
	}

	var info unix.CtlInfo
	copy(info.Name[:], utunControlName)
	if err := unix.IoctlCtlInfo(fd, &info); err != nil {
		_ = unix.Close(fd)
		return nil, "", fmt.Errorf("ioctl CTLIOCGINFO: %w", err)
	}

	sc := &unix.SockaddrCtl{
		ID:   info.Id,
		Unit: 0,
	}
	if err := unix.Connect(fd, sc); err != nil {
		_ = unix.Close(fd)
		return nil, "", fmt.Errorf("connect utun control socket: %w", err)
	}

	name, err := unix.GetsockoptString(fd, unix.SYSPROTO_CONTROL, 2 /* UTUN_OPT_IFNAME */)
	if err != nil {
		_ = unix.Close(fd)
		return nil, "", fmt.Errorf("getsockopt UTUN_OPT_IFNAME: %w", err)
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, "", fmt.Errorf("set nonblocking: %w", err)
	}

	f := os.NewFile(uintptr(fd), name)
	if f == nil {
		_ = unix.Close(fd)
		return nil, "", fmt.Errorf("os.NewFile failed for utun fd")
	}
	return f, name, nil
}

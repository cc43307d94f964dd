//go:build linux

package iface

// TAP support on Linux shares tun_linux.go's tuntapOpen: the only
// difference between a TUN and a TAP device is the IFF_TUN/IFF_TAP
// flag passed to the TUNSETIFF ioctl, so there is nothing kind-specific
// to add here beyond the build tag that makes "tap" a registrable
// module on this platform.

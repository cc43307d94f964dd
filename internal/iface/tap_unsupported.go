//go:build !linux && !darwin

package iface

import (
	"fmt"
	"os"
)

// tuntapOpen has no implementation outside Linux (TUNSETIFF) and
// Darwin (utun): if_tun.c itself only branches on __APPLE__ vs. a
// generic Linux-style else arm, so every other platform is out of
// scope here.
func tuntapOpen(kind tuntapKind) (*os.File, string, error) {
	return nil, "", fmt.Errorf("%s: not supported on this platform", kind)
}

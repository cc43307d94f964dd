//go:build darwin

package iface

import (
	"github.com/sirupsen/logrus"

	"github.com/pasis/pppoat2/internal/packet"
)

// EtherType values carried in the generic TUN/TAP header, mirroring
// if_tun.c's TUN_TYPE_IP4/IP6/IPX enum.
const (
	etherTypeIP4 = 0x0800
	etherTypeIP6 = 0x86dd
	etherTypeIPX = 0x8137
)

// Address family values utun prepends in place of an EtherType,
// matching the AF_INET/AF_INET6/AF_IPX constants if_tun_compat_layer
// reads from <sys/socket.h>.
const (
	afINET  = 2
	afIPX   = 5
	afINET6 = 30
)

var compatLog = logrus.WithField("module", "tun")

// compatLayer rewrites the first 4 bytes of pkt in place, converting
// between utun's 4-byte protocol-family prefix and the generic
// TUN/TAP header (2 zero flag bytes + a 2-byte EtherType), mirroring
// if_tun_compat_layer exactly. send is true for frames read from the
// device (utun -> TUN) and false for frames about to be written to it
// (TUN -> utun).
func compatLayer(kind tuntapKind, pkt *packet.Packet, send bool) {
	if kind != tunKind {
		return
	}

	buf := pkt.Bytes()
	if len(buf) < 4 {
		return
	}

	if send {
		var etherType uint16
		switch buf[3] {
		case afINET:
			etherType = etherTypeIP4
		case afINET6:
			etherType = etherTypeIP6
		case afIPX:
			etherType = etherTypeIPX
		default:
			compatLog.WithField("pf", buf[3]).Debug("unknown protocol family")
		}
		buf[0] = 0
		buf[1] = 0
		buf[2] = byte(etherType >> 8)
		buf[3] = byte(etherType)
		return
	}

	etherType := uint16(buf[2])<<8 | uint16(buf[3])
	var pf byte
	switch etherType {
	case etherTypeIP4:
		pf = afINET
	case etherTypeIP6:
		pf = afINET6
	case etherTypeIPX:
		pf = afIPX
	default:
		compatLog.WithField("ethertype", etherType).Debug("unknown protocol type")
	}
	buf[0] = 0
	buf[1] = 0
	buf[2] = 0
	buf[3] = pf
}

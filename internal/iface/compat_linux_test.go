//go:build linux

package iface

import (
	"testing"

	"github.com/pasis/pppoat2/internal/packet"
)

func TestCompatLayerLinuxNoop(t *testing.T) {
	pool := packet.NewPool()
	pkt, err := pool.Get(8)
	if err != nil {
		t.Fatalf("pool.Get: %v", err)
	}
	copy(pkt.Bytes(), []byte{0, 0, 0x08, 0x00, 'p', 'a', 'y', 'l'})

	before := append([]byte(nil), pkt.Bytes()...)
	compatLayer(tunKind, pkt, true)
	compatLayer(tapKind, pkt, false)

	if string(pkt.Bytes()) != string(before) {
		t.Errorf("compatLayer mutated the frame on linux: got %v, want %v", pkt.Bytes(), before)
	}
}

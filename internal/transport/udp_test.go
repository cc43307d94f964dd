package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pasis/pppoat2/internal/config"
	"github.com/pasis/pppoat2/internal/packet"
)

func newTestUDP(t *testing.T, sport, dport int) *UDP {
	t.Helper()
	u := NewUDP()
	conf := config.New()
	conf.Set("udp.sport", itoa(sport))
	conf.Set("udp.dport", itoa(dport))
	conf.Set("udp.host", "127.0.0.1")
	require.NoError(t, u.Init(conf, packet.NewPool()))
	require.NoError(t, u.Run(context.Background()))
	t.Cleanup(func() { _ = u.Stop() })
	return u
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// TestUDPEcho is scenario 5 from spec.md §8: two instances exchange a
// datagram and observe it byte-identical on the peer side, driven
// directly through Process rather than spawning two OS processes.
func TestUDPEcho(t *testing.T) {
	a := newTestUDP(t, 28401, 28402)
	b := newTestUDP(t, 28402, 28401)

	payload := []byte{0x41, 0x42, 0x43, '\n'}
	pkt, err := a.pool.Get(len(payload))
	require.NoError(t, err)
	copy(pkt.Bytes(), payload)

	ctx := context.Background()
	_, err = a.Process(ctx, pkt)
	require.NoError(t, err)

	deadline := time.After(time.Second)
	for {
		out, err := b.Process(ctx, nil)
		require.NoError(t, err)
		if out != nil {
			require.Equal(t, payload, out.Bytes())
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for datagram")
		default:
		}
	}
}

func TestUDPConfigPrecedence(t *testing.T) {
	u := NewUDP()
	conf := config.New()
	conf.Set("udp.port", "5000")
	conf.Set("udp.dport", "5001")
	require.NoError(t, u.Init(conf, packet.NewPool()))
	require.Equal(t, 5000, u.sport)
	require.Equal(t, 5001, u.dport)
}

func TestUDPMissingPortFails(t *testing.T) {
	u := NewUDP()
	conf := config.New()
	require.Error(t, u.Init(conf, packet.NewPool()))
}

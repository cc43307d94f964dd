package iface

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pasis/pppoat2/internal/config"
	"github.com/pasis/pppoat2/internal/packet"
)

func TestStdioContract(t *testing.T) {
	s := NewStdio()
	require.Equal(t, "stdio", s.Name())
	require.Equal(t, MTU, s.MTU())
	require.True(t, s.Blocking())
}

func TestStdioReaderTagsSend(t *testing.T) {
	inR, inW, err := os.Pipe()
	require.NoError(t, err)
	outR, outW, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() {
		inR.Close()
		inW.Close()
		outR.Close()
		outW.Close()
	})

	s := NewStdio()
	require.NoError(t, s.Init(config.New(), packet.NewPool()))
	s.in = inR
	s.out = outW

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, s.Run(ctx))

	_, err = inW.Write([]byte("hello"))
	require.NoError(t, err)

	pkt, err := s.Process(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, "hello", string(pkt.Bytes()))
	require.Equal(t, packet.Send, pkt.Direction)

	_, err = s.Process(ctx, pkt)
	require.NoError(t, err)

	readBack := make([]byte, 5)
	outR.SetReadDeadline(time.Now().Add(time.Second))
	n, err := outR.Read(readBack)
	require.NoError(t, err)
	require.Equal(t, "hello", string(readBack[:n]))
}

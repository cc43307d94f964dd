package iface

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pasis/pppoat2/internal/config"
	"github.com/pasis/pppoat2/internal/packet"
)

func TestPPPDInitUsesPathOverride(t *testing.T) {
	dir := t.TempDir()
	fake := filepath.Join(dir, "pppd")
	require.NoError(t, os.WriteFile(fake, []byte("#!/bin/sh\n"), 0o755))

	p := NewPPPD()
	conf := config.New()
	conf.Set("pppd.path", fake)

	require.NoError(t, p.Init(conf, packet.NewPool()))
	require.Equal(t, fake, p.path)
}

func TestPPPDInitPathOverrideSkipsProbe(t *testing.T) {
	p := NewPPPD()
	conf := config.New()
	conf.Set("pppd.path", "/nonexistent/pppd/binary")
	// An explicit pppd.path is used verbatim without an executability
	// check (mirrors if_pppd_path's probe behaviour only applying to
	// the fixed search list), so Init succeeds here; Run would fail
	// instead when exec.Command can't find it.
	require.NoError(t, p.Init(conf, packet.NewPool()))
	require.Equal(t, "/nonexistent/pppd/binary", p.path)
}

func TestPPPDContract(t *testing.T) {
	p := NewPPPD()
	require.Equal(t, "pppd", p.Name())
	require.Equal(t, 1500, p.MTU())
	require.True(t, p.Blocking())
}

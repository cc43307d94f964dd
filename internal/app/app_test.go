package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pasis/pppoat2/internal/config"
)

func TestLoadConfigArgvOnly(t *testing.T) {
	conf, err := loadConfig(Options{Flags: config.Flags{Interface: "stdio", Transport: "udp"}})
	require.NoError(t, err)

	v, err := conf.FindString("interface")
	require.NoError(t, err)
	assert.Equal(t, "stdio", v)
}

func TestLoadConfigFilePrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pppoat.ini")
	require.NoError(t, os.WriteFile(path, []byte("interface=pppd\ntransport=udp\n"), 0o644))

	conf, err := loadConfig(Options{
		Flags: config.Flags{Interface: "stdio", Config: path},
	})
	require.NoError(t, err)

	v, err := conf.FindString("interface")
	require.NoError(t, err)
	assert.Equal(t, "stdio", v, "argv value must win over the file's interface=pppd")

	v, err = conf.FindString("transport")
	require.NoError(t, err)
	assert.Equal(t, "udp", v, "file fills keys argv left unset")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(Options{Flags: config.Flags{Config: "/no/such/file.ini"}})
	assert.Error(t, err)
}

func TestRunListExitsBeforeResolvingModules(t *testing.T) {
	// Flags.List short-circuits Run before it would otherwise try to
	// resolve an interface/transport module or start a pipeline, so
	// this must succeed even with no interface/transport configured.
	err := Run(Options{Flags: config.Flags{List: true}})
	assert.NoError(t, err)
}

func TestRunUnknownInterface(t *testing.T) {
	err := Run(Options{Flags: config.Flags{Interface: "carrier-pigeon", Transport: "udp"}})
	assert.Error(t, err)
}

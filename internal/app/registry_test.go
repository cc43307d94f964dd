package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pasis/pppoat2/internal/module"
)

func TestNewInterfaceKnownNames(t *testing.T) {
	for _, name := range []string{"pppd", "stdio", "tun", "tap"} {
		stage, err := NewInterface(name)
		require.NoError(t, err, "interface %q should be registered", name)
		assert.Equal(t, name, stage.Name())
		assert.Equal(t, module.Interface, stage.Kind())
	}
}

func TestNewInterfaceUnknownName(t *testing.T) {
	_, err := NewInterface("carrier-pigeon")
	assert.Error(t, err)
}

func TestNewTransportKnownNames(t *testing.T) {
	for _, name := range []string{"udp", "http"} {
		stage, err := NewTransport(name)
		require.NoError(t, err, "transport %q should be registered", name)
		assert.Equal(t, name, stage.Name())
		assert.Equal(t, module.Transport, stage.Kind())
	}
}

func TestNewTransportUnknownName(t *testing.T) {
	_, err := NewTransport("carrier-pigeon")
	assert.Error(t, err)
}

func TestListModulesIncludesEveryFactory(t *testing.T) {
	lines := ListModules()
	assert.Len(t, lines, len(interfaceFactories)+len(transportFactories))
	for _, name := range []string{"pppd", "stdio", "tun", "tap", "udp", "http"} {
		found := false
		for _, l := range lines {
			if len(l) >= len(name) && l[:len(name)] == name {
				found = true
				break
			}
		}
		assert.True(t, found, "expected %q in ListModules() output", name)
	}
}

package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFile = `
interface=pppd
transport=udp
server=true

[pppd]
ip=10.0.0.1:10.0.0.2

[udp]
port=5000
`

func TestConfigFileLookup(t *testing.T) {
	store := New()
	require.NoError(t, ReadFile(store, strings.NewReader(sampleFile)))

	v, err := store.FindString("interface")
	require.NoError(t, err)
	assert.Equal(t, "pppd", v)

	v, err = store.FindString("transport")
	require.NoError(t, err)
	assert.Equal(t, "udp", v)

	v, err = store.FindString("pppd.ip")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:10.0.0.2", v)

	n, err := store.FindLong("udp.port")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), n)

	b, err := store.FindBool("server")
	require.NoError(t, err)
	assert.True(t, b)

	_, err = store.FindString("error")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConfigPrecedenceArgvWinsOverFile(t *testing.T) {
	store := New()
	require.NoError(t, ReadArgv(store, Flags{Interface: "stdio"}, nil))
	require.NoError(t, ReadFile(store, strings.NewReader(sampleFile)))

	v, err := store.FindString("interface")
	require.NoError(t, err)
	assert.Equal(t, "stdio", v, "argv value must win over the file's interface=pppd")

	v, err = store.FindString("transport")
	require.NoError(t, err)
	assert.Equal(t, "udp", v, "file fills keys argv left unset")
}

func TestConfigStoreSingleRecordPerKey(t *testing.T) {
	store := New()
	store.Set("k", "a")
	store.Set("k", "b")
	v, err := store.FindString("k")
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	store.Drop("k")
	_, err = store.FindString("k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConfigBooleanRules(t *testing.T) {
	store := New()
	for _, falsy := range []string{"0", "false", "False", "FALSE"} {
		store.Set("b", falsy)
		v, err := store.FindBool("b")
		require.NoError(t, err)
		assert.False(t, v, "value %q must be false", falsy)
	}

	for _, truthy := range []string{"1", "true", "yes", ""} {
		store.Set("b", truthy)
		v, err := store.FindBool("b")
		require.NoError(t, err)
		assert.True(t, v, "value %q must be true", truthy)
	}
}

func TestReadArgvPositional(t *testing.T) {
	store := New()
	require.NoError(t, ReadArgv(store, Flags{}, []string{"udp.host=127.0.0.1", "server"}))

	v, err := store.FindString("udp.host")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", v)

	v, err = store.FindString("server")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	err = ReadArgv(store, Flags{}, []string{"-x"})
	assert.Error(t, err)
}

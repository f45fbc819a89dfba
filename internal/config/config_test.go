package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcoop/rac/client"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yml")

	want := Default()
	want.Name = "bob"
	want.Proxy = "socks5://u:p@127.0.0.1:1080"
	want.HideMyIP = false
	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("host: wracs://chat.example\nmax_messages: 5\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "wracs://chat.example", cfg.Host)
	assert.Equal(t, 5, cfg.MaxMessages)
	assert.True(t, cfg.Chunked)
	assert.Equal(t, client.DefaultMessageFormat, cfg.MessageFormat)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("max_messages: [not, an, int]\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestClientConfig(t *testing.T) {
	cfg := Default()
	cfg.Timeout = 250
	cfg.Resolver = "127.0.0.1:53"

	cc := cfg.ClientConfig()
	assert.Equal(t, 250*time.Millisecond, cc.Timeout)
	assert.Equal(t, "127.0.0.1:53", cc.Resolver)
	assert.True(t, cc.InsecureSkipVerify)
	assert.Equal(t, 100*time.Millisecond, cfg.UpdateInterval())
}

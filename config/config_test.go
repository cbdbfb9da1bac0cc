package config

import (
	"crypto/ecdh"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinosaki/webpush-agent-go/autopush"
	"github.com/shinosaki/webpush-agent-go/rfc8291"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, autopush.MOZILLA_PUSH_SERVICE, cfg.Push.Endpoint)
	assert.Equal(t, "http://localhost:8080", cfg.App.Origin)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.ErrorIs(t, cfg.Validate(), ErrMissingKeys)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"push": {"uaid": "uaid-1", "channel_ids": ["ch-1", "ch-2"]},
		"app": {"origin": "https://example.com"}
	}`), 0o600))
	t.Setenv("WEBPUSH_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "uaid-1", cfg.Push.UAID)
	assert.Equal(t, []string{"ch-1", "ch-2"}, cfg.Push.ChannelIDs)
	assert.Equal(t, "https://example.com", cfg.App.Origin)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveLoad_Keys(t *testing.T) {
	auth, _, key, err := rfc8291.NewSecrets(ecdh.P256())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg, err := Load(path)
	require.NoError(t, err)
	cfg.SetKeys(autopush.Keys{AuthSecret: auth, PrivateKey: key})
	require.NoError(t, Save(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"private_key"`)

	loaded, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, loaded.Validate())

	keys, err := loaded.DecodeKeys()
	require.NoError(t, err)
	assert.Equal(t, auth, keys.AuthSecret)
	assert.True(t, key.Equal(keys.PrivateKey))
}

func TestDecodeKeys_Invalid(t *testing.T) {
	cfg := &Config{Keys: KeysConfig{AuthSecret: "c2hvcnQ", PrivateKey: "AAAA"}}
	_, err := cfg.DecodeKeys()
	assert.ErrorIs(t, err, rfc8291.ErrAuthSecretLength)
}

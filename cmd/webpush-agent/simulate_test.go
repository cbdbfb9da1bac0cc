package main

import (
	"crypto/ecdh"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinosaki/webpush-agent-go/agent"
	"github.com/shinosaki/webpush-agent-go/autopush"
	"github.com/shinosaki/webpush-agent-go/rfc8291"
	"github.com/shinosaki/webpush-agent-go/webpush"
)

func TestEncryptNotification(t *testing.T) {
	auth, _, key, err := rfc8291.NewSecrets(ecdh.P256())
	require.NoError(t, err)
	keys := autopush.Keys{AuthSecret: auth, PrivateKey: key}

	n, err := encryptNotification(keys, []byte(`{"title":"Hello","body":"World"}`))
	require.NoError(t, err)
	assert.Equal(t, autopush.AES128GCM, n.Headers.Encoding)

	plaintext, err := autopush.NewAutoPushClient(zerolog.Nop()).Decrypt(keys, n)
	require.NoError(t, err)

	effect, err := agent.HandlePush(webpush.NewPushEvent(n.ChannelID, plaintext))
	require.NoError(t, err)
	assert.Equal(t, "Hello", effect.Request.Title)
	assert.Equal(t, "World", effect.Request.Options.Body)
}

func TestSimulatePayload(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().StringVar(&simulateTitle, "title", "", "")
	cmd.Flags().StringVar(&simulateBody, "body", "", "")

	data, err := simulatePayload(cmd)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))

	require.NoError(t, cmd.Flags().Set("title", "Hi"))
	data, err = simulatePayload(cmd)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Hi"}`, string(data))
}

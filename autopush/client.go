package autopush

import (
	"context"
	"crypto/ecdh"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shinosaki/websocket-client-go/websocket"

	"github.com/shinosaki/webpush-agent-go/rfc8291"
	"github.com/shinosaki/webpush-agent-go/webpush"
)

const (
	MOZILLA_PUSH_SERVICE = "wss://push.services.mozilla.com"
	AES128GCM            = "aes128gcm"

	REQUEST_TIMEOUT = 5 * time.Second

	connectRetries       = 3
	connectRetryInterval = 2
)

var (
	ErrClosed              = errors.New("autopush connection closed")
	ErrUnsupportedEncoding = errors.New("unsupported content encoding")
)

// Keys is the user agent's key material for one push subscription.
type Keys struct {
	AuthSecret []byte
	PrivateKey *ecdh.PrivateKey
}

type jsonSender interface {
	SendJSON(v any) error
}

type AutoPushClient struct {
	*websocket.WebSocketClient
	ece              *rfc8291.RFC8291
	log              zerolog.Logger
	helloChan        chan HelloResponse
	notificationChan chan Notification
	done             chan struct{}
	closeOnce        sync.Once
}

func NewAutoPushClient(log zerolog.Logger) *AutoPushClient {
	ap := newClient(log)
	ap.WebSocketClient = websocket.NewWebSocketClient(
		nil,
		func(ws *websocket.WebSocketClient, isReconnecting bool) {
			if !isReconnecting {
				ap.close()
			}
		},
		func(ws *websocket.WebSocketClient, payload []byte) {
			ap.handleMessage(ws, payload)
		},
	)
	return ap
}

func newClient(log zerolog.Logger) *AutoPushClient {
	return &AutoPushClient{
		ece:              rfc8291.NewRFC8291(sha256.New),
		log:              log.With().Str("component", "autopush").Logger(),
		helloChan:        make(chan HelloResponse, 1),
		notificationChan: make(chan Notification, 16),
		done:             make(chan struct{}),
	}
}

// Connect dials the push service, retrying a few times before giving up.
func (c *AutoPushClient) Connect(endpoint string) error {
	if err := c.WebSocketClient.Connect(endpoint, connectRetries, connectRetryInterval); err != nil {
		return fmt.Errorf("failed to connect autopush server: %w", err)
	}
	return nil
}

// Close shuts the websocket connection down. Pending Hello calls fail with
// ErrClosed and the Events channel is closed.
func (c *AutoPushClient) Close() error {
	var err error
	if c.WebSocketClient != nil {
		err = closeTransport(c.WebSocketClient)
	}
	c.close()
	if err != nil {
		return fmt.Errorf("failed to close autopush connection: %w", err)
	}
	return nil
}

func closeTransport(ws any) error {
	switch closer := ws.(type) {
	case interface{ Close() error }:
		return closer.Close()
	case interface{ Close() }:
		closer.Close()
	}
	return nil
}

// close may run from both Close and the websocket close callback.
func (c *AutoPushClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *AutoPushClient) handleMessage(ws jsonSender, payload []byte) {
	c.log.Trace().Bytes("payload", payload).Msg("message received")

	var message Message
	if err := json.Unmarshal(payload, &message); err != nil {
		c.log.Warn().Err(err).Msg("failed to unmarshal message")
		return
	}

	switch message.Type {
	case PING:
		if err := ws.SendJSON(struct{}{}); err != nil {
			c.log.Warn().Err(err).Msg("failed to answer ping")
		}

	case HELLO:
		if data := unmarshal[HelloResponse](c, payload, HELLO); data != nil {
			select {
			case c.helloChan <- *data:
			default:
				c.log.Debug().Str("uaid", data.UAID).Msg("unsolicited hello response")
			}
		}

	case NOTIFICATION:
		if data := unmarshal[Notification](c, payload, NOTIFICATION); data != nil {
			err := ws.SendJSON(Ack{
				Type: ACK,
				Updates: []AckUpdate{
					{
						ChannelID: data.ChannelID,
						Version:   data.Version,
					},
				},
			})
			if err != nil {
				c.log.Warn().Err(err).Str("channel", data.ChannelID).Msg("failed to ack notification")
			}
			select {
			case c.notificationChan <- *data:
			case <-c.done:
			}
		}

	default:
		c.log.Debug().Str("type", string(message.Type)).Msg("unknown message type")
	}
}

func unmarshal[T any](c *AutoPushClient, payload []byte, label MessageType) *T {
	var data T
	if err := json.Unmarshal(payload, &data); err != nil {
		c.log.Warn().Err(err).Str("type", string(label)).Msg("failed to unmarshal payload")
		return nil
	}
	return &data
}

func request[T any](ctx context.Context, ws jsonSender, ch <-chan T, done <-chan struct{}, payload any) (res T, err error) {
	if err := ws.SendJSON(payload); err != nil {
		return res, fmt.Errorf("websocket request failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, REQUEST_TIMEOUT)
	defer cancel()

	select {
	case v := <-ch:
		return v, nil
	case <-done:
		return res, ErrClosed
	case <-ctx.Done():
		return res, ctx.Err()
	}
}

// Hello performs the handshake. The returned UAID identifies this client
// to the push service and must be kept for later connections.
func (c *AutoPushClient) Hello(ctx context.Context, uaid string, channelIDs []string) (HelloResponse, error) {
	return c.hello(ctx, c.WebSocketClient, uaid, channelIDs)
}

func (c *AutoPushClient) hello(ctx context.Context, ws jsonSender, uaid string, channelIDs []string) (HelloResponse, error) {
	if channelIDs == nil {
		channelIDs = []string{}
	}
	res, err := request[HelloResponse](ctx, ws, c.helloChan, c.done, HelloRequest{
		Type:       HELLO,
		UAID:       uaid,
		ChannelIDs: channelIDs,
		UseWebPush: true,
	})
	if err != nil {
		return res, fmt.Errorf("hello failed: %w", err)
	}
	if res.Status != OK {
		return res, fmt.Errorf("hello failed: status %d", res.Status)
	}
	return res, nil
}

// Decrypt returns the plaintext of an aes128gcm encoded notification.
// A notification without data yields an empty plaintext.
func (c *AutoPushClient) Decrypt(keys Keys, notification Notification) ([]byte, error) {
	if notification.Data == "" {
		return nil, nil
	}
	if enc := notification.Headers.Encoding; enc != "" && enc != AES128GCM {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, enc)
	}

	data, err := base64.RawURLEncoding.DecodeString(notification.Data)
	if err != nil {
		return nil, fmt.Errorf("base64 decode error: %w", err)
	}

	payload, err := rfc8291.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("rfc8291 decode error: %w", err)
	}

	appserverPublicKey, err := keys.PrivateKey.Curve().NewPublicKey(payload.KeyId)
	if err != nil {
		return nil, fmt.Errorf("ecdh public key load error: %w", err)
	}

	plaintext, err := c.ece.Decrypt(
		payload.CipherText,
		payload.Salt,
		keys.AuthSecret,
		keys.PrivateKey,
		appserverPublicKey,
	)
	if err != nil {
		return nil, fmt.Errorf("rfc8291 decrypt error: %w", err)
	}
	return plaintext, nil
}

// Events decrypts incoming notifications into push events. Notifications that
// cannot be decrypted are logged and skipped. The channel is closed when the
// connection closes or ctx is done.
func (c *AutoPushClient) Events(ctx context.Context, keys Keys) <-chan webpush.PushEvent {
	out := make(chan webpush.PushEvent)
	go func() {
		defer close(out)
		for {
			var n Notification
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case n = <-c.notificationChan:
			}

			plaintext, err := c.Decrypt(keys, n)
			if err != nil {
				c.log.Warn().Err(err).Str("channel", n.ChannelID).Str("version", n.Version).Msg("webpush decrypt failed")
				continue
			}

			select {
			case out <- webpush.NewPushEvent(n.ChannelID, plaintext):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

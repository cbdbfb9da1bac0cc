package main

import (
	"context"
	"crypto/ecdh"
	"encoding/base64"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shinosaki/webpush-agent-go/agent"
	"github.com/shinosaki/webpush-agent-go/autopush"
	"github.com/shinosaki/webpush-agent-go/desktop"
	"github.com/shinosaki/webpush-agent-go/rfc8291"
	"github.com/shinosaki/webpush-agent-go/webpush"
)

var (
	simulateTitle string
	simulateBody  string
	simulateRaw   string
	simulateWait  time.Duration
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Encrypt a test message with the configured keys and deliver it locally",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		keys, err := cfg.DecodeKeys()
		if err != nil {
			return err
		}

		plaintext := []byte(simulateRaw)
		if !cmd.Flags().Changed("raw") {
			if plaintext, err = simulatePayload(cmd); err != nil {
				return err
			}
		}

		notification, err := encryptNotification(keys, plaintext)
		if err != nil {
			return err
		}

		ap := autopush.NewAutoPushClient(log)
		decrypted, err := ap.Decrypt(keys, notification)
		if err != nil {
			return err
		}

		notifier, err := desktop.NewNotifier(cfg.App.Name, log)
		if err != nil {
			return err
		}
		opener, err := desktop.NewOpener(cfg.App.Origin)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		ctx, cancelWait := context.WithTimeout(ctx, simulateWait)
		defer cancelWait()

		clicks, err := notifier.Clicks(ctx)
		if err != nil {
			return err
		}

		pushes := make(chan webpush.PushEvent, 1)
		pushes <- webpush.NewPushEvent(notification.ChannelID, decrypted)
		close(pushes)

		a := agent.New(desktop.NewPlatform(notifier, opener), log)
		return a.Serve(ctx, pushes, clicks)
	},
}

func init() {
	f := simulateCmd.Flags()
	f.StringVar(&simulateTitle, "title", "", "notification title, omitted when empty")
	f.StringVar(&simulateBody, "body", "", "notification body, omitted when empty")
	f.StringVar(&simulateRaw, "raw", "", "raw payload, sent as is instead of --title/--body")
	f.DurationVar(&simulateWait, "wait", 30*time.Second, "how long to wait for a click")
}

func simulatePayload(cmd *cobra.Command) ([]byte, error) {
	payload := map[string]string{}
	if cmd.Flags().Changed("title") {
		payload["title"] = simulateTitle
	}
	if cmd.Flags().Changed("body") {
		payload["body"] = simulateBody
	}
	return json.Marshal(payload)
}

// encryptNotification plays the application server and push service: it
// encrypts plaintext for keys and wraps it the way autopush relays it.
func encryptNotification(keys autopush.Keys, plaintext []byte) (autopush.Notification, error) {
	_, salt, appserverKey, err := rfc8291.NewSecrets(ecdh.P256())
	if err != nil {
		return autopush.Notification{}, err
	}

	data, err := rfc8291.NewRFC8291(nil).Encrypt(plaintext, salt, keys.AuthSecret, keys.PrivateKey.PublicKey(), appserverKey)
	if err != nil {
		return autopush.Notification{}, err
	}

	return autopush.Notification{
		Type:      autopush.NOTIFICATION,
		ChannelID: "simulate",
		Version:   time.Now().UTC().Format(time.RFC3339Nano),
		Data:      base64.RawURLEncoding.EncodeToString(data),
		Headers:   autopush.NotificationHeaders{Encoding: autopush.AES128GCM},
	}, nil
}

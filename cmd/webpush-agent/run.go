package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shinosaki/webpush-agent-go/agent"
	"github.com/shinosaki/webpush-agent-go/autopush"
	"github.com/shinosaki/webpush-agent-go/desktop"
	"github.com/shinosaki/webpush-agent-go/webpush"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to the push service and show incoming pushes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		keys, err := cfg.DecodeKeys()
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		notifier, err := desktop.NewNotifier(cfg.App.Name, log)
		if err != nil {
			return err
		}
		opener, err := desktop.NewOpener(cfg.App.Origin)
		if err != nil {
			return err
		}
		clicks, err := notifier.Clicks(ctx)
		if err != nil {
			return err
		}

		ap := autopush.NewAutoPushClient(log)
		if err := ap.Connect(cfg.Push.Endpoint); err != nil {
			return err
		}
		defer func() {
			if err := ap.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close push connection")
			}
		}()

		hello, err := ap.Hello(ctx, cfg.Push.UAID, cfg.Push.ChannelIDs)
		if err != nil {
			return fmt.Errorf("failed to handshake autopush server: %w", err)
		}
		if hello.UAID != cfg.Push.UAID {
			log.Warn().Str("uaid", hello.UAID).Msg("push service assigned a new UAID, set push.uaid in the config to keep it")
		}
		log.Info().
			Str("endpoint", cfg.Push.Endpoint).
			Str("uaid", hello.UAID).
			Strs("channels", cfg.Push.ChannelIDs).
			Msg("listening for pushes")

		// Stop serving once the push connection is gone for good.
		serveCtx, stop := context.WithCancel(ctx)
		defer stop()
		pushes := make(chan webpush.PushEvent)
		go func() {
			defer stop()
			for ev := range ap.Events(serveCtx, keys) {
				select {
				case pushes <- ev:
				case <-serveCtx.Done():
					return
				}
			}
			log.Warn().Msg("autopush connection closed")
		}()

		a := agent.New(desktop.NewPlatform(notifier, opener), log)
		err = a.Serve(serveCtx, pushes, clicks)
		log.Info().Msg("stopped")
		return err
	},
}

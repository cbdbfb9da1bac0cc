package agent

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/shinosaki/webpush-agent-go/webpush"
)

// Agent binds the push and click handlers to a Platform.
type Agent struct {
	platform Platform
	lifetime *Lifetime
	log      zerolog.Logger
}

func New(platform Platform, log zerolog.Logger) *Agent {
	log = log.With().Str("component", "agent").Logger()
	return &Agent{
		platform: platform,
		lifetime: NewLifetime(log),
		log:      log,
	}
}

// OnPush handles one push delivery. The display call is registered as
// pending work; only a decode failure is returned.
func (a *Agent) OnPush(ctx context.Context, ev webpush.PushEvent) error {
	log := a.log.With().Str("event", ev.ID).Str("channel", ev.ChannelID).Logger()
	log.Info().Msg("push received")
	log.Info().Str("data", ev.Text()).Msg("push had this data")

	effect, err := HandlePush(ev)
	if err != nil {
		return err
	}

	req := effect.Request
	a.lifetime.WaitUntil(ctx, "show:"+ev.ID, func(ctx context.Context) error {
		if err := a.platform.ShowNotification(ctx, req.Title, req.Options); err != nil {
			return fmt.Errorf("%w: %w", ErrDisplay, err)
		}
		return nil
	})
	return nil
}

// OnNotificationClick dismisses the clicked notification and opens the
// application window as pending work.
func (a *Agent) OnNotificationClick(ctx context.Context, ev ClickEvent) {
	effect := HandleNotificationClick(ev)

	if effect.Close != nil {
		if err := effect.Close.Close(ctx); err != nil {
			a.log.Debug().Err(err).Str("notification", effect.Close.ID()).Msg("close notification failed")
		}
	}

	a.lifetime.WaitUntil(ctx, "open:"+effect.URL, func(ctx context.Context) error {
		if _, err := a.platform.OpenWindow(ctx, effect.URL); err != nil {
			return fmt.Errorf("%w: %w", ErrNavigation, err)
		}
		return nil
	})
}

// Serve dispatches events until ctx is done or both channels are closed,
// then waits for pending work. Pending work gets a context that outlives ctx
// so in-flight notifications are not dropped at shutdown.
func (a *Agent) Serve(ctx context.Context, pushes <-chan webpush.PushEvent, clicks <-chan ClickEvent) error {
	workCtx := context.WithoutCancel(ctx)
	defer a.lifetime.Wait()

	for pushes != nil || clicks != nil {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-pushes:
			if !ok {
				pushes = nil
				continue
			}
			if err := a.OnPush(workCtx, ev); err != nil {
				a.log.Warn().Err(err).Str("event", ev.ID).Msg("push handling failed")
			}

		case ev, ok := <-clicks:
			if !ok {
				clicks = nil
				continue
			}
			a.OnNotificationClick(workCtx, ev)
		}
	}
	return nil
}

// Wait blocks until pending work registered by OnPush and OnNotificationClick has settled.
func (a *Agent) Wait() {
	a.lifetime.Wait()
}

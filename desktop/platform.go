package desktop

import (
	"context"

	"github.com/shinosaki/webpush-agent-go/webpush"
)

// Platform shows notifications on the desktop and opens clicked ones in the browser.
type Platform struct {
	*Notifier
	*Opener
}

func NewPlatform(notifier *Notifier, opener *Opener) *Platform {
	return &Platform{Notifier: notifier, Opener: opener}
}

func (p *Platform) ShowNotification(ctx context.Context, title string, opts webpush.NotificationOptions) error {
	_, err := p.Show(ctx, title, opts)
	return err
}

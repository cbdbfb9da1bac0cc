package agent

import (
	"context"
	"errors"

	"github.com/shinosaki/webpush-agent-go/webpush"
)

// Path opened when a notification is clicked.
const CLICK_URL = "/"

var (
	ErrDisplay    = errors.New("show notification failed")
	ErrNavigation = errors.New("open window failed")
)

// Notification is a displayed notification referenced by a click.
type Notification interface {
	ID() string
	Close(ctx context.Context) error
}

type ClickEvent struct {
	Notification Notification
	Action       string
}

type WindowHandle struct {
	URL string
}

// Platform performs the side effects the handlers describe.
type Platform interface {
	ShowNotification(ctx context.Context, title string, opts webpush.NotificationOptions) error
	OpenWindow(ctx context.Context, url string) (WindowHandle, error)
}

// ShowNotification asks the platform to display Request.
type ShowNotification struct {
	Request webpush.NotificationRequest
}

// Navigate closes a notification and then opens or focuses URL.
type Navigate struct {
	Close Notification
	URL   string
}

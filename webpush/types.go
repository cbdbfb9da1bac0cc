package webpush

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	DEFAULT_TITLE = "Push Notification"
	DEFAULT_BODY  = "You have received a push notification."
)

// PushEvent is one decrypted push message delivered to the agent.
// It lives only for the duration of handling.
type PushEvent struct {
	ID         string
	ChannelID  string
	Data       []byte
	ReceivedAt time.Time
}

func NewPushEvent(channelID string, data []byte) PushEvent {
	return PushEvent{
		ID:         uuid.NewString(),
		ChannelID:  channelID,
		Data:       data,
		ReceivedAt: time.Now(),
	}
}

// Text returns the raw payload as text.
func (e PushEvent) Text() string {
	return string(e.Data)
}

// JSON decodes the payload into v.
func (e PushEvent) JSON(v any) error {
	return json.Unmarshal(e.Data, v)
}

// https://developer.mozilla.org/docs/Web/API/ServiceWorkerRegistration/showNotification
type NotificationOptions struct {
	Body string `json:"body"`
}

type NotificationRequest struct {
	Title   string
	Options NotificationOptions
}

// NewNotificationRequest fills absent fields with the default title and body.
func NewNotificationRequest(p Payload) NotificationRequest {
	req := NotificationRequest{
		Title:   DEFAULT_TITLE,
		Options: NotificationOptions{Body: DEFAULT_BODY},
	}
	if p.Title != nil {
		req.Title = *p.Title
	}
	if p.Body != nil {
		req.Options.Body = *p.Body
	}
	return req
}

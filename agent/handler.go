package agent

import "github.com/shinosaki/webpush-agent-go/webpush"

// HandlePush turns a push delivery into a display request.
// A payload that fails to decode yields a *webpush.PayloadDecodeError and no effect.
func HandlePush(ev webpush.PushEvent) (ShowNotification, error) {
	payload, err := webpush.ParsePayload(ev.Data)
	if err != nil {
		return ShowNotification{}, err
	}
	return ShowNotification{Request: webpush.NewNotificationRequest(payload)}, nil
}

func HandleNotificationClick(ev ClickEvent) Navigate {
	return Navigate{Close: ev.Notification, URL: CLICK_URL}
}

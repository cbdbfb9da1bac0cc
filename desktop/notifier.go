package desktop

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"

	"github.com/shinosaki/webpush-agent-go/agent"
	"github.com/shinosaki/webpush-agent-go/webpush"
)

// https://specifications.freedesktop.org/notification-spec/latest/
const (
	NOTIFICATIONS_NAME      = "org.freedesktop.Notifications"
	NOTIFICATIONS_PATH      = "/org/freedesktop/Notifications"
	NOTIFICATIONS_INTERFACE = "org.freedesktop.Notifications"

	DEFAULT_ACTION = "default"

	ACTION_INVOKED      = NOTIFICATIONS_INTERFACE + ".ActionInvoked"
	NOTIFICATION_CLOSED = NOTIFICATIONS_INTERFACE + ".NotificationClosed"
)

type busObject interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// Notifier shows notifications through the freedesktop notification server.
// Only notifications it has shown and not yet seen closed produce clicks;
// the notification server broadcasts signals for every application.
type Notifier struct {
	conn    *dbus.Conn
	obj     busObject
	appName string
	log     zerolog.Logger

	mu    sync.Mutex
	shown map[uint32]struct{}
}

func newNotifier(conn *dbus.Conn, obj busObject, appName string, log zerolog.Logger) *Notifier {
	return &Notifier{
		conn:    conn,
		obj:     obj,
		appName: appName,
		log:     log.With().Str("component", "notifier").Logger(),
		shown:   make(map[uint32]struct{}),
	}
}

func NewNotifier(appName string, log zerolog.Logger) (*Notifier, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect session bus: %w", err)
	}
	return newNotifier(conn, conn.Object(NOTIFICATIONS_NAME, NOTIFICATIONS_PATH), appName, log), nil
}

// Show displays a notification and returns its server assigned id.
// Clicking the notification body invokes the default action.
func (n *Notifier) Show(ctx context.Context, title string, opts webpush.NotificationOptions) (uint32, error) {
	call := n.obj.CallWithContext(ctx, NOTIFICATIONS_INTERFACE+".Notify", 0,
		n.appName,
		uint32(0),
		"",
		title,
		opts.Body,
		[]string{DEFAULT_ACTION, "Open"},
		map[string]dbus.Variant{},
		int32(-1),
	)
	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("notify failed: %w", err)
	}

	n.mu.Lock()
	n.shown[id] = struct{}{}
	n.mu.Unlock()
	n.log.Debug().Uint32("id", id).Str("title", title).Msg("notification shown")
	return id, nil
}

func (n *Notifier) Close(ctx context.Context, id uint32) error {
	if err := n.obj.CallWithContext(ctx, NOTIFICATIONS_INTERFACE+".CloseNotification", 0, id).Err; err != nil {
		return fmt.Errorf("close notification %d failed: %w", id, err)
	}
	return nil
}

// Clicks emits a click event for each action invoked on a notification
// shown by n, until ctx is done.
func (n *Notifier) Clicks(ctx context.Context) (<-chan agent.ClickEvent, error) {
	for _, member := range []string{"ActionInvoked", "NotificationClosed"} {
		if err := n.conn.AddMatchSignal(
			dbus.WithMatchObjectPath(dbus.ObjectPath(NOTIFICATIONS_PATH)),
			dbus.WithMatchInterface(NOTIFICATIONS_INTERFACE),
			dbus.WithMatchMember(member),
		); err != nil {
			return nil, fmt.Errorf("failed to subscribe %s: %w", member, err)
		}
	}

	signals := make(chan *dbus.Signal, 16)
	n.conn.Signal(signals)

	out := make(chan agent.ClickEvent)
	go func() {
		defer close(out)
		defer n.conn.RemoveSignal(signals)
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-signals:
				if !ok {
					return
				}
				ev, ok := n.handleSignal(sig)
				if !ok {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// handleSignal forgets closed notifications and turns an action invoked on
// one of ours into a click. The id is forgotten on click so a notification
// is routed at most once.
func (n *Notifier) handleSignal(sig *dbus.Signal) (agent.ClickEvent, bool) {
	if sig == nil || len(sig.Body) < 2 {
		return agent.ClickEvent{}, false
	}
	id, ok := sig.Body[0].(uint32)
	if !ok {
		return agent.ClickEvent{}, false
	}

	switch sig.Name {
	case NOTIFICATION_CLOSED:
		n.forget(id)
		return agent.ClickEvent{}, false

	case ACTION_INVOKED:
		if !n.forget(id) {
			n.log.Trace().Uint32("id", id).Msg("ignoring action of foreign notification")
			return agent.ClickEvent{}, false
		}
		action, _ := sig.Body[1].(string)
		return agent.ClickEvent{
			Notification: &Handle{id: id, notifier: n},
			Action:       action,
		}, true
	}
	return agent.ClickEvent{}, false
}

// forget removes id and reports whether it was shown by n.
func (n *Notifier) forget(id uint32) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.shown[id]
	delete(n.shown, id)
	return ok
}

// Handle refers to a notification shown by a Notifier.
type Handle struct {
	id       uint32
	notifier *Notifier
}

func (h *Handle) ID() string {
	return strconv.FormatUint(uint64(h.id), 10)
}

func (h *Handle) Close(ctx context.Context) error {
	return h.notifier.Close(ctx, h.id)
}

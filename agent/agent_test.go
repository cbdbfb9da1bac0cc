package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinosaki/webpush-agent-go/webpush"
)

type shown struct {
	title string
	opts  webpush.NotificationOptions
}

type fakePlatform struct {
	mu      sync.Mutex
	shown   []shown
	opened  []string
	showErr error
	openErr error
}

func (p *fakePlatform) ShowNotification(ctx context.Context, title string, opts webpush.NotificationOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.showErr != nil {
		return p.showErr
	}
	p.shown = append(p.shown, shown{title, opts})
	return nil
}

func (p *fakePlatform) OpenWindow(ctx context.Context, url string) (WindowHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opened = append(p.opened, url)
	if p.openErr != nil {
		return WindowHandle{}, p.openErr
	}
	return WindowHandle{URL: url}, nil
}

type fakeNotification struct {
	id     string
	closed int
}

func (n *fakeNotification) ID() string { return n.id }

func (n *fakeNotification) Close(ctx context.Context) error {
	n.closed++
	return nil
}

func push(data string) webpush.PushEvent {
	return webpush.NewPushEvent("channel", []byte(data))
}

func TestHandlePush(t *testing.T) {
	effect, err := HandlePush(push(`{"title":"Hello","body":"World"}`))
	require.NoError(t, err)
	assert.Equal(t, "Hello", effect.Request.Title)
	assert.Equal(t, "World", effect.Request.Options.Body)

	effect, err = HandlePush(push(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "Push Notification", effect.Request.Title)
	assert.Equal(t, "You have received a push notification.", effect.Request.Options.Body)

	_, err = HandlePush(push("not json"))
	assert.ErrorIs(t, err, webpush.ErrPayloadDecode)
}

func TestHandleNotificationClick(t *testing.T) {
	n := &fakeNotification{id: "7"}
	effect := HandleNotificationClick(ClickEvent{Notification: n})
	assert.Equal(t, "/", effect.URL)
	assert.Same(t, n, effect.Close)
	assert.Zero(t, n.closed)
}

func TestAgent_OnPush(t *testing.T) {
	platform := &fakePlatform{}
	a := New(platform, zerolog.Nop())

	require.NoError(t, a.OnPush(context.Background(), push(`{"title":"Hello","body":"World"}`)))
	a.Wait()

	require.Len(t, platform.shown, 1)
	assert.Equal(t, "Hello", platform.shown[0].title)
	assert.Equal(t, "World", platform.shown[0].opts.Body)
}

func TestAgent_OnPush_Malformed(t *testing.T) {
	platform := &fakePlatform{}
	a := New(platform, zerolog.Nop())

	err := a.OnPush(context.Background(), push("not json"))
	a.Wait()

	assert.ErrorIs(t, err, webpush.ErrPayloadDecode)
	assert.Empty(t, platform.shown)
}

func TestAgent_OnPush_DisplayFailureIsNotFatal(t *testing.T) {
	platform := &fakePlatform{showErr: errors.New("permission denied")}
	a := New(platform, zerolog.Nop())

	assert.NoError(t, a.OnPush(context.Background(), push(`{"title":"a"}`)))
	a.Wait()

	platform.showErr = nil
	assert.NoError(t, a.OnPush(context.Background(), push(`{"title":"b"}`)))
	a.Wait()

	require.Len(t, platform.shown, 1)
	assert.Equal(t, "b", platform.shown[0].title)
}

func TestAgent_OnPush_Independent(t *testing.T) {
	platform := &fakePlatform{}
	a := New(platform, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, a.OnPush(ctx, push(`{"title":"first","body":"one"}`)))
	a.Wait()
	require.NoError(t, a.OnPush(ctx, push(`{}`)))
	a.Wait()

	require.Len(t, platform.shown, 2)
	assert.Equal(t, "first", platform.shown[0].title)
	assert.Equal(t, webpush.DEFAULT_TITLE, platform.shown[1].title)
	assert.Equal(t, webpush.DEFAULT_BODY, platform.shown[1].opts.Body)
}

func TestAgent_OnNotificationClick(t *testing.T) {
	platform := &fakePlatform{}
	a := New(platform, zerolog.Nop())
	n := &fakeNotification{id: "42"}

	a.OnNotificationClick(context.Background(), ClickEvent{Notification: n, Action: "default"})
	a.Wait()

	assert.Equal(t, 1, n.closed)
	assert.Equal(t, []string{"/"}, platform.opened)
}

func TestAgent_OnNotificationClick_NavigationFailure(t *testing.T) {
	platform := &fakePlatform{openErr: errors.New("no browser")}
	a := New(platform, zerolog.Nop())
	n := &fakeNotification{id: "1"}

	a.OnNotificationClick(context.Background(), ClickEvent{Notification: n})
	a.Wait()

	assert.Equal(t, 1, n.closed)
	assert.Equal(t, []string{"/"}, platform.opened)
}

func TestAgent_Serve(t *testing.T) {
	platform := &fakePlatform{}
	a := New(platform, zerolog.Nop())

	pushes := make(chan webpush.PushEvent, 3)
	clicks := make(chan ClickEvent, 1)
	n := &fakeNotification{id: "9"}

	pushes <- push(`{"title":"one"}`)
	pushes <- push("not json")
	pushes <- push(`{"title":"two"}`)
	clicks <- ClickEvent{Notification: n}
	close(pushes)
	close(clicks)

	done := make(chan error, 1)
	go func() { done <- a.Serve(context.Background(), pushes, clicks) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return")
	}

	var titles []string
	for _, s := range platform.shown {
		titles = append(titles, s.title)
	}
	assert.ElementsMatch(t, []string{"one", "two"}, titles)
	assert.Equal(t, 1, n.closed)
	assert.Equal(t, []string{"/"}, platform.opened)
}

func TestAgent_Serve_StopsOnCancel(t *testing.T) {
	a := New(&fakePlatform{}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, a.Serve(ctx, make(chan webpush.PushEvent), make(chan ClickEvent)))
}

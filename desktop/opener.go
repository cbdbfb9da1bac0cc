package desktop

import (
	"context"
	"fmt"
	"net/url"

	"github.com/pkg/browser"

	"github.com/shinosaki/webpush-agent-go/agent"
)

// Opener opens application URLs in the user's browser.
type Opener struct {
	origin *url.URL
	open   func(string) error
}

// NewOpener resolves every opened path against origin, e.g. http://localhost:8080.
func NewOpener(origin string) (*Opener, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("invalid app origin: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid app origin %q: scheme and host are required", origin)
	}
	return &Opener{origin: u, open: browser.OpenURL}, nil
}

func (o *Opener) Resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", path, err)
	}
	return o.origin.ResolveReference(ref).String(), nil
}

func (o *Opener) OpenWindow(ctx context.Context, path string) (agent.WindowHandle, error) {
	target, err := o.Resolve(path)
	if err != nil {
		return agent.WindowHandle{}, err
	}
	if err := ctx.Err(); err != nil {
		return agent.WindowHandle{}, err
	}
	if err := o.open(target); err != nil {
		return agent.WindowHandle{}, fmt.Errorf("open %s: %w", target, err)
	}
	return agent.WindowHandle{URL: target}, nil
}

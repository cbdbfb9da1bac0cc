package agent

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Lifetime tracks pending asynchronous work so the process is not torn
// down while a notification or navigation is still in flight.
type Lifetime struct {
	log zerolog.Logger
	wg  sync.WaitGroup
}

func NewLifetime(log zerolog.Logger) *Lifetime {
	return &Lifetime{log: log}
}

// WaitUntil runs work in the background and keeps the lifetime open until it returns.
// A failure is confined to this piece of work.
func (l *Lifetime) WaitUntil(ctx context.Context, label string, work func(ctx context.Context) error) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := work(ctx); err != nil {
			l.log.Warn().Err(err).Str("work", label).Msg("pending work failed")
		}
	}()
}

// Wait blocks until all pending work has settled.
func (l *Lifetime) Wait() {
	l.wg.Wait()
}

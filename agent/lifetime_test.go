package agent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLifetime_WaitBlocksUntilWorkSettles(t *testing.T) {
	l := NewLifetime(zerolog.Nop())
	release := make(chan struct{})
	var finished atomic.Int32

	for i := 0; i < 3; i++ {
		l.WaitUntil(context.Background(), "work", func(ctx context.Context) error {
			<-release
			finished.Add(1)
			if finished.Load() == 2 {
				return errors.New("rejected")
			}
			return nil
		})
	}

	waited := make(chan struct{})
	go func() {
		l.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("wait returned before work finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-waited
	assert.Equal(t, int32(3), finished.Load())
}

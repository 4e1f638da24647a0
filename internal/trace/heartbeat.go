package trace

import (
	"context"
	"fmt"
	"time"
)

// Heartbeat emits a liveness event every interval until stopped. A trace
// that keeps beating without span ends points at a stuck work loop.
type Heartbeat struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StartHeartbeat beats until ctx is done or Stop is called. It returns nil
// when tracing is off or interval is not positive.
func StartHeartbeat(ctx context.Context, tracer Tracer, interval time.Duration) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	h := &Heartbeat{cancel: cancel, done: make(chan struct{})}
	go h.run(ctx, tracer, interval)
	return h
}

func (h *Heartbeat) run(ctx context.Context, tracer Tracer, interval time.Duration) {
	defer close(h.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	for beat := 1; ; beat++ {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			tracer.Emit(&Event{
				Time:   now,
				Kind:   KindHeartbeat,
				Scope:  ScopeSession,
				Name:   "heartbeat",
				Detail: fmt.Sprintf("#%d at %s", beat, now.Sub(start).Round(time.Millisecond)),
			})
		}
	}
}

// Stop halts the heartbeat and waits for its goroutine. Calling it again is
// a no-op.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.cancel()
	<-h.done
}

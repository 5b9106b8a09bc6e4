package poll

import (
	"context"
	"sync"
	"time"
)

// Fetch is one poll iteration. It receives a context that is cancelled
// when the poller stops; an iteration still in flight at that point must
// check the context before applying its result.
type Fetch func(ctx context.Context)

// Poller invokes a fetch immediately and then on a fixed interval until
// stopped. Overlapping iterations are allowed: each fetch fully replaces
// its state slice, so the last response to resolve wins. That race is
// accepted under slow networks, not corrected.
type Poller struct {
	interval time.Duration
	fetch    Fetch

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

func New(interval time.Duration, fetch Fetch) *Poller {
	return &Poller{interval: interval, fetch: fetch}
}

// Start begins polling. It is a no-op on a poller that already started.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil || p.stopped {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx)
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	// Immediate first iteration, then the interval.
	go p.fetch(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go p.fetch(ctx)
		}
	}
}

// Stop cancels the loop and waits for it to wind down. No new iteration
// starts afterwards; iterations already in flight observe a cancelled
// context.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.stopped = true
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Package poller implements the client-side polling loop that follows a
// generation record until it reaches a terminal status.
package poller

import (
	"context"
	"time"

	"server/internal/domain"
)

const (
	DefaultInterval   = 2 * time.Second
	DefaultMaxRetries = 10
	DefaultMaxBackoff = 30 * time.Second
)

// FetchFunc retrieves the current record snapshot.
type FetchFunc func(ctx context.Context) (*domain.Content, error)

// Options tunes the polling loop. Zero values fall back to the defaults.
type Options struct {
	Interval   time.Duration
	MaxRetries int
	MaxBackoff time.Duration
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = DefaultMaxBackoff
	}
	return o
}

// Callbacks receive loop events. All of them are optional and are invoked
// from the poller's own goroutine.
type Callbacks struct {
	// OnUpdate fires after every successful fetch, terminal or not.
	OnUpdate func(*domain.Content)
	// OnDone fires once, with the final record, when a terminal status is
	// observed. The poller does not distinguish the terminal states.
	OnDone func(*domain.Content)
	// OnError fires once when consecutive fetch failures exhaust MaxRetries.
	OnError func(error)
}

// Poller drives a bounded-retry fetch loop. A successful fetch resets the
// retry budget; consecutive failures back off exponentially up to MaxBackoff.
type Poller struct {
	fetch  FetchFunc
	cb     Callbacks
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New(fetch FetchFunc, cb Callbacks, opts Options) *Poller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		fetch:  fetch,
		cb:     cb,
		opts:   opts.withDefaults(),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start launches the loop. The first fetch fires immediately.
func (p *Poller) Start() {
	go p.run()
}

// Stop cancels the loop. No fetch or callback fires after Stop returns and
// the Done channel is closed.
func (p *Poller) Stop() {
	p.cancel()
	<-p.done
}

// Done is closed when the loop has exited for any reason.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

func (p *Poller) run() {
	defer close(p.done)
	retries := 0
	delay := time.Duration(0)

	for {
		if !p.sleep(delay) {
			return
		}

		record, err := p.fetch(p.ctx)
		if p.ctx.Err() != nil {
			return
		}
		if err != nil {
			retries++
			if retries >= p.opts.MaxRetries {
				if p.cb.OnError != nil {
					p.cb.OnError(err)
				}
				return
			}
			delay = p.backoff(retries)
			continue
		}

		retries = 0
		if p.cb.OnUpdate != nil {
			p.cb.OnUpdate(record)
		}
		if record.OverallStatus.Terminal() {
			if p.cb.OnDone != nil {
				p.cb.OnDone(record)
			}
			return
		}
		delay = p.opts.Interval
	}
}

// sleep waits for the given delay, returning false when the poller was
// stopped meanwhile.
func (p *Poller) sleep(delay time.Duration) bool {
	if delay <= 0 {
		return p.ctx.Err() == nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-p.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (p *Poller) backoff(retries int) time.Duration {
	delay := p.opts.Interval
	for i := 0; i < retries; i++ {
		delay *= 2
		if delay >= p.opts.MaxBackoff {
			return p.opts.MaxBackoff
		}
	}
	return delay
}

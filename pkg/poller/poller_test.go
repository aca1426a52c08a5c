package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"server/internal/domain"
)

func processingRecord() *domain.Content {
	return &domain.Content{ID: "rec-1", OverallStatus: domain.StatusProcessing}
}

func completedRecord() *domain.Content {
	return &domain.Content{ID: "rec-1", OverallStatus: domain.StatusCompleted}
}

// scriptedFetch returns the queued results in order, then keeps repeating the
// last one.
func scriptedFetch(results []func() (*domain.Content, error), calls *int32) FetchFunc {
	var mu sync.Mutex
	i := 0
	return func(ctx context.Context) (*domain.Content, error) {
		atomic.AddInt32(calls, 1)
		mu.Lock()
		defer mu.Unlock()
		if i >= len(results) {
			return results[len(results)-1]()
		}
		r := results[i]
		i++
		return r()
	}
}

func ok(c *domain.Content) func() (*domain.Content, error) {
	return func() (*domain.Content, error) { return c, nil }
}

func fail(err error) func() (*domain.Content, error) {
	return func() (*domain.Content, error) { return nil, err }
}

func waitDone(t *testing.T, p *Poller) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("poller did not finish in time")
	}
}

func TestPollerStopsAtTerminalStatus(t *testing.T) {
	var calls int32
	fetch := scriptedFetch([]func() (*domain.Content, error){
		ok(processingRecord()),
		ok(processingRecord()),
		ok(completedRecord()),
	}, &calls)

	var updates int32
	var done *domain.Content
	var errs int32
	p := New(fetch, Callbacks{
		OnUpdate: func(*domain.Content) { atomic.AddInt32(&updates, 1) },
		OnDone:   func(c *domain.Content) { done = c },
		OnError:  func(error) { atomic.AddInt32(&errs, 1) },
	}, Options{Interval: time.Millisecond})

	p.Start()
	waitDone(t, p)

	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("fetch calls = %d, want 3", got)
	}
	if got := atomic.LoadInt32(&updates); got != 3 {
		t.Fatalf("OnUpdate calls = %d, want 3", got)
	}
	if done == nil || done.OverallStatus != domain.StatusCompleted {
		t.Fatalf("OnDone record = %+v, want completed", done)
	}
	if atomic.LoadInt32(&errs) != 0 {
		t.Fatalf("OnError fired on a successful run")
	}
}

func TestPollerErrorsAfterMaxRetries(t *testing.T) {
	var calls int32
	fetch := scriptedFetch([]func() (*domain.Content, error){
		fail(errors.New("connection refused")),
	}, &calls)

	var errs int32
	var doneFired int32
	p := New(fetch, Callbacks{
		OnDone:  func(*domain.Content) { atomic.AddInt32(&doneFired, 1) },
		OnError: func(error) { atomic.AddInt32(&errs, 1) },
	}, Options{Interval: time.Millisecond, MaxRetries: 3})

	p.Start()
	waitDone(t, p)

	// Give any stray scheduled fetch a chance to fire before asserting.
	time.Sleep(20 * time.Millisecond)

	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("fetch calls = %d, want exactly 3", got)
	}
	if got := atomic.LoadInt32(&errs); got != 1 {
		t.Fatalf("OnError calls = %d, want exactly 1", got)
	}
	if atomic.LoadInt32(&doneFired) != 0 {
		t.Fatalf("OnDone fired on a failed run")
	}
}

func TestPollerSuccessResetsRetryBudget(t *testing.T) {
	var calls int32
	boom := errors.New("boom")
	fetch := scriptedFetch([]func() (*domain.Content, error){
		fail(boom),
		fail(boom),
		ok(processingRecord()),
		fail(boom),
		fail(boom),
		ok(completedRecord()),
	}, &calls)

	var errs int32
	var done *domain.Content
	p := New(fetch, Callbacks{
		OnDone:  func(c *domain.Content) { done = c },
		OnError: func(error) { atomic.AddInt32(&errs, 1) },
	}, Options{Interval: time.Millisecond, MaxRetries: 3})

	p.Start()
	waitDone(t, p)

	if atomic.LoadInt32(&errs) != 0 {
		t.Fatalf("OnError fired although each failure streak stayed under the budget")
	}
	if done == nil || done.OverallStatus != domain.StatusCompleted {
		t.Fatalf("OnDone record = %+v, want completed", done)
	}
}

func TestStopPreventsFurtherFetches(t *testing.T) {
	var calls int32
	firstFetch := make(chan struct{}, 1)
	fetch := func(ctx context.Context) (*domain.Content, error) {
		atomic.AddInt32(&calls, 1)
		select {
		case firstFetch <- struct{}{}:
		default:
		}
		return processingRecord(), nil
	}

	p := New(fetch, Callbacks{}, Options{Interval: time.Hour})
	p.Start()

	select {
	case <-firstFetch:
	case <-time.After(2 * time.Second):
		t.Fatalf("first fetch never happened")
	}

	p.Stop()
	got := atomic.LoadInt32(&calls)
	time.Sleep(20 * time.Millisecond)
	if after := atomic.LoadInt32(&calls); after != got {
		t.Fatalf("fetches continued after Stop: %d -> %d", got, after)
	}

	select {
	case <-p.Done():
	default:
		t.Fatalf("Done not closed after Stop")
	}
}

func TestBackoffIsCapped(t *testing.T) {
	p := New(nil, Callbacks{}, Options{Interval: time.Second, MaxBackoff: 30 * time.Second})

	tests := []struct {
		retries int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{20, 30 * time.Second},
	}
	for _, tc := range tests {
		if got := p.backoff(tc.retries); got != tc.want {
			t.Fatalf("backoff(%d) = %s, want %s", tc.retries, got, tc.want)
		}
	}
}

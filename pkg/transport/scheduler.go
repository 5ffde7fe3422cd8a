package transport

import (
	"sync"
	"time"
)

// Task is a handle to a scheduled repeating task.
type Task interface {
	// Stop cancels the task. Safe to call multiple times; after Stop
	// returns no further ticks are delivered.
	Stop()
}

// Scheduler schedules repeating fire-and-forget callbacks. The provisioning
// socket uses it for the heartbeat timer; tests substitute a manually
// driven implementation.
type Scheduler interface {
	// Schedule runs fn every interval until the returned task is stopped.
	Schedule(interval time.Duration, fn func()) Task
}

// TickerScheduler is the production Scheduler backed by time.Ticker.
type TickerScheduler struct{}

// Schedule runs fn on its own goroutine every interval.
func (TickerScheduler) Schedule(interval time.Duration, fn func()) Task {
	t := &tickerTask{
		ticker: time.NewTicker(interval),
		stopCh: make(chan struct{}),
	}
	go t.loop(fn)
	return t
}

type tickerTask struct {
	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
}

func (t *tickerTask) loop(fn func()) {
	for {
		select {
		case <-t.stopCh:
			return
		case <-t.ticker.C:
			fn()
		}
	}
}

// Stop cancels the task.
func (t *tickerTask) Stop() {
	t.stopOnce.Do(func() {
		t.ticker.Stop()
		close(t.stopCh)
	})
}

// Compile-time interface satisfaction checks.
var (
	_ Scheduler = TickerScheduler{}
	_ Task      = (*tickerTask)(nil)
)

// Package watch keeps a client's view of recordings fresh. It combines a
// push change feed with a periodic refetch so updates still arrive when the
// feed drops events.
package watch

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Event is one change notification from the feed.
type Event struct {
	Table string // "recordings" or "transcripts"
	Type  string // "INSERT", "UPDATE" or "DELETE"
}

// ChangeFeed delivers change events until closed.
type ChangeFeed interface {
	Events() <-chan Event
	Close() error
}

// Watcher invokes a single refresh callback on every feed event and on an
// unconditional interval tick.
type Watcher struct {
	feed     ChangeFeed
	interval time.Duration
	refresh  func(ctx context.Context)
	log      *logrus.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// DefaultInterval is the fallback refetch period.
const DefaultInterval = 10 * time.Second

func NewWatcher(feed ChangeFeed, interval time.Duration, refresh func(ctx context.Context), log *logrus.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		feed:     feed,
		interval: interval,
		refresh:  refresh,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start launches the watch loop. It returns immediately; Close stops it.
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	go w.run(ctx)
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.feed.Events():
			if !ok {
				// Feed gone; the ticker keeps the view eventually fresh.
				w.log.Warn("Change feed closed, falling back to interval refresh only")
				w.waitTicker(ctx, ticker)
				return
			}
			w.log.WithFields(logrus.Fields{"table": ev.Table, "type": ev.Type}).Debug("Change event")
			w.refresh(ctx)
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *Watcher) waitTicker(ctx context.Context, ticker *time.Ticker) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

// Close tears down both the feed subscription and the interval loop.
func (w *Watcher) Close() error {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
	return w.feed.Close()
}

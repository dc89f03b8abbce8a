package chat

import (
	"context"
	"sync"
	"time"
)

const (
	// IdleInterval is how often IDLE is sent and timeouts are checked
	IdleInterval = 15 * time.Second
	// UserTimeout removes users not heard from for this long
	UserTimeout = 120 * time.Second
)

// IdleWorker tells the others we are alive and drops the users that
// stopped doing so.
type IdleWorker struct {
	c        *Controller
	interval time.Duration
	timeout  time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewIdleWorker creates an idle worker for c
func NewIdleWorker(c *Controller) *IdleWorker {
	return &IdleWorker{
		c:        c,
		interval: IdleInterval,
		timeout:  UserTimeout,
	}
}

// Start runs the worker until Stop. Starting twice does nothing.
func (w *IdleWorker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	// avoid timing out everyone because of a stale startup value
	w.c.me.SetLastIdle(w.c.now())

	w.wg.Add(1)
	go w.loop(ctx)
	log.Debug("idle worker started")
}

// Stop ends the worker and waits for it
func (w *IdleWorker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	w.wg.Wait()
	log.Debug("idle worker stopped")
}

func (w *IdleWorker) loop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.tick()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *IdleWorker) tick() {
	w.c.sendIdle()
	if w.removeTimedOut() {
		w.c.messages.SendExpose()
	}
}

// removeTimedOut drops every user other than me not heard from within the
// timeout and returns true if there were any
func (w *IdleWorker) removeTimedOut() bool {
	stale := w.c.users.TimedOut(w.c.now(), w.timeout)
	for _, user := range stale {
		log.WithField("user", user).Info("user timed out")
		w.c.removeUser(user)
		w.c.ui.ShowSystemMessage(user.Nick() + " timed out")
	}
	return len(stale) > 0
}

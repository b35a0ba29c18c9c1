package capture

import (
	"context"
	"time"

	"xybclock/internal/common/apierrors"
	"xybclock/internal/common/logger"
)

const (
	defaultPoll     = 100 * time.Millisecond
	defaultReassert = time.Second
	defaultTimeout  = 120 * time.Second
)

// Waiter polls the handoff file until the interception rule delivers a code.
// While it waits, it periodically re-asserts the system proxy redirection so
// the user's mini-program restart actually lands on the listener.
type Waiter struct {
	store *Store
	guard *Guard
	log   logger.Logger

	poll     time.Duration
	reassert time.Duration
	timeout  time.Duration
}

func NewWaiter(store *Store, guard *Guard, timeout time.Duration, log logger.Logger) *Waiter {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Waiter{
		store:    store,
		guard:    guard,
		log:      log,
		poll:     defaultPoll,
		reassert: defaultReassert,
		timeout:  timeout,
	}
}

// Wait blocks until a code is captured, ctx is cancelled, or the timeout
// elapses. Timeout is reported as CAPTURE_TIMEOUT so callers can tell "user
// never restarted the mini-program" apart from harder failures.
func (w *Waiter) Wait(ctx context.Context) (string, error) {
	w.log.Info("waiting for code, restart the mini-program now", map[string]interface{}{
		"timeout": w.timeout.String(),
	})

	started := time.Now()
	poll := time.NewTicker(w.poll)
	defer poll.Stop()
	reassert := time.NewTicker(w.reassert)
	defer reassert.Stop()
	deadline := time.NewTimer(w.timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return "", apierrors.NewCaptureTimeout(time.Since(started))
		case <-reassert.C:
			if err := w.guard.Reassert(); err != nil {
				w.log.Warn("proxy reassert failed", map[string]interface{}{"error": err.Error()})
			}
		case <-poll.C:
			rec, err := w.store.Get()
			if err != nil {
				return "", err
			}
			if rec != nil {
				w.log.Info("code captured", map[string]interface{}{
					"waited": time.Since(started).String(),
				})
				return rec.Code, nil
			}
		}
	}
}

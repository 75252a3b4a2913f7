package store

import (
	"context"
	"sync"
)

// Subscription delivers collection snapshots on C until Close is called.
// A reader that falls behind only ever sees the latest snapshot.
type Subscription struct {
	C <-chan []Child

	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	lastErr error
}

// Close detaches the listener and waits for the delivery goroutine to exit.
// C is closed afterwards.
func (s *Subscription) Close() {
	s.cancel()
	<-s.done
}

// Err returns the last read error, if any.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Subscription) setErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

type snapshotReader func(ctx context.Context) ([]Child, error)

func newSubscription(ctx context.Context, hub Broadcaster, path string, read snapshotReader) (*Subscription, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	signals, unlisten, err := hub.Listen(subCtx, path)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan []Child, 1)
	sub := &Subscription{C: out, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		defer close(out)
		defer unlisten()

		deliver := func() bool {
			snap, err := read(subCtx)
			if err != nil {
				if subCtx.Err() != nil {
					return false
				}
				sub.setErr(err)
				return true
			}
			select {
			case <-out:
			default:
			}
			select {
			case out <- snap:
				return true
			case <-subCtx.Done():
				return false
			}
		}

		if !deliver() {
			return
		}
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-signals:
				if !ok || !deliver() {
					return
				}
			}
		}
	}()

	return sub, nil
}

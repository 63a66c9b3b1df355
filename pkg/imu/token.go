package imu

import (
	"context"
	"time"
)

// Token is a binary semaphore guarding exclusive access to a Buffer.
// Unlike sync.Mutex it supports a bounded wait.
type Token struct {
	ch chan struct{}
}

// NewToken creates a released token.
func NewToken() *Token {
	t := &Token{ch: make(chan struct{}, 1)}
	t.ch <- struct{}{}
	return t
}

// Acquire blocks until the token is taken or ctx is done.
func (t *Token) Acquire(ctx context.Context) error {
	select {
	case <-t.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire waits at most timeout for the token and reports whether it was
// taken. A zero timeout polls once.
func (t *Token) TryAcquire(timeout time.Duration) bool {
	select {
	case <-t.ch:
		return true
	default:
	}
	if timeout <= 0 {
		return false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-t.ch:
		return true
	case <-timer.C:
		return false
	}
}

// Release returns the token. Releasing a token that is not held panics.
func (t *Token) Release() {
	select {
	case t.ch <- struct{}{}:
	default:
		panic("imu: release of unheld token")
	}
}

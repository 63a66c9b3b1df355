package task

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
)

// Runner runs multiple Runnables and collects their errors.
type Runner struct {
	ctx     context.Context
	cancel  context.CancelFunc
	runners []Runnable
	errCh   chan error
}

// NewRunner creates a Runner bound to ctx.
func NewRunner(ctx context.Context) *Runner {
	ctx, cancel := context.WithCancel(ctx)
	return &Runner{ctx: ctx, cancel: cancel, errCh: make(chan error)}
}

// HandleSignals stops the runner on SIGINT or SIGTERM.
func (r *Runner) HandleSignals() *Runner {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			glog.Info("stop requested")
			r.cancel()
		case <-r.ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return r
}

// Go starts runnables on their own goroutines.
func (r *Runner) Go(runnables ...Runnable) *Runner {
	for _, runnable := range runnables {
		r.runners = append(r.runners, runnable)
		go func(runnable Runnable) {
			r.errCh <- runnable.Run(r.ctx)
		}(runnable)
	}
	return r
}

// Stop cancels every runnable.
func (r *Runner) Stop() {
	r.cancel()
}

// Wait blocks until every runnable has returned. The first failure stops
// the rest. Cancellation is not reported as an error.
func (r *Runner) Wait() error {
	var errs AggregatedError
	for range r.runners {
		err := <-r.errCh
		if err != nil && !errors.Is(err, context.Canceled) {
			errs.Add(err)
			r.cancel()
		}
	}
	r.cancel()
	return errs.Aggregate()
}

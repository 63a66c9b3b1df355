// Package task runs fixed-period loops. Each Periodic owns one goroutine
// that calls its function on every tick until the context is done; the
// Runner starts a set of them and collects their errors.
package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang/glog"
)

// Runnable is a long-running component.
type Runnable interface {
	Run(context.Context) error
}

// Func is called once per tick. A non-nil error is logged; the task keeps
// running unless the error is ErrStop.
type Func func(ctx context.Context) error

// ErrStop ends a Periodic without an error.
var ErrStop = errors.New("stop")

// Periodic calls Fn every Period.
type Periodic struct {
	Name   string
	Period time.Duration
	Fn     Func

	ticks uint64
}

// Every creates a Periodic from a function that cannot fail.
func Every(name string, period time.Duration, fn func()) *Periodic {
	return &Periodic{Name: name, Period: period, Fn: func(context.Context) error {
		fn()
		return nil
	}}
}

// EveryErr creates a Periodic from a fallible function.
func EveryErr(name string, period time.Duration, fn Func) *Periodic {
	return &Periodic{Name: name, Period: period, Fn: fn}
}

// Run implements Runnable. The first call happens one period after start.
func (p *Periodic) Run(ctx context.Context) error {
	if p.Period <= 0 {
		return fmt.Errorf("task %s: invalid period %v", p.Name, p.Period)
	}
	ticker := time.NewTicker(p.Period)
	defer ticker.Stop()

	glog.V(4).Infof("task %s started, period %v", p.Name, p.Period)
	defer glog.V(4).Infof("task %s stopped", p.Name)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.ticks++
			if err := p.Fn(ctx); err != nil {
				if errors.Is(err, ErrStop) {
					return nil
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				glog.Errorf("task %s: %v", p.Name, err)
			}
		}
	}
}

// Ticks returns how many times Fn has been called. It must only be read
// after Run has returned.
func (p *Periodic) Ticks() uint64 {
	return p.ticks
}

// AggregatedError aggregates multiple errors.
type AggregatedError struct {
	Errors []error
}

// Error implements error.
func (e *AggregatedError) Error() string {
	if len(e.Errors) == 0 {
		return ""
	}
	msg := make([]string, len(e.Errors)+1)
	msg[0] = "multiple errors:"
	for n, err := range e.Errors {
		msg[n+1] = err.Error()
	}
	return strings.Join(msg, "\n")
}

// Unwrap exposes the aggregated errors to errors.Is and errors.As.
func (e *AggregatedError) Unwrap() []error {
	return e.Errors
}

// Add adds errors to be aggregated. nil is skipped.
func (e *AggregatedError) Add(errs ...error) *AggregatedError {
	for _, err := range errs {
		if err != nil {
			e.Errors = append(e.Errors, err)
		}
	}
	return e
}

// Aggregate returns the aggregated error if any error happened.
func (e *AggregatedError) Aggregate() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

package command

import (
	"sync"

	"github.com/golang/glog"

	"github.com/itohio/imutag/pkg/clock"
)

// Processor applies the most recently received command line to the clock.
// Bursts coalesce to the latest line, and a line equal to the last processed
// one is ignored.
type Processor struct {
	clk    *clock.Clock
	strict bool

	mu       sync.Mutex
	received string

	last    string // owned by the Tick goroutine
	applied int
}

// NewProcessor creates a Processor that sets clk. With strict, commands
// with out-of-range calendar fields are rejected.
func NewProcessor(clk *clock.Clock, strict bool) *Processor {
	return &Processor{clk: clk, strict: strict}
}

// Submit records line as the latest received command.
func (p *Processor) Submit(line string) {
	p.mu.Lock()
	p.received = line
	p.mu.Unlock()
}

// Tick processes the latest line if it differs from the last one processed.
// Invalid lines are dropped and still marked processed.
func (p *Processor) Tick() {
	p.mu.Lock()
	line := p.received
	p.mu.Unlock()

	if line == p.last {
		return
	}
	p.last = line

	parse := Parse
	if p.strict {
		parse = ParseStrict
	}
	d, err := parse(line)
	if err != nil {
		glog.V(2).Infof("dropping command: %v", err)
		return
	}

	p.clk.Set(d)
	p.applied++
	glog.Infof("clock set to %v", d)
}

// Applied returns how many commands have been applied. It must only be
// called from the Tick goroutine or after it has stopped.
func (p *Processor) Applied() int {
	return p.applied
}

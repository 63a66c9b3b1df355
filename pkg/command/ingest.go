package command

import (
	"io"
	"time"

	"github.com/golang/glog"
)

const (
	// DefaultMaxLine bounds the line buffer.
	DefaultMaxLine = 64
	// DefaultIdleTicks is how many empty reads end a pending line: one
	// second at the default 10ms ingest period.
	DefaultIdleTicks = 100
)

// Ingest accumulates inbound transport bytes into lines and submits each
// completed line to a Processor. A line ends at CR or LF, or once the
// buffer has held data through idleTicks consecutive empty reads: peers
// often send a command without a terminator and then fall silent.
type Ingest struct {
	r         io.Reader
	proc      *Processor
	maxLine   int
	idleTicks int
	idle      int

	line    []byte
	scratch []byte
	discard bool
}

// NewIngest creates an Ingest reading from r. Zero values select
// DefaultMaxLine and DefaultIdleTicks.
func NewIngest(r io.Reader, proc *Processor, maxLine, idleTicks int) *Ingest {
	if maxLine <= 0 {
		maxLine = DefaultMaxLine
	}
	if idleTicks <= 0 {
		idleTicks = DefaultIdleTicks
	}
	return &Ingest{
		r:         r,
		proc:      proc,
		maxLine:   maxLine,
		idleTicks: idleTicks,
		line:      make([]byte, 0, maxLine),
		scratch:   make([]byte, maxLine),
	}
}

// IdleTicks converts a quiet time into ingest ticks of period, at least one.
func IdleTicks(quiet, period time.Duration) int {
	if period <= 0 || quiet <= period {
		return 1
	}
	return int((quiet + period - 1) / period)
}

// Tick performs one read and submits any lines it completes.
func (in *Ingest) Tick() error {
	n, err := in.r.Read(in.scratch)
	if n == 0 {
		if len(in.line) > 0 || in.discard {
			in.idle++
			if in.idle >= in.idleTicks {
				in.flush()
			}
		}
		return err
	}
	in.idle = 0

	for _, c := range in.scratch[:n] {
		switch {
		case c == '\n' || c == '\r':
			in.flush()
		case in.discard:
		case len(in.line) == in.maxLine:
			glog.V(2).Infof("command line exceeds %d bytes, discarding", in.maxLine)
			in.line = in.line[:0]
			in.discard = true
		default:
			in.line = append(in.line, c)
		}
	}
	return err
}

func (in *Ingest) flush() {
	if len(in.line) > 0 && !in.discard {
		in.proc.Submit(string(in.line))
	}
	in.line = in.line[:0]
	in.discard = false
	in.idle = 0
}

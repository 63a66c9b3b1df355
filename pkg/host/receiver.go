package host

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/glog"

	"github.com/itohio/imutag/pkg/command"
	"github.com/itohio/imutag/pkg/frame"
	"github.com/itohio/imutag/pkg/transport"
)

// DefaultBufferSize is the default size for the frames channel buffer.
const DefaultBufferSize = 100

// Frame is a decoded frame as received from a tag.
type Frame struct {
	Device   string
	Received time.Time
	frame.Record
}

// Stats counts receiver outcomes.
type Stats struct {
	Frames    uint64 // Frames delivered
	Malformed uint64 // Frames that failed to decode
	Dropped   uint64 // Frames lost to a full channel
	Bytes     uint64 // Bytes consumed
}

func (s Stats) String() string {
	return fmt.Sprintf("%s frames (%s), %d malformed, %d dropped",
		humanize.Comma(int64(s.Frames)), humanize.Bytes(s.Bytes), s.Malformed, s.Dropped)
}

type counters struct {
	frames    atomic.Uint64
	malformed atomic.Uint64
	dropped   atomic.Uint64
	bytes     atomic.Uint64
}

func (c *counters) stats() Stats {
	return Stats{
		Frames:    c.frames.Load(),
		Malformed: c.malformed.Load(),
		Dropped:   c.dropped.Load(),
		Bytes:     c.bytes.Load(),
	}
}

// receive splits r into frames and delivers the decoded ones to out until
// r fails or ctx is done. It closes out on return.
func receive(ctx context.Context, r io.Reader, device string, out chan<- Frame, c *counters) {
	defer close(out)
	defer func() {
		if p := recover(); p != nil {
			glog.Errorf("panic in frame receiver: %v", p)
		}
	}()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 2*frame.PhysicalWorstCase), 2*frame.MaxScan)
	scanner.Split(frame.ScanFrames)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		data := scanner.Bytes()
		c.bytes.Add(uint64(len(data)))

		rec, err := frame.Decode(data)
		if err != nil {
			c.malformed.Add(1)
			glog.Warningf("%s: %v", device, err)
			continue
		}

		select {
		case out <- Frame{Device: device, Received: time.Now(), Record: rec}:
			c.frames.Add(1)
		case <-ctx.Done():
			return
		default:
			c.dropped.Add(1)
			glog.Warningf("%s: frames channel full, dropping frame", device)
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil && !errors.Is(err, transport.ErrClosed) {
		glog.Errorf("%s: error reading frames: %v", device, err)
	}
}

// syncTime sends t to w as a time-sync command.
func syncTime(w io.Writer, t time.Time) error {
	line := command.Format(t) + "\n"
	if _, err := io.WriteString(w, line); err != nil {
		return fmt.Errorf("failed to send time sync: %w", err)
	}
	glog.V(1).Infof("time sync %q sent", line[:len(line)-1])
	return nil
}

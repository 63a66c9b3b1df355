package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/golang/glog"
	"github.com/google/uuid"
)

// MaxBatch bounds how many rows are handed to a sink at once.
const MaxBatch = 64

// Sink stores rows.
type Sink interface {
	Write(rows []Row) error
	Close() error
}

// Recorder writes rows to every sink while recording is on. Rows arriving
// while it is off are counted and discarded.
type Recorder struct {
	session string
	sinks   []Sink

	recording atomic.Bool
	recorded  atomic.Uint64
	skipped   atomic.Uint64
	failed    atomic.Uint64

	closeOnce sync.Once
	closeErr  error
}

// NewRecorder creates a stopped Recorder with a fresh session id.
func NewRecorder(sinks ...Sink) *Recorder {
	return &Recorder{session: uuid.NewString(), sinks: sinks}
}

// Session returns the session id stamped on every recorded row.
func (r *Recorder) Session() string {
	return r.session
}

// Record starts or stops recording.
func (r *Recorder) Record(on bool) {
	if r.recording.Swap(on) != on {
		if on {
			glog.Infof("recording session %s", r.session)
		} else {
			glog.Infof("recording paused: %s", r)
		}
	}
}

// Recording reports whether rows are being stored.
func (r *Recorder) Recording() bool {
	return r.recording.Load()
}

// Recorded returns how many rows were written to the sinks.
func (r *Recorder) Recorded() uint64 {
	return r.recorded.Load()
}

func (r *Recorder) String() string {
	return fmt.Sprintf("%s rows recorded, %s skipped, %d failed",
		humanize.Comma(int64(r.recorded.Load())), humanize.Comma(int64(r.skipped.Load())), r.failed.Load())
}

// Run consumes rows until in is closed or ctx is done, then closes the
// sinks.
func (r *Recorder) Run(ctx context.Context, in <-chan Row) error {
	batch := make([]Row, 0, MaxBatch)
	for {
		select {
		case <-ctx.Done():
			return r.Close()
		case row, ok := <-in:
			if !ok {
				return r.Close()
			}
			batch = append(batch[:0], row)
		drain:
			for len(batch) < MaxBatch {
				select {
				case row, ok := <-in:
					if !ok {
						break drain
					}
					batch = append(batch, row)
				default:
					break drain
				}
			}
			r.write(batch)
		}
	}
}

func (r *Recorder) write(rows []Row) {
	if !r.recording.Load() {
		r.skipped.Add(uint64(len(rows)))
		return
	}
	for i := range rows {
		rows[i].Session = r.session
	}
	ok := true
	for _, s := range r.sinks {
		if err := s.Write(rows); err != nil {
			ok = false
			glog.Errorf("failed to record %d rows: %v", len(rows), err)
		}
	}
	if ok {
		r.recorded.Add(uint64(len(rows)))
	} else {
		r.failed.Add(uint64(len(rows)))
	}
}

// Close closes every sink. It is safe to call Close multiple times.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		var errs []error
		for _, s := range r.sinks {
			errs = append(errs, s.Close())
		}
		r.closeErr = errors.Join(errs...)
		glog.Infof("session %s closed: %s", r.session, r)
	})
	return r.closeErr
}

package host

import (
	"strconv"
	"time"

	"github.com/golang/glog"

	"github.com/itohio/imutag/pkg/clock"
	"github.com/itohio/imutag/pkg/frame"
)

// Row is one IMU sample with the frame context it arrived in.
type Row struct {
	Device    string
	Session   string
	Received  time.Time
	Battery   int            // State of charge (%)
	TempC     float32        // Die temperature (°C)
	Date      clock.DateTime // Tag calendar date
	Timestamp uint32         // Tag uptime (ms)
	Accel     [3]float32     // g
	Gyro      [3]float32     // dps
}

// Header names the columns of Row.Record.
var Header = []string{
	"device", "battery", "temp", "date", "timestamp",
	"ax", "ay", "az", "gx", "gy", "gz",
}

// Record renders the row as text columns, floats with two decimals as the
// tag sends them.
func (r Row) Record() []string {
	rec := make([]string, 0, len(Header))
	rec = append(rec,
		r.Device,
		strconv.Itoa(r.Battery),
		string(frame.AppendFloat(nil, r.TempC)),
		strconv.Itoa(r.Date.Year)+"/"+strconv.Itoa(r.Date.Month)+"/"+strconv.Itoa(r.Date.Day),
		strconv.FormatUint(uint64(r.Timestamp), 10),
	)
	for _, v := range r.Accel {
		rec = append(rec, string(frame.AppendFloat(nil, v)))
	}
	for _, v := range r.Gyro {
		rec = append(rec, string(frame.AppendFloat(nil, v)))
	}
	return rec
}

// Rows splits a frame into one row per sample, in slot order.
func Rows(f Frame) []Row {
	rows := make([]Row, len(f.Samples))
	for i, s := range f.Samples {
		rows[i] = Row{
			Device:    f.Device,
			Received:  f.Received,
			Battery:   f.Battery,
			TempC:     f.TempC,
			Date:      f.Date,
			Timestamp: s.Timestamp,
			Accel:     s.Accel,
			Gyro:      s.Gyro,
		}
	}
	return rows
}

// Converter is a function type that converts a Frame channel to a Row channel.
type Converter func(in <-chan Frame) <-chan Row

// NewConverter creates a converter function that splits frames into rows.
func NewConverter(bufSize int) Converter {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	return func(in <-chan Frame) <-chan Row {
		out := make(chan Row, bufSize)

		go func() {
			defer close(out)

			for f := range in {
				for _, row := range Rows(f) {
					select {
					case out <- row:
					case <-time.After(time.Second):
						glog.Warningf("converter output channel full, dropping row")
					}
				}
			}
		}()

		return out
	}
}

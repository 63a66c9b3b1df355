// Package frame implements the ASCII telemetry record sent once per sample
// batch:
//
//	<battery>%,<tempC>^,<year>/<month>/<day>,<ts0>,...,<ts3>,<f0>,...,<f23>@
//
// Floats f0..f23 are the four samples in slot order, each as accel X/Y/Z
// followed by gyro X/Y/Z.
package frame

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/itohio/imutag/pkg/clock"
	"github.com/itohio/imutag/pkg/imu"
)

const (
	// Terminator ends every frame.
	Terminator = '@'

	// Fields is the number of comma separated fields in a frame.
	Fields = 3 + imu.BufferSlots + imu.BufferSlots*imu.AxesPerSample

	// PhysicalWorstCase is the longest frame for readings within the sensor's
	// range: |accel| < 16 g, |gyro| < 2000 dps, -40..85 °C, a 4-digit year.
	PhysicalWorstCase = 260

	// MaxScan is how many unterminated bytes ScanFrames holds before
	// dropping them and resynchronizing on the next terminator.
	MaxScan = 2048
)

var (
	// ErrTooLarge is returned when an encoded frame exceeds the capacity.
	ErrTooLarge = errors.New("frame exceeds capacity")
	// ErrMalformed is returned by Decode for input that is not a frame.
	ErrMalformed = errors.New("malformed frame")
)

// Record is everything one frame carries.
type Record struct {
	Battery int            // State of charge (%)
	TempC   float32        // Sensor die temperature (°C)
	Date    clock.DateTime // Only Year, Month and Day are encoded
	Samples imu.Batch
}

// Encode appends the encoded record to dst. If capacity is positive and the
// frame would be longer, dst is returned unchanged with ErrTooLarge; frames
// are never truncated.
func Encode(dst []byte, r Record, capacity int) ([]byte, error) {
	start := len(dst)

	dst = strconv.AppendInt(dst, int64(r.Battery), 10)
	dst = append(dst, '%', ',')
	dst = AppendFloat(dst, r.TempC)
	dst = append(dst, '^', ',')
	dst = strconv.AppendInt(dst, int64(r.Date.Year), 10)
	dst = append(dst, '/')
	dst = strconv.AppendInt(dst, int64(r.Date.Month), 10)
	dst = append(dst, '/')
	dst = strconv.AppendInt(dst, int64(r.Date.Day), 10)

	for _, s := range r.Samples {
		dst = append(dst, ',')
		dst = strconv.AppendUint(dst, uint64(s.Timestamp), 10)
	}
	for _, s := range r.Samples {
		for _, v := range s.Axes() {
			dst = append(dst, ',')
			dst = AppendFloat(dst, v)
		}
	}
	dst = append(dst, Terminator)

	if n := len(dst) - start; capacity > 0 && n > capacity {
		return dst[:start], fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, n, capacity)
	}
	return dst, nil
}

// AppendFloat appends v the way the device's C library prints "%4.2f":
// two correctly rounded decimals, with nan and inf in lower case and padded
// to four characters.
func AppendFloat(dst []byte, v float32) []byte {
	f := float64(v)
	switch {
	case math.IsNaN(f):
		return append(dst, " nan"...)
	case math.IsInf(f, 1):
		return append(dst, " inf"...)
	case math.IsInf(f, -1):
		return append(dst, "-inf"...)
	}
	return strconv.AppendFloat(dst, f, 'f', 2, 64)
}

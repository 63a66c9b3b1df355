package frame

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/itohio/imutag/pkg/imu"
)

// Decode parses one frame, with or without its terminator. Floats come
// back rounded to two decimals.
func Decode(data []byte) (Record, error) {
	data = bytes.TrimSuffix(bytes.TrimSpace(data), []byte{Terminator})
	parts := strings.Split(string(data), ",")
	if len(parts) != Fields {
		return Record{}, fmt.Errorf("%w: expected %d comma-separated values, got %d", ErrMalformed, Fields, len(parts))
	}

	var r Record
	var err error

	battery, ok := strings.CutSuffix(parts[0], "%")
	if !ok {
		return Record{}, fmt.Errorf("%w: battery field %q lacks %%", ErrMalformed, parts[0])
	}
	if r.Battery, err = strconv.Atoi(battery); err != nil {
		return Record{}, fmt.Errorf("%w: battery: %w", ErrMalformed, err)
	}

	temp, ok := strings.CutSuffix(parts[1], "^")
	if !ok {
		return Record{}, fmt.Errorf("%w: temperature field %q lacks ^", ErrMalformed, parts[1])
	}
	if r.TempC, err = parseFloat(temp); err != nil {
		return Record{}, fmt.Errorf("%w: temperature: %w", ErrMalformed, err)
	}

	date := strings.Split(parts[2], "/")
	if len(date) != 3 {
		return Record{}, fmt.Errorf("%w: date %q", ErrMalformed, parts[2])
	}
	for i, dst := range []*int{&r.Date.Year, &r.Date.Month, &r.Date.Day} {
		if *dst, err = strconv.Atoi(date[i]); err != nil {
			return Record{}, fmt.Errorf("%w: date: %w", ErrMalformed, err)
		}
	}

	fields := parts[3:]
	for i := range r.Samples {
		ts, err := strconv.ParseUint(fields[i], 10, 32)
		if err != nil {
			return Record{}, fmt.Errorf("%w: timestamp %d: %w", ErrMalformed, i, err)
		}
		r.Samples[i].Timestamp = uint32(ts)
	}

	fields = fields[imu.BufferSlots:]
	for i := range r.Samples {
		var axes [imu.AxesPerSample]float32
		for j := range axes {
			if axes[j], err = parseFloat(fields[i*imu.AxesPerSample+j]); err != nil {
				return Record{}, fmt.Errorf("%w: sample %d axis %d: %w", ErrMalformed, i, j, err)
			}
		}
		r.Samples[i].Accel = [3]float32{axes[0], axes[1], axes[2]}
		r.Samples[i].Gyro = [3]float32{axes[3], axes[4], axes[5]}
	}

	return r, nil
}

func parseFloat(s string) (float32, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	return float32(v), err
}

// ScanFrames is a bufio.SplitFunc that yields frames including their
// terminator. Bytes after the last terminator are held until more data
// arrives; at EOF they are dropped as an incomplete frame. More than
// MaxScan bytes without a terminator are dropped too, so the token after
// them is a fragment and the stream is back in step after the next one.
// The scanner's buffer limit must exceed MaxScan.
func ScanFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if i := bytes.IndexByte(data, Terminator); i >= 0 {
		return i + 1, data[:i+1], nil
	}
	if atEOF || len(data) >= MaxScan {
		return len(data), nil, nil
	}
	return 0, nil, nil
}

// Package sink stores recorded rows: CSV files per device, an SQLite
// database, and an MQTT relay.
package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/itohio/imutag/pkg/host"
)

type csvFile struct {
	f *os.File
	w *csv.Writer
}

// CSV writes one file per device and session into a directory.
type CSV struct {
	dir string

	mu    sync.Mutex
	files map[string]*csvFile
}

var _ host.Sink = (*CSV)(nil)

// NewCSV creates a CSV sink writing into dir, creating it if needed.
func NewCSV(dir string) (*CSV, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	return &CSV{dir: dir, files: make(map[string]*csvFile)}, nil
}

// Path returns the file rows of device in session are written to.
func (c *CSV) Path(device, session string) string {
	return filepath.Join(c.dir, device+"_"+session+".csv")
}

func (c *CSV) file(device, session string) (*csvFile, error) {
	key := device + "\x00" + session
	if f, ok := c.files[key]; ok {
		return f, nil
	}

	f, err := os.Create(c.Path(device, session))
	if err != nil {
		return nil, fmt.Errorf("creating csv file: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(host.Header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("writing csv header: %w", err)
	}
	cf := &csvFile{f: f, w: w}
	c.files[key] = cf
	return cf, nil
}

// Write implements host.Sink.
func (c *CSV) Write(rows []host.Row) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	touched := make(map[*csvFile]struct{})
	for _, row := range rows {
		f, err := c.file(row.Device, row.Session)
		if err != nil {
			return err
		}
		if err := f.w.Write(row.Record()); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
		touched[f] = struct{}{}
	}
	for f := range touched {
		f.w.Flush()
		if err := f.w.Error(); err != nil {
			return fmt.Errorf("flushing csv: %w", err)
		}
	}
	return nil
}

// Close implements host.Sink.
func (c *CSV) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for key, f := range c.files {
		f.w.Flush()
		errs = append(errs, f.w.Error(), f.f.Close())
		delete(c.files, key)
	}
	return errors.Join(errs...)
}

package sink

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/itohio/imutag/pkg/clock"
	"github.com/itohio/imutag/pkg/host"
)

//go:embed schema.sql
var schemaSQL string

// SQLite stores rows in an SQLite database.
type SQLite struct {
	dbPath string

	db     *sql.DB
	dbOnce sync.Once
	dbErr  error

	closeOnce sync.Once
	closeErr  error
}

var _ host.Sink = (*SQLite)(nil)

// NewSQLite creates an SQLite sink. The database is opened and its schema
// created on first use.
func NewSQLite(dbPath string) *SQLite {
	return &SQLite{dbPath: dbPath}
}

func (s *SQLite) getDB() (*sql.DB, error) {
	s.dbOnce.Do(func() {
		db, err := sql.Open("sqlite3", s.dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
		if err != nil {
			s.dbErr = err
			return
		}

		if _, err = db.Exec(schemaSQL); err != nil {
			_ = db.Close()
			s.dbErr = err
			return
		}

		s.db = db
	})

	return s.db, s.dbErr
}

const insertSampleSQL = `
INSERT INTO samples (session,
                     device,
                     received,
                     battery,
                     temp,
                     date,
                     timestamp,
                     accel_x,
                     accel_y,
                     accel_z,
                     gyro_x,
                     gyro_y,
                     gyro_z)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Write implements host.Sink. All rows are inserted in one transaction.
func (s *SQLite) Write(rows []host.Row) (err error) {
	if len(rows) == 0 {
		return
	}

	db, err := s.getDB()
	if err != nil {
		return fmt.Errorf("getting connection: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.Prepare(insertSampleSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer func() {
		if cErr := stmt.Close(); cErr != nil && err == nil {
			err = fmt.Errorf("closing statement: %w", cErr)
		}
	}()

	for _, r := range rows {
		_, err = stmt.Exec(
			r.Session,
			r.Device,
			r.Received,
			r.Battery,
			r.TempC,
			formatDate(r.Date),
			r.Timestamp,
			r.Accel[0], r.Accel[1], r.Accel[2],
			r.Gyro[0], r.Gyro[1], r.Gyro[2],
		)
		if err != nil {
			return fmt.Errorf("inserting sample: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return
}

const selectSamplesSQL = `
SELECT session,
       device,
       received,
       battery,
       temp,
       date,
       timestamp,
       accel_x,
       accel_y,
       accel_z,
       gyro_x,
       gyro_y,
       gyro_z
FROM samples
WHERE session = ?
  AND device = ?
ORDER BY id
`

// Rows returns the rows stored for device in session, in insertion order.
func (s *SQLite) Rows(session, device string) (result []host.Row, err error) {
	db, err := s.getDB()
	if err != nil {
		return nil, fmt.Errorf("getting connection: %w", err)
	}

	rows, err := db.Query(selectSamplesSQL, session, device)
	if err != nil {
		return nil, fmt.Errorf("querying samples: %w", err)
	}
	defer func() {
		if cErr := rows.Close(); cErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cErr)
		}
	}()

	for rows.Next() {
		var r host.Row
		var date string
		if err = rows.Scan(
			&r.Session, &r.Device, &r.Received, &r.Battery, &r.TempC, &date, &r.Timestamp,
			&r.Accel[0], &r.Accel[1], &r.Accel[2],
			&r.Gyro[0], &r.Gyro[1], &r.Gyro[2],
		); err != nil {
			return nil, fmt.Errorf("scanning sample: %w", err)
		}
		if r.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// Close implements host.Sink. It is safe to call Close multiple times.
func (s *SQLite) Close() error {
	s.closeOnce.Do(func() {
		if s.db != nil {
			s.closeErr = s.db.Close()
			s.db = nil
		}
	})
	return s.closeErr
}

func formatDate(d clock.DateTime) string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func parseDate(s string) (clock.DateTime, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return clock.DateTime{}, fmt.Errorf("invalid stored date %q", s)
	}
	var d clock.DateTime
	var err error
	for i, v := range []*int{&d.Year, &d.Month, &d.Day} {
		if *v, err = strconv.Atoi(parts[i]); err != nil {
			return clock.DateTime{}, fmt.Errorf("invalid stored date %q: %w", s, err)
		}
	}
	return d, nil
}

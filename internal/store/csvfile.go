package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/i474232898/weather-bridge/internal/weather"
)

const timestampColumn = "timestamp"

// DailyCSV appends readings to one CSV file per calendar day, named
// YYYY-MM-DD.csv. The header is written once, when the file is created, from
// the keys of the first reading in that batch. Later rows are aligned to the
// existing header: missing keys are left empty and keys without a column
// follow the header columns as key=value cells, so no value is lost.
type DailyCSV struct {
	mu  sync.Mutex
	dir string
}

// NewDailyCSV creates a sink writing below dir.
func NewDailyCSV(dir string) *DailyCSV {
	return &DailyCSV{dir: dir}
}

// PathFor returns the file used for day.
func (d *DailyCSV) PathFor(day time.Time) string {
	return filepath.Join(d.dir, day.Format(time.DateOnly)+".csv")
}

// Write appends readings to the file of day.
func (d *DailyCSV) Write(day time.Time, readings []weather.Reading) (weather.FlushResult, error) {
	res := weather.FlushResult{Path: d.PathFor(day)}
	if len(readings) == 0 {
		return res, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return res, fmt.Errorf("create data dir: %w", err)
	}

	header, err := readHeader(res.Path)
	if err != nil {
		return res, err
	}

	f, err := os.OpenFile(res.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return res, fmt.Errorf("open %s: %w", res.Path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if header == nil {
		header = append([]string{timestampColumn}, readings[0].Keys()...)
		if err := w.Write(header); err != nil {
			return res, fmt.Errorf("write header: %w", err)
		}
		res.HeaderWritten = true
	}

	columns := header[1:]
	known := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		known[c] = struct{}{}
	}
	extra := make(map[string]struct{})

	for _, r := range readings {
		row := make([]string, 1, len(header))
		row[0] = r.Stamp()
		for _, c := range columns {
			v, _ := r.Get(c)
			row = append(row, v)
		}
		for _, f := range r.Fields() {
			if _, ok := known[f.Key]; ok {
				continue
			}
			row = append(row, f.Key+"="+f.Value)
			if _, seen := extra[f.Key]; !seen {
				extra[f.Key] = struct{}{}
				res.ExtraFields = append(res.ExtraFields, f.Key)
			}
		}
		if err := w.Write(row); err != nil {
			return res, fmt.Errorf("write row: %w", err)
		}
		res.Rows++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return res, fmt.Errorf("write %s: %w", res.Path, err)
	}
	if err := f.Sync(); err != nil {
		return res, fmt.Errorf("sync %s: %w", res.Path, err)
	}
	return res, f.Close()
}

// readHeader returns the first record of path, or nil when the file does not
// exist yet or is empty.
func readHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	if len(header) == 0 || header[0] != timestampColumn {
		return nil, fmt.Errorf("%s: unexpected header %q", path, header)
	}
	return header, nil
}

var _ weather.Sink = (*DailyCSV)(nil)

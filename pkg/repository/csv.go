package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"
)

var csvHeader = []string{"timestamp", "audio_file_path", "prediction"}

// CSV appends records to a CSV file. The header is written with the first
// record.
type CSV struct {
	path string
	opts *options
	mu   sync.Mutex
}

var _ Repository = (*CSV)(nil)

// NewCSV returns a CSV repository writing to path. The file is created on
// the first Save.
func NewCSV(path string, opts ...Option) *CSV {
	return &CSV{path: path, opts: newOptions(opts)}
}

// Save implements Repository.
func (r *CSV) Save(_ context.Context, path string, prediction float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("repository: open csv: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("repository: stat csv: %w", err)
	}

	w := csv.NewWriter(f)
	if fi.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("repository: write csv header: %w", err)
		}
	}
	row := []string{
		r.opts.now().Format(time.RFC3339Nano),
		path,
		strconv.FormatFloat(prediction, 'g', -1, 64),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("repository: write csv row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("repository: flush csv: %w", err)
	}
	return f.Close()
}

// List implements Repository. A missing file has no records.
func (r *CSV) List(_ context.Context) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repository: open csv: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = len(csvHeader)

	var records []Record
	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("repository: read csv: %w", err)
		}
		if line == 1 && row[0] == csvHeader[0] {
			continue
		}
		rec, err := parseCSVRow(row)
		if err != nil {
			return nil, fmt.Errorf("repository: csv line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseCSVRow(row []string) (Record, error) {
	ts, err := time.Parse(time.RFC3339Nano, row[0])
	if err != nil {
		return Record{}, err
	}
	p, err := strconv.ParseFloat(row[2], 64)
	if err != nil {
		return Record{}, err
	}
	return Record{Timestamp: ts, AudioFilePath: row[1], Prediction: p}, nil
}

// Close implements Repository.
func (r *CSV) Close() error {
	return nil
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kaptinlin/jsonrepair"
)

// JSON keeps every record in one JSON array, rewritten on each Save.
type JSON struct {
	path string
	opts *options
	mu   sync.Mutex
}

var _ Repository = (*JSON)(nil)

// NewJSON returns a JSON repository at path, creating an empty array file
// if none exists.
func NewJSON(path string, opts ...Option) (*JSON, error) {
	r := &JSON{path: path, opts: newOptions(opts)}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := r.write([]Record{}); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Save implements Repository.
func (r *JSON) Save(_ context.Context, path string, prediction float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := r.read()
	records = append(records, Record{
		Timestamp:     r.opts.now(),
		AudioFilePath: path,
		Prediction:    prediction,
	})
	return r.write(records)
}

// List implements Repository.
func (r *JSON) List(_ context.Context) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read(), nil
}

// read loads the array. A damaged file, such as one cut short by a crash,
// is repaired first; only a file that cannot be repaired is treated as empty.
func (r *JSON) read() []Record {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil
	}
	var records []Record
	err = json.Unmarshal(data, &records)
	if err == nil {
		return records
	}
	fixed, rerr := jsonrepair.JSONRepair(string(data))
	if rerr == nil {
		records = nil
		if rerr = json.Unmarshal([]byte(fixed), &records); rerr == nil {
			r.opts.logger.Warn("repository: repaired damaged json", "path", r.path, "records", len(records), "error", err)
			return records
		}
	}
	r.opts.logger.Warn("repository: corrupt json, starting over", "path", r.path, "error", err)
	return nil
}

func (r *JSON) write(records []Record) error {
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("repository: encode json: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".predictions-*.json")
	if err != nil {
		return fmt.Errorf("repository: write json: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("repository: write json: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("repository: write json: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("repository: write json: %w", err)
	}
	return nil
}

// Close implements Repository.
func (r *JSON) Close() error {
	return nil
}

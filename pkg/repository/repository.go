// Package repository persists prediction records.
//
// Four backends are provided: CSV and JSON files for easy inspection, a
// Badger key-value store and a SQLite database. All of them append records
// in the order Save is called and return them in that order from List.
package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Record is one persisted prediction.
type Record struct {
	Timestamp     time.Time `json:"timestamp" yaml:"timestamp" msgpack:"timestamp"`
	AudioFilePath string    `json:"audio_file_path" yaml:"audio_file_path" msgpack:"audio_file_path"`
	Prediction    float64   `json:"prediction" yaml:"prediction" msgpack:"prediction"`
}

// Repository stores prediction records.
type Repository interface {
	// Save appends a record for path stamped with the current time.
	Save(ctx context.Context, path string, prediction float64) error
	// List returns every record in insertion order.
	List(ctx context.Context) ([]Record, error)
	Close() error
}

// Kind names a backend.
type Kind string

const (
	KindCSV    Kind = "csv"
	KindJSON   Kind = "json"
	KindBadger Kind = "badger"
	KindSQLite Kind = "sqlite"
)

type options struct {
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a repository.
type Option func(*options)

// WithClock overrides the time source used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func newOptions(opts []Option) *options {
	o := &options{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Open creates the repository of the given kind at path. For KindBadger
// path is a directory; for the others it is a file.
func Open(kind Kind, path string, opts ...Option) (Repository, error) {
	switch kind {
	case KindCSV:
		return NewCSV(path, opts...), nil
	case KindJSON:
		return NewJSON(path, opts...)
	case KindBadger:
		return OpenBadger(path, opts...)
	case KindSQLite:
		return OpenSQLite(path, opts...)
	}
	return nil, fmt.Errorf("repository: unknown kind %q", kind)
}

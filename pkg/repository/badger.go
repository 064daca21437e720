package repository

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/crybaby/pkg/kv"
)

var predictionsPrefix = kv.Key{"predictions"}

// KV stores msgpack-encoded records in a kv.Store under
// predictions:<unix nanos>.<sequence>, so keys sort chronologically.
type KV struct {
	store kv.Store
	opts  *options
	seq   atomic.Uint64
}

var _ Repository = (*KV)(nil)

// NewKV returns a repository over store. Closing the repository closes the
// store.
func NewKV(store kv.Store, opts ...Option) *KV {
	return &KV{store: store, opts: newOptions(opts)}
}

// OpenBadger opens a Badger database in dir and wraps it.
func OpenBadger(dir string, opts ...Option) (*KV, error) {
	o := newOptions(opts)
	store, err := kv.NewBadger(kv.BadgerOptions{Dir: dir, Logger: o.logger})
	if err != nil {
		return nil, fmt.Errorf("repository: %w", err)
	}
	return NewKV(store, opts...), nil
}

// Save implements Repository.
func (r *KV) Save(ctx context.Context, path string, prediction float64) error {
	rec := Record{
		Timestamp:     r.opts.now(),
		AudioFilePath: path,
		Prediction:    prediction,
	}
	data, err := msgpack.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("repository: encode record: %w", err)
	}
	key := append(kv.Key{}, predictionsPrefix...)
	key = append(key, fmt.Sprintf("%020d.%08d", rec.Timestamp.UnixNano(), r.seq.Add(1)))
	if err := r.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("repository: save record: %w", err)
	}
	return nil
}

// List implements Repository.
func (r *KV) List(ctx context.Context) ([]Record, error) {
	var records []Record
	for entry, err := range r.store.List(ctx, predictionsPrefix) {
		if err != nil {
			return nil, fmt.Errorf("repository: list records: %w", err)
		}
		var rec Record
		if err := msgpack.Unmarshal(entry.Value, &rec); err != nil {
			return nil, fmt.Errorf("repository: decode %s: %w", entry.Key, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close implements Repository.
func (r *KV) Close() error {
	return r.store.Close()
}

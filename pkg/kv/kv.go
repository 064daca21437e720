// Package kv provides a key-value store with hierarchical keys. Keys are
// string slices such as {"predictions", "0001700000000000000000"} joined
// with a separator (default ':') for storage.
//
// Badger is the on-disk implementation; Memory is for tests.
package kv

import (
	"context"
	"errors"
	"iter"
	"strings"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("kv: not found")

// Key is a hierarchical path. Segments must not contain the separator.
type Key []string

// String returns the key joined with ':' for display.
func (k Key) String() string {
	return strings.Join(k, ":")
}

// Entry is a key-value pair returned by List.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is a key-value store with path-based keys.
type Store interface {
	// Get returns ErrNotFound if key is not present.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores value under key, replacing any existing value.
	Set(ctx context.Context, key Key, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key Key) error

	// List iterates over entries under prefix in lexicographic order of the
	// encoded key. An empty prefix lists everything.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	Close() error
}

// DefaultSeparator joins key segments when no separator is configured.
const DefaultSeparator byte = ':'

// Options configures store behavior.
type Options struct {
	// Separator joins key segments. Zero means ':'.
	Separator byte
}

func (o *Options) sep() byte {
	if o != nil && o.Separator != 0 {
		return o.Separator
	}
	return DefaultSeparator
}

// encode joins k with the separator. It panics if a segment contains the
// separator, since the key could not be decoded again.
func (o *Options) encode(k Key) []byte {
	s := o.sep()
	var b strings.Builder
	for i, seg := range k {
		if strings.IndexByte(seg, s) >= 0 {
			panic("kv: key segment " + seg + " contains separator")
		}
		if i > 0 {
			b.WriteByte(s)
		}
		b.WriteString(seg)
	}
	return []byte(b.String())
}

func (o *Options) decode(b []byte) Key {
	return Key(strings.Split(string(b), string(o.sep())))
}

// prefixBytes encodes prefix with a trailing separator so {"a", "b"} does
// not match "a:bc". An empty prefix matches everything.
func (o *Options) prefixBytes(prefix Key) []byte {
	p := o.encode(prefix)
	if len(p) == 0 {
		return nil
	}
	return append(p, o.sep())
}

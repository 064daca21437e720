package kv_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/haivivi/crybaby/pkg/kv"
)

// backends runs fn against every Store implementation.
func backends(t *testing.T, opts *kv.Options, fn func(t *testing.T, s kv.Store)) {
	t.Run("memory", func(t *testing.T) {
		s := kv.NewMemory(opts)
		t.Cleanup(func() { s.Close() })
		fn(t, s)
	})
	t.Run("badger", func(t *testing.T) {
		s, err := kv.NewBadger(kv.BadgerOptions{Options: opts, InMemory: true})
		if err != nil {
			t.Fatalf("NewBadger: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		fn(t, s)
	})
}

func keys(t *testing.T, s kv.Store, prefix kv.Key) []string {
	t.Helper()
	var got []string
	for entry, err := range s.List(context.Background(), prefix) {
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		got = append(got, entry.Key.String()+"="+string(entry.Value))
	}
	return got
}

func TestGetSetDelete(t *testing.T) {
	backends(t, nil, func(t *testing.T, s kv.Store) {
		ctx := context.Background()
		key := kv.Key{"predictions", "1"}

		if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := s.Set(ctx, key, []byte("a")); err != nil {
			t.Fatalf("Set: %v", err)
		}
		if err := s.Set(ctx, key, []byte("b")); err != nil {
			t.Fatalf("Set overwrite: %v", err)
		}
		got, err := s.Get(ctx, key)
		if err != nil || string(got) != "b" {
			t.Fatalf("Get = %q, %v; want \"b\"", got, err)
		}
		if err := s.Delete(ctx, key); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
			t.Fatalf("after Delete: %v", err)
		}
		if err := s.Delete(ctx, kv.Key{"missing"}); err != nil {
			t.Fatalf("Delete missing: %v", err)
		}
	})
}

func TestList(t *testing.T) {
	backends(t, nil, func(t *testing.T, s kv.Store) {
		ctx := context.Background()
		for _, k := range []kv.Key{
			{"p", "2"}, {"p", "1"}, {"pp", "3"}, {"q", "4"},
		} {
			if err := s.Set(ctx, k, []byte(k[1])); err != nil {
				t.Fatalf("Set: %v", err)
			}
		}

		// "p" must not match "pp:3".
		if got, want := keys(t, s, kv.Key{"p"}), []string{"p:1=1", "p:2=2"}; !slices.Equal(got, want) {
			t.Errorf("List p = %v, want %v", got, want)
		}
		if got := keys(t, s, nil); len(got) != 4 {
			t.Errorf("List all = %v, want 4 entries", got)
		}

		// Stopping early is allowed.
		n := 0
		for range s.List(ctx, nil) {
			n++
			break
		}
		if n != 1 {
			t.Errorf("early break visited %d entries", n)
		}
	})
}

func TestCustomSeparator(t *testing.T) {
	backends(t, &kv.Options{Separator: '/'}, func(t *testing.T, s kv.Store) {
		ctx := context.Background()
		if err := s.Set(ctx, kv.Key{"a:b", "c"}, []byte("v")); err != nil {
			t.Fatalf("Set: %v", err)
		}
		if got, want := keys(t, s, kv.Key{"a:b"}), []string{"a:b:c=v"}; !slices.Equal(got, want) {
			t.Errorf("List = %v, want %v", got, want)
		}
	})
}

func TestValueIsolation(t *testing.T) {
	ctx := context.Background()
	s := kv.NewMemory(nil)
	val := []byte("original")
	if err := s.Set(ctx, kv.Key{"k"}, val); err != nil {
		t.Fatal(err)
	}
	val[0] = 'X'
	got, _ := s.Get(ctx, kv.Key{"k"})
	if got[0] != 'o' {
		t.Fatal("store value was mutated via input slice")
	}
}

func TestKeySegmentValidation(t *testing.T) {
	defer func() {
		r := recover()
		msg, ok := r.(string)
		if !ok || !strings.Contains(msg, "contains separator") {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()
	_ = kv.NewMemory(nil).Set(context.Background(), kv.Key{"bad:seg", "x"}, []byte("v"))
}

func TestBadgerDirRequired(t *testing.T) {
	if _, err := kv.NewBadger(kv.BadgerOptions{}); err == nil {
		t.Fatal("expected error without Dir")
	}
}

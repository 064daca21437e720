package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	s, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func readAll(t *testing.T, s FileStore, key string) string {
	t.Helper()
	r, err := s.Open(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(got)
}

func TestLocalPutAndOpen(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	if err := s.Put(ctx, "clips/a.wav", strings.NewReader("RIFF")); err != nil {
		t.Fatal(err)
	}
	if got := readAll(t, s, "clips/a.wav"); got != "RIFF" {
		t.Fatalf("got %q, want %q", got, "RIFF")
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "clips", "a.wav")); err != nil {
		t.Fatal(err)
	}
}

func TestLocalPutReplaces(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	if err := s.Put(ctx, "f", strings.NewReader("long content here")); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "f", strings.NewReader("short")); err != nil {
		t.Fatal(err)
	}
	if got := readAll(t, s, "f"); got != "short" {
		t.Fatalf("got %q, want %q", got, "short")
	}

	// No temporary files left behind.
	entries, err := os.ReadDir(s.Root())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("root has %d entries, want 1", len(entries))
	}
}

func TestLocalOpenNotExist(t *testing.T) {
	s := newTestLocal(t)
	_, err := s.Open(context.Background(), "no-such-file")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestLocalExists(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	ok, err := s.Exists(ctx, "missing")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected false for missing file")
	}

	if err := s.Put(ctx, "present", strings.NewReader("")); err != nil {
		t.Fatal(err)
	}
	ok, err = s.Exists(ctx, "present")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected true for existing file")
	}
}

func TestLocalDeleteIdempotent(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	if err := s.Delete(ctx, "ghost"); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "tmp", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "tmp"); err != nil {
		t.Fatal(err)
	}
	ok, err := s.Exists(ctx, "tmp")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("file should be gone after delete")
	}
	if err := s.Delete(ctx, "tmp"); err != nil {
		t.Fatal(err)
	}
}

func TestLocalRejectsEscapingKeys(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()
	for _, key := range []string{"", "/etc/passwd", "../x", "a/../../x", "."} {
		if err := s.Put(ctx, key, strings.NewReader("x")); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Put(%q) = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestLocalPutCanceled(t *testing.T) {
	s := newTestLocal(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Put(ctx, "f", strings.NewReader("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestNewLocalCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	s, err := NewLocal(dir)
	if err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(s.Root())
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsDir() {
		t.Fatal("expected directory")
	}
}

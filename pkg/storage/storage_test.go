package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestClipKey(t *testing.T) {
	if got := ClipKey("/tmp/crybaby/3f2a.wav"); got != "clips/3f2a.wav" {
		t.Fatalf("ClipKey = %q", got)
	}
}

func TestUpload(t *testing.T) {
	src := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(src, []byte("RIFFdata"), 0o644); err != nil {
		t.Fatal(err)
	}

	for name, store := range map[string]FileStore{
		"local": newTestLocal(t),
		"s3":    NewS3(newMockS3(), "bucket", "archive"),
	} {
		t.Run(name, func(t *testing.T) {
			key := ClipKey(src)
			if err := Upload(context.Background(), store, src, key); err != nil {
				t.Fatal(err)
			}
			if got := readAll(t, store, key); got != "RIFFdata" {
				t.Fatalf("got %q", got)
			}
		})
	}
}

func TestUploadMissingSource(t *testing.T) {
	err := Upload(context.Background(), newTestLocal(t), filepath.Join(t.TempDir(), "nope.wav"), "clips/nope.wav")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want os.ErrNotExist", err)
	}
}

func TestCheckKey(t *testing.T) {
	valid := []string{"a", "clips/a.wav", "a/./b"}
	invalid := []string{"", "/abs", "..", "../a", "a/../../b", `a\b`, "."}
	for _, k := range valid {
		if err := checkKey(k); err != nil {
			t.Errorf("checkKey(%q) = %v", k, err)
		}
	}
	for _, k := range invalid {
		if err := checkKey(k); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("checkKey(%q) = %v, want ErrInvalidKey", k, err)
		}
	}
}

package build

import (
	"runtime"
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	s := String()
	for _, want := range []string{"crybaby", Version, Commit, runtime.GOOS} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}

func TestGet(t *testing.T) {
	info := Get()
	if info.Version != Version || info.Go != runtime.Version() {
		t.Errorf("Get() = %+v", info)
	}
}

package audiofile

import (
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// decoded is a cached mono decode of one file at one sample rate.
type decoded struct {
	samples    []float32
	sampleRate int
	channels   int // of the source file
}

func (d *decoded) duration() float64 {
	return float64(len(d.samples)) / float64(d.sampleRate)
}

// decodeCache maps (path, requested rate) to decoded audio. Entries are
// bounded by total sample bytes and expire after ttl.
type decodeCache struct {
	c   *ristretto.Cache[string, *decoded]
	ttl time.Duration

	mu    sync.Mutex
	rates map[string]map[int]struct{} // path -> requested rates seen
}

func newDecodeCache(maxBytes int64, ttl time.Duration) (*decodeCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, *decoded]{
		NumCounters: 1e4,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("audiofile: create cache: %w", err)
	}
	return &decodeCache{
		c:     c,
		ttl:   ttl,
		rates: make(map[string]map[int]struct{}),
	}, nil
}

func cacheKey(path string, rate int) string {
	return fmt.Sprintf("%s\x00%d", path, rate)
}

// get looks up (path, rate). A miss drops the pair from the rate index, so
// entries that expired or were rejected by the cache do not linger there.
func (dc *decodeCache) get(path string, rate int) (*decoded, bool) {
	if d, ok := dc.c.Get(cacheKey(path, rate)); ok {
		return d, true
	}
	dc.mu.Lock()
	if rs, ok := dc.rates[path]; ok {
		delete(rs, rate)
		if len(rs) == 0 {
			delete(dc.rates, path)
		}
	}
	dc.mu.Unlock()
	return nil, false
}

func (dc *decodeCache) set(path string, rate int, d *decoded) {
	dc.mu.Lock()
	rs, ok := dc.rates[path]
	if !ok {
		rs = make(map[int]struct{})
		dc.rates[path] = rs
	}
	rs[rate] = struct{}{}
	dc.mu.Unlock()

	dc.c.SetWithTTL(cacheKey(path, rate), d, int64(len(d.samples))*4, dc.ttl)
	dc.c.Wait()
}

// forget evicts every cached rate for path.
func (dc *decodeCache) forget(path string) {
	dc.mu.Lock()
	rs := dc.rates[path]
	delete(dc.rates, path)
	dc.mu.Unlock()

	for rate := range rs {
		dc.c.Del(cacheKey(path, rate))
	}
}

func (dc *decodeCache) close() {
	dc.c.Close()
}

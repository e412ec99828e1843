package tablebase

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/hailam/chesshash/internal/chess"
)

// CachedProber wraps another prober with a ristretto cache keyed by position
// fingerprint. This reduces lookups for frequently probed positions.
type CachedProber struct {
	inner Prober
	cache *ristretto.Cache[uint64, ProbeResult]
}

// NewCachedProber creates a cached prober holding up to cacheSize results.
func NewCachedProber(inner Prober, cacheSize int) (*CachedProber, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[uint64, ProbeResult]{
		NumCounters: int64(cacheSize) * 10,
		MaxCost:     int64(cacheSize),
		BufferItems: 64,
		Metrics:     true,
		// Cost counts results, not bytes.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("tablebase cache: %w", err)
	}
	return &CachedProber{inner: inner, cache: cache}, nil
}

// NewCachedLichessProber creates a cached Lichess prober with default cache size.
func NewCachedLichessProber() (*CachedProber, error) {
	return NewCachedProber(NewLichessProber(), 100000)
}

func (cp *CachedProber) Probe(pos *chess.Position) ProbeResult {
	key := pos.Fingerprint()
	if result, ok := cp.cache.Get(key); ok {
		return result
	}
	result := cp.inner.Probe(pos)
	cp.cache.Set(key, result, 1)
	return result
}

func (cp *CachedProber) ProbeRoot(pos *chess.Position) RootResult {
	// Root probing is not cached (needs move info)
	return cp.inner.ProbeRoot(pos)
}

func (cp *CachedProber) MaxPieces() int {
	return cp.inner.MaxPieces()
}

func (cp *CachedProber) Available() bool {
	return cp.inner.Available()
}

// HitRate returns the cache hit rate as a percentage.
func (cp *CachedProber) HitRate() float64 {
	return cp.cache.Metrics.Ratio() * 100
}

// Wait blocks until buffered writes are visible to Probe.
func (cp *CachedProber) Wait() {
	cp.cache.Wait()
}

// Clear clears the cache.
func (cp *CachedProber) Clear() {
	cp.cache.Clear()
}

// Close releases the cache's background goroutines.
func (cp *CachedProber) Close() {
	cp.cache.Close()
}

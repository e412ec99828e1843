// Package hash implements the transposition table shared by all search
// workers.
//
// The table is lock-free. Every slot is a pair of atomic words, a data word and
// a signature word that is the fingerprint XORed with the data word. Readers
// copy both words before validating them, and a pair torn by a concurrent
// writer fails validation and reads as a miss. Probes refresh the age of the
// entries they hit, which races with stores by the same rules.
package hash

import (
	"math"
	"sync/atomic"
)

// BucketSize is the number of consecutive slots scanned per lookup.
const BucketSize = 4

// EntryBytes is the memory footprint of one slot.
const EntryBytes = 16

type slot struct {
	data atomic.Uint64
	sig  atomic.Uint64
}

func (s *slot) load() Entry {
	return Entry{data: s.data.Load(), sig: s.sig.Load()}
}

func (s *slot) store(e Entry) {
	s.data.Store(e.data)
	s.sig.Store(e.sig)
}

// Table is a fixed-capacity, 4-way set-associative cache of search results.
// Probe and Store may be called from any number of goroutines. Allocate,
// Resize, Clear and Free may not run concurrently with anything.
type Table struct {
	slots []slot
	mask  uint64
	free  atomic.Int64

	probes atomic.Uint64
	hits   atomic.Uint64
	stores atomic.Uint64
}

func (t *Table) bucket(fingerprint uint64) []slot {
	start := fingerprint & t.mask
	return t.slots[start : start+BucketSize : start+BucketSize]
}

// Probe looks fingerprint up. On a hit deep enough for searchDepth it returns
// the stored kind; a hit that is too shallow returns InsufficientDepth, with
// the entry still filled in so its move and static eval can be used.
func (t *Table) Probe(fingerprint uint64, searchDepth, currentAge int) (Kind, Entry) {
	if len(t.slots) == 0 {
		return NotFound, Entry{}
	}
	t.probes.Add(1)

	bucket := t.bucket(fingerprint)
	for i := range bucket {
		p := &bucket[i]
		// Copy before testing: the slot may change under us.
		e := p.load()
		if e.Empty() || !e.Matches(fingerprint) {
			continue
		}
		t.hits.Add(1)
		// Touch the entry so it survives replacement this generation.
		if age := e.Age(); age != 0 && age != int(uint8(currentAge)) {
			e = e.withAge(fingerprint, currentAge)
			p.store(e)
		}
		if e.Depth() >= searchDepth {
			return e.Kind(), e
		}
		return InsufficientDepth, e
	}
	return NotFound, Entry{}
}

// Store records a search result. The destination is the first empty slot of
// the bucket, else the slot already holding fingerprint, else the non-sticky
// slot with the highest replacement score among those that are stale or no
// deeper than depth. If no slot qualifies the result is dropped.
func (t *Table) Store(fingerprint uint64, depth, currentAge int, kind Kind,
	value, staticEval int16, flags Flags, bestMove Move) {
	if len(t.slots) == 0 {
		return
	}

	age := int(uint8(currentAge))
	var best *slot
	wasEmpty := false
	maxScore := math.MinInt

	bucket := t.bucket(fingerprint)
	for i := range bucket {
		p := &bucket[i]
		e := p.load()
		if e.Empty() {
			best, wasEmpty = p, true
			break
		}
		if e.Matches(fingerprint) {
			best = p
			break
		}
		if !e.sticky() && (e.Depth() <= depth || e.Age() != age) {
			if score := replaceScore(e, age); score > maxScore {
				maxScore = score
				best = p
			}
		}
	}
	if best == nil {
		return
	}
	if wasEmpty {
		t.free.Add(-1)
	}
	best.store(NewEntry(fingerprint, value, staticEval, depth, kind, currentAge, flags, bestMove))
	t.stores.Add(1)
}

// replaceScore ranks eviction candidates. A generation of age difference
// outweighs any depth difference.
func replaceScore(e Entry, age int) int {
	diff := e.Age() - age
	if diff < 0 {
		diff = -diff
	}
	return diff<<12 - e.Depth()
}

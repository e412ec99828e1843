package hash

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
)

// New returns a table sized for the given byte budget. A budget below one
// bucket yields a disabled table.
func New(bytes int) *Table {
	t := &Table{}
	t.Allocate(bytes)
	return t
}

// capacityFor rounds bytes/EntryBytes down to a power of two. Budgets smaller
// than one bucket disable the table.
func capacityFor(bytes int) int {
	if bytes <= 0 {
		return 0
	}
	n := uint64(bytes) / EntryBytes
	if n < BucketSize {
		return 0
	}
	return int(roundDownToPowerOf2(n))
}

// roundDownToPowerOf2 rounds n down to the nearest power of 2.
func roundDownToPowerOf2(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

// Allocate replaces the backing storage with a zeroed array sized for bytes.
func (t *Table) Allocate(bytes int) {
	n := capacityFor(bytes)
	if n == 0 {
		t.Free()
		log.Debug().Int("bytes", bytes).Msg("hash table disabled")
		return
	}
	t.slots = make([]slot, n)
	// Bucket-aligned start index: the 4 probed slots never run off the end.
	t.mask = uint64(n - BucketSize)
	t.free.Store(int64(n))
	t.resetStats()
	log.Debug().
		Int("entries", n).
		Str("size", humanize.IBytes(uint64(n*EntryBytes))).
		Msg("hash table allocated")
}

// Resize discards every entry and reallocates for the new budget.
func (t *Table) Resize(bytes int) {
	t.Free()
	t.Allocate(bytes)
}

// Clear empties every slot without reallocating.
func (t *Table) Clear() {
	clear(t.slots)
	t.free.Store(int64(len(t.slots)))
	t.resetStats()
}

// Free releases the backing storage. The table stays usable as a disabled
// table until the next Allocate.
func (t *Table) Free() {
	t.slots = nil
	t.mask = 0
	t.free.Store(0)
	t.resetStats()
}

func (t *Table) resetStats() {
	t.probes.Store(0)
	t.hits.Store(0)
	t.stores.Store(0)
}

// Size returns the capacity in entries.
func (t *Table) Size() int {
	return len(t.slots)
}

// Bytes returns the memory held by the slot array.
func (t *Table) Bytes() int {
	return len(t.slots) * EntryBytes
}

// FillPercent returns the share of slots ever written, in tenths of a percent.
func (t *Table) FillPercent() int {
	size := int64(len(t.slots))
	if size == 0 {
		return 0
	}
	// Racing stores can claim the same empty slot twice.
	used := min(max(size-t.free.Load(), 0), size)
	return int(1000 * used / size)
}

// Stats is a snapshot of table usage counters.
type Stats struct {
	Entries int
	Fill    int
	Probes  uint64
	Hits    uint64
	Stores  uint64
}

// Stats returns the current counters. Counters reset on Allocate and Clear.
func (t *Table) Stats() Stats {
	return Stats{
		Entries: t.Size(),
		Fill:    t.FillPercent(),
		Probes:  t.probes.Load(),
		Hits:    t.hits.Load(),
		Stores:  t.stores.Load(),
	}
}

// HitRate returns the share of probes that matched, as a percentage.
func (s Stats) HitRate() float64 {
	if s.Probes == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Probes) * 100
}

func (s Stats) String() string {
	return fmt.Sprintf("entries=%s fill=%d.%d%% probes=%s hits=%s (%.1f%%) stores=%s",
		humanize.Comma(int64(s.Entries)), s.Fill/10, s.Fill%10,
		humanize.Comma(int64(s.Probes)), humanize.Comma(int64(s.Hits)), s.HitRate(),
		humanize.Comma(int64(s.Stores)))
}

package engine

import "math/bits"

// PawnEntry stores cached pawn structure evaluation.
type PawnEntry struct {
	Key     uint64
	MgScore int16 // Middlegame score
	EgScore int16 // Endgame score
}

const pawnEntryBytes = 16

// PawnTable caches pawn structure terms. It is owned by one search worker.
type PawnTable struct {
	entries []PawnEntry
	mask    uint64
	hits    uint64
	probes  uint64
}

// NewPawnTable creates a pawn table with the given size in KB.
func NewPawnTable(sizeKB int) *PawnTable {
	n := uint64(sizeKB) * 1024 / pawnEntryBytes
	if n == 0 {
		n = 1
	}
	size := uint64(1) << (63 - bits.LeadingZeros64(n))
	return &PawnTable{
		entries: make([]PawnEntry, size),
		mask:    size - 1,
	}
}

// pawnKey mixes both sides' pawn bitboards into one key. The result is never
// zero, so an empty entry never matches.
func pawnKey(white, black uint64) uint64 {
	k := mix64(white) ^ mix64(black^0x9e3779b97f4a7c15)
	return k | 1
}

func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// Probe looks up a pawn structure evaluation in the hash table.
func (pt *PawnTable) Probe(key uint64) (mg, eg int, found bool) {
	pt.probes++
	entry := &pt.entries[key&pt.mask]
	if entry.Key == key {
		pt.hits++
		return int(entry.MgScore), int(entry.EgScore), true
	}
	return 0, 0, false
}

// Store saves a pawn structure evaluation in the hash table.
func (pt *PawnTable) Store(key uint64, mg, eg int) {
	entry := &pt.entries[key&pt.mask]
	entry.Key = key
	entry.MgScore = int16(mg)
	entry.EgScore = int16(eg)
}

// HitRate returns the share of probes that hit, as a percentage.
func (pt *PawnTable) HitRate() float64 {
	if pt.probes == 0 {
		return 0
	}
	return float64(pt.hits) / float64(pt.probes) * 100
}

// Clear clears the pawn hash table.
func (pt *PawnTable) Clear() {
	clear(pt.entries)
	pt.hits, pt.probes = 0, 0
}

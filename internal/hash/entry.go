package hash

// Kind tells the caller how to read an entry's value. The first four kinds are
// stored; InsufficientDepth and NotFound are only returned by Probe.
type Kind uint8

const (
	Exact Kind = iota
	UpperBound
	LowerBound
	StaticEvalOnly
	InsufficientDepth
	NotFound
)

func (k Kind) String() string {
	switch k {
	case Exact:
		return "exact"
	case UpperBound:
		return "upper"
	case LowerBound:
		return "lower"
	case StaticEvalOnly:
		return "eval"
	case InsufficientDepth:
		return "shallow"
	case NotFound:
		return "miss"
	}
	return "unknown"
}

// Flags are stored next to the kind. Entries carrying either flag are never
// evicted by the replacement score.
type Flags uint8

const (
	FlagTablebase Flags = 0x08
	FlagLearned   Flags = 0x10
)

// Depth sentinels for quiescence nodes.
const (
	QSearchCheckDepth   = -1
	QSearchNoCheckDepth = -2
)

// HighMask selects the signature bits that carry the position fingerprint.
// The remaining low 16 bits hold the static evaluation.
const HighMask uint64 = 0xffffffffffff0000

const staticMask = ^HighMask

// Data word layout. Everything the caller acts on sits in the high 48 bits,
// which the signature protects; the low bits carry part of the fingerprint and
// the promotion piece.
//
//	bits  0-12  fingerprint bits 0-12
//	bits 13-15  promotion piece
//	bits 16-31  value (int16)
//	bits 32-39  depth + 2
//	bits 40-47  age
//	bits 48-49  kind
//	bit  50     tablebase
//	bit  51     learned
//	bits 52-57  from square
//	bits 58-63  to square
const (
	promoShift = 13
	valueShift = 16
	depthShift = 32
	ageShift   = 40
	kindShift  = 48
	tbShift    = 50
	learnShift = 51
	fromShift  = 52
	toShift    = 58

	keyMask   = 0x1fff
	promoMask = 0x07
	kindMask  = 0x03
	sqMask    = 0x3f
)

// Entry is one cached search result. It is a value type: the table hands out
// copies and never pointers into its storage.
type Entry struct {
	data uint64
	sig  uint64
}

// NewEntry packs a search result. In hashdebug builds a depth outside
// [-2, 253] panics; release builds truncate silently.
func NewEntry(fingerprint uint64, value, staticEval int16, depth int, kind Kind,
	age int, flags Flags, best Move) Entry {
	checkDepth(depth)
	data := fingerprint&keyMask |
		uint64(uint16(value))<<valueShift |
		uint64(uint8(depth+2))<<depthShift |
		uint64(uint8(age))<<ageShift |
		uint64(uint8(kind)&kindMask)<<kindShift |
		packFlags(flags) |
		packMove(best)
	return Entry{data: data, sig: signature(fingerprint, data, staticEval)}
}

func signature(fingerprint, data uint64, staticEval int16) uint64 {
	return ((fingerprint ^ data) & HighMask) | uint64(uint16(staticEval))
}

func packFlags(flags Flags) uint64 {
	var bits uint64
	if flags&FlagTablebase != 0 {
		bits |= 1 << tbShift
	}
	if flags&FlagLearned != 0 {
		bits |= 1 << learnShift
	}
	return bits
}

func packMove(m Move) uint64 {
	if m.IsNone() {
		return 0
	}
	return uint64(m.From&sqMask)<<fromShift |
		uint64(m.To&sqMask)<<toShift |
		uint64(m.Promotion&promoMask)<<promoShift
}

// Empty reports whether the slot this entry was read from is unused.
func (e Entry) Empty() bool {
	return e.sig&HighMask == 0
}

// EffectiveHash recovers the high fingerprint bits the entry was stored under.
// Any field changed after signing makes it disagree.
func (e Entry) EffectiveHash() uint64 {
	return (e.sig ^ e.data) & HighMask
}

// Matches reports whether e was stored for fingerprint. Besides the signature,
// the low fingerprint bits carried in the data word must agree.
func (e Entry) Matches(fingerprint uint64) bool {
	return e.EffectiveHash() == fingerprint&HighMask &&
		e.data&keyMask == fingerprint&keyMask
}

// Value returns the stored score.
func (e Entry) Value() int {
	return int(int16(uint16(e.data >> valueShift)))
}

// StaticEval returns the cached static evaluation, sign-extended from the low
// 16 bits of the signature.
func (e Entry) StaticEval() int {
	return int(int16(uint16(e.sig & staticMask)))
}

// Depth returns the search depth, which may be one of the quiescence
// sentinels.
func (e Entry) Depth() int {
	return int(uint8(e.data>>depthShift)) - 2
}

func (e Entry) Age() int {
	return int(uint8(e.data >> ageShift))
}

func (e Entry) Kind() Kind {
	return Kind((e.data >> kindShift) & kindMask)
}

// Flags returns the tablebase and learned bits.
func (e Entry) Flags() Flags {
	var flags Flags
	if e.data&(1<<tbShift) != 0 {
		flags |= FlagTablebase
	}
	if e.data&(1<<learnShift) != 0 {
		flags |= FlagLearned
	}
	return flags
}

func (e Entry) Tablebase() bool {
	return e.data&(1<<tbShift) != 0
}

func (e Entry) Learned() bool {
	return e.data&(1<<learnShift) != 0
}

func (e Entry) sticky() bool {
	return e.data&(1<<tbShift|1<<learnShift) != 0
}

// Move returns the packed best move, or NoMove.
func (e Entry) Move() Move {
	m := Move{
		From:      Square((e.data >> fromShift) & sqMask),
		To:        Square((e.data >> toShift) & sqMask),
		Promotion: Piece((e.data >> promoShift) & promoMask),
	}
	if m.IsNone() {
		return NoMove
	}
	return m
}

// AvoidNull reports that a null-move search at nullDepth is unlikely to fail
// high: the entry is an upper bound already below beta.
func (e Entry) AvoidNull(nullDepth, beta int) bool {
	return e.Kind() == UpperBound && e.Depth() >= nullDepth && e.Value() < beta
}

// withAge returns e re-signed under a new age. The static evaluation is
// carried over.
func (e Entry) withAge(fingerprint uint64, age int) Entry {
	data := e.data&^(0xff<<ageShift) | uint64(uint8(age))<<ageShift
	return Entry{data: data, sig: signature(fingerprint, data, int16(e.StaticEval()))}
}

// NextAge advances a search generation. Age 0 is reserved for learned
// entries, which probes never refresh, so the counter cycles through 1..255.
func NextAge(age int) int {
	age = (age + 1) & 0xff
	if age == 0 {
		age = 1
	}
	return age
}

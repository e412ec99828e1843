package hash

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/matryer/is"
)

func TestEntrySignatureRoundTrip(t *testing.T) {
	is := is.New(t)
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 10000; i++ {
		f := rng.Uint64()
		s := int16(rng.IntN(1 << 16))
		v := int16(rng.IntN(1 << 16))
		e := NewEntry(f, v, s, rng.IntN(256)-2, Kind(rng.IntN(4)), rng.IntN(256), 0, NoMove)

		is.Equal(e.StaticEval(), int(s))
		is.Equal(e.Value(), int(v))
		is.Equal(e.EffectiveHash(), f&HighMask)
		is.True(e.Matches(f))
	}
}

func TestEntryStaticEvalExtremes(t *testing.T) {
	for _, s := range []int16{0, 1, -1, math.MaxInt16, math.MinInt16, 0x7fff, -0x8000} {
		e := NewEntry(0x1234_5678_9abc_def0, 0, s, 0, StaticEvalOnly, 1, 0, NoMove)
		if e.StaticEval() != int(s) {
			t.Errorf("static eval %d decoded as %d", s, e.StaticEval())
		}
	}
}

func TestEntryFields(t *testing.T) {
	is := is.New(t)
	const f = 0xdead_beef_cafe_f00d
	m := Move{From: 12, To: 28}

	e := NewEntry(f, -345, 27, 9, LowerBound, 200, FlagTablebase, m)
	is.Equal(e.Depth(), 9)
	is.Equal(e.Age(), 200)
	is.Equal(e.Kind(), LowerBound)
	is.Equal(e.Value(), -345)
	is.Equal(e.StaticEval(), 27)
	is.True(e.Tablebase())
	is.True(!e.Learned())
	is.Equal(e.Move(), m)
	is.True(!e.Empty())
}

func TestEntryDepthSentinels(t *testing.T) {
	is := is.New(t)
	for _, d := range []int{QSearchNoCheckDepth, QSearchCheckDepth, 0, 1, 253} {
		e := NewEntry(0xffff_0000_1111_2222, 0, 0, d, Exact, 1, 0, NoMove)
		is.Equal(e.Depth(), d)
	}
}

func TestEntryMatchRejectsOtherKeys(t *testing.T) {
	e := NewEntry(0x0123_4567_89ab_cdef, 10, 0, 4, Exact, 1, 0, NoMove)

	if e.Matches(0x0123_4567_89ab_cdee) {
		t.Error("entry matched a fingerprint differing in the low bits")
	}
	if e.Matches(0x1123_4567_89ab_cdef) {
		t.Error("entry matched a fingerprint differing in the high bits")
	}
}

func TestEntryTamperingBreaksMatch(t *testing.T) {
	const f = 0x0f0f_1234_5678_9999
	e := NewEntry(f, 100, 5, 6, Exact, 3, 0, Move{From: 1, To: 18})

	// A data word from a different write, under the old signature.
	other := NewEntry(f, 101, 5, 6, Exact, 3, 0, Move{From: 1, To: 18})
	torn := Entry{data: other.data, sig: e.sig}
	if torn.Matches(f) {
		t.Error("torn entry still matches its fingerprint")
	}
}

func TestEntryEmpty(t *testing.T) {
	if !(Entry{}).Empty() {
		t.Error("zero entry should be empty")
	}
	// Small fingerprints still produce live entries.
	e := NewEntry(0xAAAA, 120, 10, 5, Exact, 1, 0, NoMove)
	if e.Empty() {
		t.Error("stored entry reported empty")
	}
}

func TestEntryWithAge(t *testing.T) {
	is := is.New(t)
	const f = 0x5555_aaaa_5555_aaaa
	e := NewEntry(f, -7, -300, 12, UpperBound, 4, FlagLearned, Move{From: 52, To: 60, Promotion: Queen})

	r := e.withAge(f, 9)
	is.Equal(r.Age(), 9)
	is.True(r.Matches(f))
	is.Equal(r.Value(), e.Value())
	is.Equal(r.StaticEval(), e.StaticEval())
	is.Equal(r.Depth(), e.Depth())
	is.Equal(r.Kind(), e.Kind())
	is.Equal(r.Flags(), e.Flags())
	is.Equal(r.Move(), e.Move())
}

func TestEntryAvoidNull(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		dep  int
		val  int16
		want bool
	}{
		{"upper below beta", UpperBound, 6, 50, true},
		{"upper at beta", UpperBound, 6, 100, false},
		{"upper too shallow", UpperBound, 3, 50, false},
		{"lower bound", LowerBound, 6, 50, false},
		{"exact", Exact, 6, 50, false},
	}
	for _, tc := range tests {
		e := NewEntry(0xabcdef0123456789, tc.val, 0, tc.dep, tc.kind, 1, 0, NoMove)
		if got := e.AvoidNull(4, 100); got != tc.want {
			t.Errorf("%s: AvoidNull = %v, want %v", tc.name, got, tc.want)
		}
	}
}

type fakeMove struct {
	from, to Square
	promo    Piece
	null     bool
}

type fakeFactory struct{}

func (fakeFactory) CreateMove(from, to Square, promo Piece) fakeMove {
	return fakeMove{from: from, to: to, promo: promo}
}

func (fakeFactory) NullMove() fakeMove { return fakeMove{null: true} }

func TestBestMove(t *testing.T) {
	e := NewEntry(1<<40, 0, 0, 1, Exact, 1, 0, Move{From: 48, To: 56, Promotion: Knight})
	got := BestMove[fakeMove](e, fakeFactory{})
	if got.null || got.from != 48 || got.to != 56 || got.promo != Knight {
		t.Errorf("BestMove = %+v", got)
	}

	e = NewEntry(1<<40, 0, 0, 1, Exact, 1, 0, NoMove)
	if got := BestMove[fakeMove](e, fakeFactory{}); !got.null {
		t.Errorf("expected null move, got %+v", got)
	}
}

func TestMoveString(t *testing.T) {
	tests := []struct {
		m    Move
		want string
	}{
		{NoMove, "0000"},
		{Move{From: 12, To: 28}, "e2e4"},
		{Move{From: 52, To: 60, Promotion: Queen}, "e7e8q"},
		{Move{From: 6, To: 21}, "g1f3"},
	}
	for _, tc := range tests {
		if got := tc.m.String(); got != tc.want {
			t.Errorf("%+v: got %q, want %q", tc.m, got, tc.want)
		}
	}
}

func TestNextAge(t *testing.T) {
	if got := NextAge(1); got != 2 {
		t.Errorf("NextAge(1) = %d", got)
	}
	if got := NextAge(255); got != 1 {
		t.Errorf("NextAge(255) = %d, want 1", got)
	}
	if got := NextAge(0); got != 1 {
		t.Errorf("NextAge(0) = %d, want 1", got)
	}
}

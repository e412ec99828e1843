package hash

import (
	"math/rand/v2"
	"testing"

	"golang.org/x/sync/errgroup"
)

// payload derives the stored fields from the key, so any hit can be checked
// against what must have been written for it.
func payload(f uint64) (value, eval int16, depth int, m Move) {
	value = int16(f >> 16)
	eval = int16(f >> 32)
	depth = int(f>>48) % 40
	from := Square(f>>8) & 63
	m = Move{From: from, To: (from + 1 + Square(f>>20)%62) & 63}
	return
}

func TestConcurrentProbeStore(t *testing.T) {
	tt := New(1 << 14) // 1024 entries, far fewer than keys
	keys := make([]uint64, 4096)
	rng := rand.New(rand.NewPCG(7, 11))
	for i := range keys {
		keys[i] = rng.Uint64()
	}

	var g errgroup.Group
	for w := 0; w < 8; w++ {
		w := w
		g.Go(func() error {
			r := rand.New(rand.NewPCG(uint64(w), 99))
			age := 1
			for i := 0; i < 50000; i++ {
				if i%5000 == 0 {
					age = NextAge(age)
				}
				f := keys[r.IntN(len(keys))]
				value, eval, depth, m := payload(f)
				if r.IntN(2) == 0 {
					tt.Store(f, depth, age, Exact, value, eval, 0, m)
					continue
				}
				kind, e := tt.Probe(f, 0, age)
				if kind == NotFound {
					continue
				}
				if e.Value() != int(value) || e.StaticEval() != int(eval) ||
					e.Depth() != depth || e.Move() != m {
					t.Errorf("worker %d: key %#x returned a foreign record: value %d eval %d depth %d move %v",
						w, f, e.Value(), e.StaticEval(), e.Depth(), e.Move())
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	s := tt.Stats()
	if s.Probes == 0 || s.Stores == 0 {
		t.Errorf("stats = %+v", s)
	}
	if fill := tt.FillPercent(); fill < 0 || fill > 1000 {
		t.Errorf("fill out of range: %d", fill)
	}
	t.Log(s.String())
}

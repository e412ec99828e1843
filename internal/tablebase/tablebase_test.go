package tablebase

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/hailam/chesshash/internal/chess"
)

func mustFEN(t *testing.T, fen string) *chess.Position {
	t.Helper()
	pos, err := chess.FromFEN(fen)
	if err != nil {
		t.Fatalf("FromFEN(%q): %v", fen, err)
	}
	return pos
}

func TestNoopProber(t *testing.T) {
	prober := NoopProber{}

	if prober.Available() {
		t.Error("NoopProber should not be available")
	}

	if prober.MaxPieces() != 0 {
		t.Errorf("NoopProber MaxPieces should be 0, got %d", prober.MaxPieces())
	}

	pos := chess.NewPosition()
	if prober.Probe(pos).Found {
		t.Error("NoopProber should not find anything")
	}
	if prober.ProbeRoot(pos).Found {
		t.Error("NoopProber ProbeRoot should not find anything")
	}
}

func TestCountPieces(t *testing.T) {
	if count := CountPieces(chess.NewPosition()); count != 32 {
		t.Errorf("Starting position should have 32 pieces, got %d", count)
	}
}

func TestMaterialProber(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		draw bool
	}{
		{"bare kings", "4k3/8/8/8/8/8/8/4K3 w - - 0 1", true},
		{"lone knight", "4k3/8/8/8/8/8/8/4KN2 w - - 0 1", true},
		{"lone bishop", "4k3/8/8/8/8/8/8/4KB2 b - - 0 1", true},
		{"two knights", "4k3/8/8/8/8/8/8/3NKN2 w - - 0 1", false},
		{"rook", "4k3/8/8/8/8/8/8/R3K3 w - - 0 1", false},
		{"pawn", "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1", false},
	}
	var p MaterialProber
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos := mustFEN(t, tc.fen)
			res := p.Probe(pos)
			if res.Found != tc.draw {
				t.Fatalf("Found = %v, want %v", res.Found, tc.draw)
			}
			if res.Found && res.WDL != WDLDraw {
				t.Errorf("WDL = %v, want draw", res.WDL)
			}
			root := p.ProbeRoot(pos)
			if root.Found != tc.draw {
				t.Errorf("root Found = %v, want %v", root.Found, tc.draw)
			}
		})
	}
}

func TestWDLToScore(t *testing.T) {
	tests := []struct {
		wdl  WDL
		ply  int
		sign int
	}{
		{WDLWin, 0, 1},
		{WDLWin, 10, 1},
		{WDLCursedWin, 0, 1},
		{WDLDraw, 0, 0},
		{WDLBlessedLoss, 0, -1},
		{WDLLoss, 0, -1},
	}

	for _, tc := range tests {
		score := WDLToScore(tc.wdl, tc.ply)
		switch {
		case tc.sign > 0 && score <= 0,
			tc.sign < 0 && score >= 0,
			tc.sign == 0 && score != 0:
			t.Errorf("WDL %v at ply %d gave %d", tc.wdl, tc.ply, score)
		}
	}
	if WDLToScore(WDLWin, 1) >= WDLToScore(WDLWin, 0) {
		t.Error("a nearer win should score higher")
	}
	if WDLToScore(WDLWin, 0) != WinScore {
		t.Errorf("root win = %d, want %d", WDLToScore(WDLWin, 0), WinScore)
	}
}

func lichessServer(t *testing.T, body string, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("fen") == "" {
			http.Error(w, "missing fen", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

const krkResponse = `{"category":"win","dtz":13,"moves":[{"uci":"a1a7","category":"loss","dtz":-12}]}`

func TestLichessProber(t *testing.T) {
	var calls atomic.Int32
	srv := lichessServer(t, krkResponse, &calls)
	lp := NewLichessProberURL(srv.URL)
	pos := mustFEN(t, "4k3/8/8/8/8/8/8/R3K3 w - - 0 1")

	res := lp.Probe(pos)
	if !res.Found || res.WDL != WDLWin || res.DTZ != 13 {
		t.Errorf("Probe = %+v", res)
	}

	root := lp.ProbeRoot(pos)
	if !root.Found || root.WDL != WDLWin {
		t.Fatalf("ProbeRoot = %+v", root)
	}
	if got := chess.MoveString(root.Move); got != "a1a7" {
		t.Errorf("root move = %s, want a1a7", got)
	}

	if lp.Probe(chess.NewPosition()).Found {
		t.Error("positions above MaxPieces must not be probed")
	}
	if calls.Load() != 2 {
		t.Errorf("server saw %d calls, want 2", calls.Load())
	}
}

func TestLichessProberServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	lp := NewLichessProberURL(srv.URL)
	if lp.Probe(mustFEN(t, "4k3/8/8/8/8/8/8/R3K3 w - - 0 1")).Found {
		t.Error("error responses must read as not found")
	}
}

func TestCachedProber(t *testing.T) {
	var calls atomic.Int32
	srv := lichessServer(t, krkResponse, &calls)
	cp, err := NewCachedProber(NewLichessProberURL(srv.URL), 1000)
	if err != nil {
		t.Fatal(err)
	}
	defer cp.Close()

	pos := mustFEN(t, "4k3/8/8/8/8/8/8/R3K3 w - - 0 1")
	first := cp.Probe(pos)
	cp.Wait()
	second := cp.Probe(pos)
	if first != second {
		t.Errorf("cached result %+v differs from %+v", second, first)
	}
	if calls.Load() != 1 {
		t.Errorf("server saw %d calls, want 1", calls.Load())
	}
	if cp.HitRate() <= 0 {
		t.Errorf("HitRate = %v", cp.HitRate())
	}
}

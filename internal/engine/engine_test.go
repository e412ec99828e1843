package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hailam/chesshash/internal/chess"
	"github.com/hailam/chesshash/internal/hash"
	"github.com/hailam/chesshash/internal/learn"
	"github.com/hailam/chesshash/internal/tune"
)

func mustFEN(t *testing.T, fen string) *chess.Position {
	t.Helper()
	pos, err := chess.FromFEN(fen)
	if err != nil {
		t.Fatalf("FromFEN(%q): %v", fen, err)
	}
	return pos
}

func isLegal(pos *chess.Position, m chess.Move) bool {
	for _, l := range pos.LegalMoves() {
		if l == m {
			return true
		}
	}
	return false
}

func TestSearchBasic(t *testing.T) {
	pos := chess.NewPosition()
	eng := NewEngine(1)

	res := eng.Search(context.Background(), pos, nil, UCILimits{Depth: 3})
	if res.Move == chess.NoMove || !isLegal(pos, res.Move) {
		t.Fatalf("Search returned %s for the starting position", chess.MoveString(res.Move))
	}
	if res.Depth != 3 {
		t.Errorf("Depth = %d, want 3", res.Depth)
	}
	if len(res.PV) == 0 || res.PV[0] != res.Move {
		t.Errorf("PV %v does not start with the best move", res.PV)
	}
	if eng.HashFull() == 0 {
		t.Error("search left the table empty")
	}
	t.Logf("Best move: %s (%s)", chess.MoveString(res.Move), ScoreToString(res.Score))
}

func TestMateInOne(t *testing.T) {
	pos := mustFEN(t, "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1")
	eng := NewEngine(16)

	res := eng.Search(context.Background(), pos, nil, UCILimits{Depth: 3})
	if got := chess.MoveString(res.Move); got != "a1a8" {
		t.Errorf("best move = %s, want a1a8", got)
	}
	if res.Score != MateScore-1 {
		t.Errorf("score = %d, want mate in one (%d)", res.Score, MateScore-1)
	}
	if UCIScore(res.Score) != "mate 1" {
		t.Errorf("UCIScore = %q", UCIScore(res.Score))
	}
}

func TestLazySMP(t *testing.T) {
	pos := chess.NewPosition()
	eng := NewEngine(16)
	eng.SetThreads(4)

	res := eng.Search(context.Background(), pos, nil, UCILimits{Depth: 4})
	if !isLegal(pos, res.Move) {
		t.Fatalf("illegal move %s", chess.MoveString(res.Move))
	}
	if eng.Threads() != 4 {
		t.Errorf("Threads = %d", eng.Threads())
	}
	stats := eng.Table().Stats()
	if stats.Hits == 0 {
		t.Errorf("workers never shared a result: %s", stats)
	}
}

func TestTableShortensResearch(t *testing.T) {
	pos := chess.NewPosition()
	eng := NewEngine(1)
	limits := UCILimits{Depth: 4}

	first := eng.Search(context.Background(), pos, nil, limits)
	second := eng.Search(context.Background(), pos, nil, limits)
	if second.Nodes >= first.Nodes {
		t.Errorf("second search took %d nodes, first %d", second.Nodes, first.Nodes)
	}

	eng.Clear()
	if eng.HashFull() != 0 {
		t.Errorf("HashFull after Clear = %d", eng.HashFull())
	}
	third := eng.Search(context.Background(), pos, nil, limits)
	if third.Nodes <= second.Nodes {
		t.Errorf("search after Clear took %d nodes, warm search %d", third.Nodes, second.Nodes)
	}
}

func TestSearchStopsOnCancel(t *testing.T) {
	pos := chess.NewPosition()
	eng := NewEngine(16)
	eng.SetThreads(2)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan Result, 1)
	go func() { done <- eng.Search(ctx, pos, nil, UCILimits{Infinite: true}) }()

	select {
	case res := <-done:
		if !isLegal(pos, res.Move) {
			t.Errorf("illegal move %s", chess.MoveString(res.Move))
		}
	case <-time.After(10 * time.Second):
		t.Fatal("search ignored cancellation")
	}
}

func TestNodeLimit(t *testing.T) {
	pos := chess.NewPosition()
	eng := NewEngine(16)

	res := eng.Search(context.Background(), pos, nil, UCILimits{Nodes: 5000})
	if !isLegal(pos, res.Move) {
		t.Fatalf("illegal move %s", chess.MoveString(res.Move))
	}
	// The limit is polled every 1024 nodes.
	if res.Nodes > 5000+2048 {
		t.Errorf("searched %d nodes with a limit of 5000", res.Nodes)
	}
}

func TestRepetitionIsDraw(t *testing.T) {
	pos := chess.NewPosition()
	eng := NewEngine(16)

	var history []uint64
	for _, s := range []string{"g1f3", "g8f6", "f3g1", "f6g8"} {
		history = append(history, pos.Fingerprint())
		m, err := pos.ParseMove(s)
		if err != nil {
			t.Fatal(err)
		}
		pos.Apply(m)
	}

	w := newWorker(0, eng, pos, history, nil)
	if !w.isDraw() {
		t.Error("position seen before was not recognized as a repetition")
	}
	w = newWorker(0, eng, pos, nil, nil)
	if w.isDraw() {
		t.Error("fresh position reported as a repetition")
	}
}

func TestTablebaseRoot(t *testing.T) {
	pos := mustFEN(t, "4k3/8/8/8/8/8/8/4K3 w - - 0 1")
	eng := NewEngine(1)

	res := eng.Search(context.Background(), pos, nil, UCILimits{Depth: 10})
	if !isLegal(pos, res.Move) || res.Score != 0 {
		t.Errorf("bare kings: %s score %d", chess.MoveString(res.Move), res.Score)
	}
	if res.Nodes != 0 {
		t.Errorf("tablebase root still searched %d nodes", res.Nodes)
	}
}

func TestTablebaseEntriesAreSticky(t *testing.T) {
	// White can trade into a bare-kings draw; the probe stores that node.
	pos := mustFEN(t, "4k3/8/8/8/8/8/3q4/4K3 w - - 0 1")
	eng := NewEngine(1)

	res := eng.Search(context.Background(), pos, nil, UCILimits{Depth: 2})
	if got := chess.MoveString(res.Move); got != "e1d2" {
		t.Fatalf("best move = %s, want e1d2", got)
	}
	m, _ := pos.ParseMove("e1d2")
	child := pos.Clone()
	child.Apply(m)
	kind, e := eng.Table().Probe(child.Fingerprint(), tablebaseDepth, eng.age)
	if kind != hash.Exact || !e.Tablebase() {
		t.Errorf("drawn child stored as %v (tablebase=%v)", kind, e.Tablebase())
	}
}

type fakeLearner struct {
	records []learn.Record
}

func (f *fakeLearner) Record(_ string, records []learn.Record) (uuid.UUID, error) {
	f.records = append(f.records, records...)
	return uuid.New(), nil
}

func TestLearnerRecordsDeepResults(t *testing.T) {
	pos := chess.NewPosition()
	eng := NewEngine(16)
	l := &fakeLearner{}
	eng.SetLearner(l, 3)

	eng.Search(context.Background(), pos, nil, UCILimits{Depth: 2})
	if len(l.records) != 0 {
		t.Fatalf("shallow search recorded %d results", len(l.records))
	}
	res := eng.Search(context.Background(), pos, nil, UCILimits{Depth: 3})
	if len(l.records) != 1 {
		t.Fatalf("recorded %d results, want 1", len(l.records))
	}
	r := l.records[0]
	if r.Fingerprint != pos.Fingerprint() || r.Depth != 3 || r.Move != chess.Pack(res.Move) {
		t.Errorf("record = %+v", r)
	}
}

func TestEvaluateSymmetric(t *testing.T) {
	eng := NewEngine(1)
	pos := chess.NewPosition()
	if got := eng.Evaluate(pos); got != tempoBonus {
		t.Errorf("start position = %d, want %d", got, tempoBonus)
	}
	mirrored := mustFEN(t, "r1bqkb1r/pppp1ppp/2n2n2/4p3/4P3/2N2N2/PPPP1PPP/R1BQKB1R w KQkq - 4 4")
	if eng.Evaluate(mirrored) != tempoBonus {
		t.Errorf("symmetric position = %d", eng.Evaluate(mirrored))
	}
}

func TestEvaluateUsesParams(t *testing.T) {
	pos := mustFEN(t, "rnbqk2r/pppp1ppp/5n2/2b1p3/2B1P3/5N2/PPPP1PPP/RNBQ1RK1 w kq - 5 4")
	eng := NewEngine(1)
	base := eng.Evaluate(pos)

	params := tune.Defaults()
	params.SetValue(tune.Castling3, 0)
	eng.SetParams(params)
	if got := eng.Evaluate(pos); got >= base {
		t.Errorf("removing the castling bonus did not lower white's score: %d >= %d", got, base)
	}
}

func TestPawnTable(t *testing.T) {
	pt := NewPawnTable(16)
	pos := chess.NewPosition()
	b := pos.Board()
	key := pawnKey(b.White.Pawns, b.Black.Pawns)

	if _, _, found := pt.Probe(key); found {
		t.Error("Expected cache miss on first probe")
	}
	pt.Store(key, -15, -20)
	mg, eg, found := pt.Probe(key)
	if !found || mg != -15 || eg != -20 {
		t.Errorf("got mg=%d eg=%d found=%v", mg, eg, found)
	}
	if pawnKey(b.White.Pawns, b.Black.Pawns) == pawnKey(b.Black.Pawns, b.White.Pawns) {
		t.Error("pawn key ignores colour")
	}
	pt.Clear()
	if _, _, found := pt.Probe(key); found {
		t.Error("entry survived Clear")
	}
}

func TestAdjustScore(t *testing.T) {
	for _, score := range []int{0, 150, -150, MateScore - 5, -MateScore + 7} {
		for _, ply := range []int{0, 3, 20} {
			if got := AdjustScoreFromTT(AdjustScoreToTT(score, ply), ply); got != score {
				t.Errorf("round trip of %d at ply %d gave %d", score, ply, got)
			}
		}
	}
	if AdjustScoreToTT(MateScore-5, 3) != MateScore-2 {
		t.Error("mate distance not rebased to the stored node")
	}
}

func TestPerft(t *testing.T) {
	eng := NewEngine(1)
	want := []uint64{1, 20, 400, 8902}
	for depth, n := range want {
		if got := eng.Perft(chess.NewPosition(), depth); got != n {
			t.Errorf("perft(%d) = %d, want %d", depth, got, n)
		}
	}
}

func TestScoreToString(t *testing.T) {
	tests := map[int]string{
		0:              "0.00",
		125:            "1.25",
		-40:            "-0.40",
		MateScore - 1:  "Mate in 1",
		-MateScore + 2: "Mated in 1",
	}
	for score, want := range tests {
		if got := ScoreToString(score); got != want {
			t.Errorf("ScoreToString(%d) = %q, want %q", score, got, want)
		}
	}
}

func TestScoreMovesTableMove(t *testing.T) {
	pos := chess.NewPosition()
	moves := pos.LegalMoves()
	d4, _ := pos.ParseMove("d2d4")

	scores := scoreMoves(pos, moves, chess.Unpack(chess.Pack(d4)))
	PickMove(moves, scores, 0)
	if moves[0] != d4 || scores[0] != TTMoveScore {
		t.Errorf("table move ranked %s first", chess.MoveString(moves[0]))
	}

	// A move from a colliding position matches nothing.
	bogus := chess.Unpack(hash.Move{From: 36, To: 44})
	for i, s := range scoreMoves(pos, moves, bogus) {
		if s == TTMoveScore {
			t.Errorf("illegal table move scored as %s", chess.MoveString(moves[i]))
		}
	}
}

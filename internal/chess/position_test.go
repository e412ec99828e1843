package chess

import (
	"testing"

	"github.com/dylhunn/dragontoothmg"

	"github.com/hailam/chesshash/internal/hash"
)

func TestStartPosition(t *testing.T) {
	pos := NewPosition()
	if n := len(pos.LegalMoves()); n != 20 {
		t.Errorf("start position has %d legal moves, want 20", n)
	}
	if pos.PieceCount() != 32 {
		t.Errorf("start position has %d pieces", pos.PieceCount())
	}
	if !pos.WhiteToMove() {
		t.Error("white should be to move")
	}
}

func TestFingerprintTransposition(t *testing.T) {
	pos := NewPosition()
	start := pos.Fingerprint()

	var undo []func()
	for _, s := range []string{"g1f3", "g8f6", "f3g1", "f6g8"} {
		m, err := pos.ParseMove(s)
		if err != nil {
			t.Fatalf("ParseMove(%s): %v", s, err)
		}
		undo = append(undo, pos.Apply(m))
		if s == "g1f3" && pos.Fingerprint() == start {
			t.Error("fingerprint unchanged after a move")
		}
	}
	if pos.Fingerprint() != start {
		t.Errorf("knight shuffle reached %#x, want %#x", pos.Fingerprint(), start)
	}

	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
	if pos.Fingerprint() != start {
		t.Error("fingerprint not restored after undo")
	}
}

func TestCreateMove(t *testing.T) {
	pos := NewPosition()

	m := pos.CreateMove(12, 28, hash.NoPiece) // e2e4
	if m == NoMove || MoveString(m) != "e2e4" {
		t.Errorf("CreateMove(e2e4) = %s", MoveString(m))
	}
	if m := pos.CreateMove(12, 36, hash.NoPiece); m != NoMove {
		t.Errorf("illegal e2e5 rebuilt as %s", MoveString(m))
	}
}

func TestCreatePromotion(t *testing.T) {
	pos, err := FromFEN("8/4P3/8/8/8/k7/8/K7 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	m := pos.CreateMove(52, 60, hash.Queen)
	if MoveString(m) != "e7e8q" {
		t.Errorf("promotion rebuilt as %s", MoveString(m))
	}
	if got := Pack(m); got != (hash.Move{From: 52, To: 60, Promotion: hash.Queen}) {
		t.Errorf("Pack = %+v", got)
	}
}

func TestBestMoveFromTable(t *testing.T) {
	pos := NewPosition()
	tt := hash.New(1 << 12)
	m, _ := pos.ParseMove("d2d4")

	tt.Store(pos.Fingerprint(), 4, 1, hash.Exact, 20, 5, 0, Pack(m))
	_, e := tt.Probe(pos.Fingerprint(), 4, 1)
	if got := hash.BestMove[Move](e, pos); got != m {
		t.Errorf("BestMove = %s, want d2d4", MoveString(got))
	}

	tt.Store(pos.Fingerprint(), 4, 1, hash.Exact, 20, 5, 0, hash.NoMove)
	_, e = tt.Probe(pos.Fingerprint(), 4, 1)
	if got := hash.BestMove[Move](e, pos); got != NoMove {
		t.Errorf("BestMove = %s, want none", MoveString(got))
	}
}

func TestFromFENErrors(t *testing.T) {
	for _, fen := range []string{"", "8/8/8 w"} {
		if _, err := FromFEN(fen); err == nil {
			t.Errorf("FromFEN(%q) accepted", fen)
		}
	}
	pos, err := FromFEN("8/8/8/8/8/k7/8/K7 w - -")
	if err != nil {
		t.Fatalf("four-field FEN rejected: %v", err)
	}
	if pos.PieceCount() != 2 {
		t.Errorf("piece count = %d", pos.PieceCount())
	}
}

func TestParseMoveRejectsIllegal(t *testing.T) {
	pos := NewPosition()
	if _, err := pos.ParseMove("e2e5"); err == nil {
		t.Error("illegal move accepted")
	}
	if _, err := pos.ParseMove("zz"); err == nil {
		t.Error("garbage accepted")
	}
}

func TestNullPosition(t *testing.T) {
	pos := NewPosition()
	m, _ := pos.ParseMove("e2e4")
	pos.Apply(m)

	null, err := pos.NullPosition()
	if err != nil {
		t.Fatal(err)
	}
	if null.WhiteToMove() == pos.WhiteToMove() {
		t.Error("side to move not flipped")
	}
	if null.Fingerprint() == pos.Fingerprint() {
		t.Error("null position shares the fingerprint")
	}
	if n := len(null.LegalMoves()); n != 20 {
		t.Errorf("white has %d moves after the null move, want 20", n)
	}
}

func TestPieceOn(t *testing.T) {
	pos := NewPosition()
	tests := []struct {
		sq   uint8
		want dragontoothmg.Piece
	}{
		{0, dragontoothmg.Rook},
		{1, dragontoothmg.Knight},
		{3, dragontoothmg.Queen},
		{4, dragontoothmg.King},
		{12, dragontoothmg.Pawn},
		{28, dragontoothmg.Nothing},
	}
	for _, tc := range tests {
		if got := PieceOn(pos.Ours(), tc.sq); got != tc.want {
			t.Errorf("PieceOn(%d) = %v, want %v", tc.sq, got, tc.want)
		}
	}
	if !pos.HasNonPawnMaterial() {
		t.Error("start position has pieces")
	}
	if pos.GamePly() != 0 {
		t.Errorf("GamePly = %d", pos.GamePly())
	}
}

func TestUnpack(t *testing.T) {
	pos, err := FromFEN("r3k3/1P6/8/8/8/8/4P3/4K2R w K - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range pos.LegalMoves() {
		if got := Unpack(Pack(m)); got != m {
			t.Errorf("Unpack(Pack(%s)) = %s", MoveString(m), MoveString(got))
		}
	}
	if Unpack(hash.NoMove) != NoMove {
		t.Error("packed no-move did not unpack to NoMove")
	}
}

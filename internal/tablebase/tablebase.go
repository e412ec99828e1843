// Package tablebase probes endgame tablebases. Results the search obtains
// here are stored in the transposition table as sticky entries that the
// replacement policy never evicts.
package tablebase

import (
	"math/bits"

	"github.com/hailam/chesshash/internal/chess"
)

// WDL represents Win/Draw/Loss result.
type WDL int

const (
	WDLLoss        WDL = -2
	WDLBlessedLoss WDL = -1 // Loss that the 50-move rule turns into a draw
	WDLDraw        WDL = 0
	WDLCursedWin   WDL = 1 // Win that the 50-move rule turns into a draw
	WDLWin         WDL = 2
)

func (w WDL) String() string {
	switch w {
	case WDLLoss:
		return "loss"
	case WDLBlessedLoss:
		return "blessed-loss"
	case WDLDraw:
		return "draw"
	case WDLCursedWin:
		return "cursed-win"
	case WDLWin:
		return "win"
	}
	return "unknown"
}

// ProbeResult contains the result of a tablebase probe.
type ProbeResult struct {
	Found bool
	WDL   WDL
	DTZ   int // Distance to zeroing move (pawn move or capture)
}

// RootResult contains the best move from tablebase at root position.
type RootResult struct {
	Found bool
	Move  chess.Move
	WDL   WDL
	DTZ   int
}

// Prober is the interface for tablebase probing.
type Prober interface {
	// Probe looks up a position in the tablebase.
	Probe(pos *chess.Position) ProbeResult

	// ProbeRoot finds the best move from the tablebase at the root position.
	ProbeRoot(pos *chess.Position) RootResult

	// MaxPieces returns the maximum number of pieces supported.
	MaxPieces() int

	// Available returns true if tablebases are loaded and available.
	Available() bool
}

// WinScore is the score of a tablebase win at the root. It sits well below
// the search's mate scores so the two are never confused.
const WinScore = 20000

// WDLToScore converts a WDL result to a search score from the side to move's
// point of view.
func WDLToScore(wdl WDL, ply int) int {
	switch wdl {
	case WDLWin:
		return WinScore - ply
	case WDLCursedWin:
		return 1
	case WDLDraw:
		return 0
	case WDLBlessedLoss:
		return -1
	case WDLLoss:
		return -WinScore + ply
	default:
		return 0
	}
}

// NoopProber is a prober that always returns "not found".
type NoopProber struct{}

func (NoopProber) Probe(*chess.Position) ProbeResult {
	return ProbeResult{}
}

func (NoopProber) ProbeRoot(*chess.Position) RootResult {
	return RootResult{}
}

func (NoopProber) MaxPieces() int {
	return 0
}

func (NoopProber) Available() bool {
	return false
}

// MaterialProber knows the draws that need no table: bare kings and a lone
// minor piece against a king.
type MaterialProber struct{}

func (MaterialProber) Probe(pos *chess.Position) ProbeResult {
	if !insufficientMaterial(pos) {
		return ProbeResult{}
	}
	return ProbeResult{Found: true, WDL: WDLDraw}
}

func (MaterialProber) ProbeRoot(pos *chess.Position) RootResult {
	if !insufficientMaterial(pos) {
		return RootResult{}
	}
	moves := pos.LegalMoves()
	if len(moves) == 0 {
		return RootResult{}
	}
	return RootResult{Found: true, Move: moves[0], WDL: WDLDraw}
}

func (MaterialProber) MaxPieces() int {
	return 3
}

func (MaterialProber) Available() bool {
	return true
}

func insufficientMaterial(pos *chess.Position) bool {
	b := pos.Board()
	heavy := b.White.Pawns | b.White.Rooks | b.White.Queens |
		b.Black.Pawns | b.Black.Rooks | b.Black.Queens
	if heavy != 0 {
		return false
	}
	minors := b.White.Knights | b.White.Bishops | b.Black.Knights | b.Black.Bishops
	return bits.OnesCount64(minors) <= 1
}

// CountPieces returns the total number of pieces on the board.
func CountPieces(pos *chess.Position) int {
	return pos.PieceCount()
}

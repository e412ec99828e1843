package engine

import (
	"github.com/dylhunn/dragontoothmg"

	"github.com/hailam/chesshash/internal/chess"
)

// Move ordering priorities
const (
	TTMoveScore     = 10000000 // TT move gets highest priority
	GoodCaptureBase = 1000000  // Base score for captures
	PromotionBase   = 900000   // Quiet promotions
)

// MVV-LVA (Most Valuable Victim - Least Valuable Attacker) scores, indexed by
// dragontoothmg piece type. Higher score = search first.
var mvvLva = [7][7]int{
	//          -   P   N   B   R   Q   K  (attacker)
	/* - */ {0, 0, 0, 0, 0, 0, 0},
	/* P */ {0, 15, 14, 14, 13, 12, 11},
	/* N */ {0, 25, 24, 24, 23, 22, 21},
	/* B */ {0, 35, 34, 34, 33, 32, 31},
	/* R */ {0, 45, 44, 44, 43, 42, 41},
	/* Q */ {0, 55, 54, 54, 53, 52, 51},
	/* K */ {0, 0, 0, 0, 0, 0, 0},
}

// scoreMoves assigns ordering scores: the table move first, then captures by
// MVV-LVA, then promotions, then quiet moves in generator order. ttMove is not
// checked for legality; if it is not among moves it ranks nothing.
func scoreMoves(pos *chess.Position, moves []chess.Move, ttMove chess.Move) []int {
	scores := make([]int, len(moves))
	us, them := pos.Ours(), pos.Theirs()
	for i, m := range moves {
		switch {
		case m == ttMove:
			scores[i] = TTMoveScore
		case pos.IsCapture(m):
			victim := chess.PieceOn(them, m.To())
			attacker := chess.PieceOn(us, m.From())
			scores[i] = GoodCaptureBase + mvvLva[victim][attacker]
		case m.Promote() != dragontoothmg.Nothing:
			scores[i] = PromotionBase + pieceValues[m.Promote()]
		}
	}
	return scores
}

// PickMove selects the best remaining move and moves it to position index.
// This allows lazy move sorting (only sort as much as needed).
func PickMove(moves []chess.Move, scores []int, index int) {
	best := index
	for j := index + 1; j < len(moves); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != index {
		moves[index], moves[best] = moves[best], moves[index]
		scores[index], scores[best] = scores[best], scores[index]
	}
}

// noisyMoves filters moves down to captures and promotions, in place.
func noisyMoves(pos *chess.Position, moves []chess.Move) []chess.Move {
	n := 0
	for _, m := range moves {
		if pos.IsCapture(m) || m.Promote() != dragontoothmg.Nothing {
			moves[n] = m
			n++
		}
	}
	return moves[:n]
}

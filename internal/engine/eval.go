// Package engine implements a Lazy SMP alpha-beta search whose workers share
// one transposition table.
package engine

import (
	"math/bits"

	"github.com/dylhunn/dragontoothmg"

	"github.com/hailam/chesshash/internal/chess"
	"github.com/hailam/chesshash/internal/tune"
)

// Evaluation constants
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
)

// Piece values indexed by dragontoothmg piece type.
var pieceValues = [7]int{0, PawnValue, KnightValue, BishopValue, RookValue, QueenValue, 0}

// Passed pawn bonuses by relative rank.
var passedPawnBonus = [8]int{0, 10, 20, 40, 70, 120, 200, 0}

// Pawn structure penalties
const (
	doubledPawnMgPenalty  = -15
	doubledPawnEgPenalty  = -20
	isolatedPawnMgPenalty = -20
	isolatedPawnEgPenalty = -25
)

// Tempo bonus - small advantage for having the move
const tempoBonus = 10

const fileA uint64 = 0x0101010101010101

var centerBonus [64]int

func init() {
	for sq := 0; sq < 64; sq++ {
		f, r := sq%8, sq/8
		df := abs(2*f - 7)
		dr := abs(2*r - 7)
		centerBonus[sq] = (14 - df - dr) / 2
	}
}

// Evaluator scores positions from the side to move's point of view. It reads
// coefficients from a tune.Set and caches pawn structure. An Evaluator is
// owned by one goroutine; the Set may be shared.
type Evaluator struct {
	params *tune.Set
	pawns  *PawnTable
}

// NewEvaluator creates an evaluator. A nil pawns table disables caching.
func NewEvaluator(params *tune.Set, pawns *PawnTable) *Evaluator {
	if params == nil {
		params = tune.Defaults()
	}
	return &Evaluator{params: params, pawns: pawns}
}

// Evaluate returns the static evaluation of pos in centipawns.
func (ev *Evaluator) Evaluate(pos *chess.Position) int {
	b := pos.Board()
	white, black := &b.White, &b.Black

	level := materialLevel(white, black)
	phase := ev.params.MaterialScale[min(level, len(ev.params.MaterialScale)-1)]

	score := material(white) - material(black)
	score += centrality(white) - centrality(black)

	mg, eg := ev.pawnStructure(white.Pawns, black.Pawns)
	score += (mg*phase + eg*(128-phase)) / 128

	adj := ev.adjustments(white, black, true, level) - ev.adjustments(black, white, false, level)
	score += int(adj / 10) // parameters are in tenths of a centipawn

	if !pos.WhiteToMove() {
		score = -score
	}
	return score + tempoBonus
}

// materialLevel maps non-pawn material onto 0 (bare kings) to 31 (full set).
func materialLevel(white, black *dragontoothmg.Bitboards) int {
	units := 0
	for _, bb := range []*dragontoothmg.Bitboards{white, black} {
		units += 3*bits.OnesCount64(bb.Knights|bb.Bishops) +
			5*bits.OnesCount64(bb.Rooks) + 9*bits.OnesCount64(bb.Queens)
	}
	return min(units/2, 31)
}

func material(bb *dragontoothmg.Bitboards) int {
	return PawnValue*bits.OnesCount64(bb.Pawns) +
		KnightValue*bits.OnesCount64(bb.Knights) +
		BishopValue*bits.OnesCount64(bb.Bishops) +
		RookValue*bits.OnesCount64(bb.Rooks) +
		QueenValue*bits.OnesCount64(bb.Queens)
}

// centrality rewards centralized minors. The table is symmetric, so it
// serves both colors.
func centrality(bb *dragontoothmg.Bitboards) int {
	score := 0
	for n := bb.Knights; n != 0; n &= n - 1 {
		score += 2 * centerBonus[bits.TrailingZeros64(n)]
	}
	for n := bb.Bishops; n != 0; n &= n - 1 {
		score += centerBonus[bits.TrailingZeros64(n)]
	}
	return score
}

// pawnStructure returns white-minus-black pawn terms, cached by pawn layout.
func (ev *Evaluator) pawnStructure(white, black uint64) (mg, eg int) {
	if ev.pawns == nil {
		return evaluatePawnStructure(white, black)
	}
	key := pawnKey(white, black)
	if mg, eg, found := ev.pawns.Probe(key); found {
		return mg, eg
	}
	mg, eg = evaluatePawnStructure(white, black)
	ev.pawns.Store(key, mg, eg)
	return mg, eg
}

func evaluatePawnStructure(white, black uint64) (mg, eg int) {
	wmg, weg := pawnTerms(white, black, true)
	bmg, beg := pawnTerms(black, white, false)
	return wmg - bmg, weg - beg
}

func pawnTerms(own, enemy uint64, isWhite bool) (mg, eg int) {
	for f := 0; f < 8; f++ {
		if n := bits.OnesCount64(own & (fileA << f)); n > 1 {
			mg += (n - 1) * doubledPawnMgPenalty
			eg += (n - 1) * doubledPawnEgPenalty
		}
	}
	for p := own; p != 0; p &= p - 1 {
		sq := bits.TrailingZeros64(p)
		f, r := sq%8, sq/8
		adjacent := adjacentFiles(f)
		if own&adjacent == 0 {
			mg += isolatedPawnMgPenalty
			eg += isolatedPawnEgPenalty
		}
		if enemy&(adjacent|fileA<<f)&ahead(r, isWhite) == 0 {
			rel := r
			if !isWhite {
				rel = 7 - r
			}
			mg += passedPawnBonus[rel] / 2
			eg += passedPawnBonus[rel]
		}
	}
	return mg, eg
}

func adjacentFiles(f int) uint64 {
	var m uint64
	if f > 0 {
		m |= fileA << (f - 1)
	}
	if f < 7 {
		m |= fileA << (f + 1)
	}
	return m
}

// ahead returns the ranks in front of rank r from the given side's view.
func ahead(r int, isWhite bool) uint64 {
	if isWhite {
		if r >= 7 {
			return 0
		}
		return ^uint64(0) << (8 * (r + 1))
	}
	return uint64(1)<<(8*r) - 1
}

// adjustments returns the tunable terms for one side, in parameter units.
func (ev *Evaluator) adjustments(us, them *dragontoothmg.Bitboards, isWhite bool, level int) float64 {
	p := ev.params
	var score float64

	king := bits.TrailingZeros64(us.Kings)
	kingSide, queenSide := 6, 2
	if !isWhite {
		kingSide, queenSide = 62, 58
	}
	switch king {
	case kingSide:
		score += p.Scale(p.Value(tune.Castling3), tune.Castling3, level)
	case queenSide:
		score += p.Scale(p.Value(tune.Castling4), tune.Castling4, level)
	}

	if king < 64 {
		file := fileA << (king % 8)
		if us.Pawns&file == 0 {
			i := tune.KingFileHalfOpen
			if them.Pawns&file == 0 {
				i = tune.KingFileOpen
			}
			score += p.Scale(p.Value(i), i, level)
		}
	}

	usMinors := bits.OnesCount64(us.Knights | us.Bishops)
	themMinors := bits.OnesCount64(them.Knights | them.Bishops)
	usMajors := us.Rooks | us.Queens
	themMajors := them.Rooks | them.Queens
	if usMinors > themMinors && bits.OnesCount64(them.Pawns) > bits.OnesCount64(us.Pawns) {
		score += p.Scale(p.Value(tune.MinorForPawns), tune.MinorForPawns, level)
	}

	// Rook and minor against rook, and queen and minor against queen, are
	// hard to win.
	if usMinors == 1 && themMinors == 0 {
		switch {
		case bits.OnesCount64(us.Rooks) == 1 && us.Queens == 0 &&
			bits.OnesCount64(them.Rooks) == 1 && them.Queens == 0:
			i := tune.KRMinorVsR
			if us.Pawns|them.Pawns == 0 {
				i = tune.KRMinorVsRNoPawns
			}
			score += p.Scale(p.Value(i), i, level)
		case bits.OnesCount64(us.Queens) == 1 && us.Rooks == 0 &&
			bits.OnesCount64(them.Queens) == 1 && them.Rooks == 0:
			i := tune.KQMinorVsQ
			if us.Pawns|them.Pawns == 0 {
				i = tune.KQMinorVsQNoPawns
			}
			score += p.Scale(p.Value(i), i, level)
		}
	}

	pawnDiff := bits.OnesCount64(us.Pawns) - bits.OnesCount64(them.Pawns)
	if pawnDiff > 0 {
		score += p.Scale(p.Value(tune.EndgamePawnAdvantage)*pawnDiff, tune.EndgamePawnAdvantage, level)
		if usMinors+themMinors == 0 && usMajors|themMajors == 0 {
			score += p.Scale(p.Value(tune.PawnEndgame1)*pawnDiff, tune.PawnEndgame1, level)
		}
	}
	return score
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

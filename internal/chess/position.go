// Package chess adapts the dragontoothmg move generator to the interfaces the
// transposition table and the search consume.
package chess

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/dylhunn/dragontoothmg"

	"github.com/hailam/chesshash/internal/hash"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Move is the generator's 16-bit move.
type Move = dragontoothmg.Move

// NoMove is the null move sentinel.
const NoMove Move = 0

// Position wraps a dragontoothmg board.
type Position struct {
	board dragontoothmg.Board
}

// NewPosition returns the initial position.
func NewPosition() *Position {
	return &Position{board: dragontoothmg.ParseFen(StartFEN)}
}

// FromFEN parses a FEN string.
func FromFEN(fen string) (pos *Position, err error) {
	fields := strings.Fields(fen)
	if len(fields) < 4 {
		return nil, fmt.Errorf("invalid FEN %q: expected at least 4 fields", fen)
	}
	if len(fields) == 4 {
		fields = append(fields, "0", "1")
	}
	// The generator panics on malformed input instead of reporting it.
	defer func() {
		if r := recover(); r != nil {
			pos, err = nil, fmt.Errorf("invalid FEN %q: %v", fen, r)
		}
	}()
	return &Position{board: dragontoothmg.ParseFen(strings.Join(fields, " "))}, nil
}

// Clone returns an independent copy, one per search worker.
func (p *Position) Clone() *Position {
	c := *p
	return &c
}

// Fingerprint returns the position's Zobrist key.
func (p *Position) Fingerprint() uint64 {
	return p.board.Hash()
}

func (p *Position) FEN() string {
	return p.board.ToFen()
}

func (p *Position) WhiteToMove() bool {
	return p.board.Wtomove
}

func (p *Position) InCheck() bool {
	return p.board.OurKingInCheck()
}

// LegalMoves generates all legal moves for the side to move.
func (p *Position) LegalMoves() []Move {
	return p.board.GenerateLegalMoves()
}

// Apply plays m and returns the function that takes it back.
func (p *Position) Apply(m Move) func() {
	return p.board.Apply(m)
}

// Board exposes the underlying bitboards to the evaluator.
func (p *Position) Board() *dragontoothmg.Board {
	return &p.board
}

// PieceCount returns the number of pieces on the board, kings included.
func (p *Position) PieceCount() int {
	return bits.OnesCount64(p.board.White.All | p.board.Black.All)
}

// CreateMove rebuilds a move from packed squares. The result is only returned
// if it is legal here; otherwise NoMove, since a cached move may belong to a
// colliding position.
func (p *Position) CreateMove(from, to hash.Square, promotion hash.Piece) Move {
	for _, m := range p.LegalMoves() {
		if m.From() == uint8(from) && m.To() == uint8(to) &&
			m.Promote() == dragontoothmg.Piece(promotion) {
			return m
		}
	}
	return NoMove
}

// NullMove returns the sentinel CreateMove uses for "no move".
func (p *Position) NullMove() Move {
	return NoMove
}

// Pack converts a generator move to the table's packed form.
func Pack(m Move) hash.Move {
	if m == NoMove {
		return hash.NoMove
	}
	return hash.Move{
		From:      hash.Square(m.From()),
		To:        hash.Square(m.To()),
		Promotion: hash.Piece(m.Promote()),
	}
}

// Unpack rebuilds a generator move from its packed form without checking
// legality. The result is only fit for comparison with generated moves.
func Unpack(m hash.Move) Move {
	if m.IsNone() {
		return NoMove
	}
	var mv Move
	mv.Setfrom(dragontoothmg.Square(m.From))
	mv.Setto(dragontoothmg.Square(m.To))
	mv.Setpromote(dragontoothmg.Piece(m.Promotion))
	return mv
}

// ParseMove parses a move in long algebraic notation ("e2e4", "e7e8q") and
// checks that it is legal in p.
func (p *Position) ParseMove(s string) (Move, error) {
	m, err := dragontoothmg.ParseMove(s)
	if err != nil {
		return NoMove, fmt.Errorf("parse move %q: %w", s, err)
	}
	legal := p.CreateMove(hash.Square(m.From()), hash.Square(m.To()), hash.Piece(m.Promote()))
	if legal == NoMove {
		return NoMove, fmt.Errorf("illegal move %q", s)
	}
	return legal, nil
}

// MoveString formats m in long algebraic notation.
func MoveString(m Move) string {
	if m == NoMove {
		return "0000"
	}
	return m.String()
}

// Ours returns the bitboards of the side to move.
func (p *Position) Ours() *dragontoothmg.Bitboards {
	if p.board.Wtomove {
		return &p.board.White
	}
	return &p.board.Black
}

// Theirs returns the bitboards of the side not to move.
func (p *Position) Theirs() *dragontoothmg.Bitboards {
	if p.board.Wtomove {
		return &p.board.Black
	}
	return &p.board.White
}

// HasNonPawnMaterial reports whether the side to move has a piece other than
// pawns and king.
func (p *Position) HasNonPawnMaterial() bool {
	us := p.Ours()
	return us.Knights|us.Bishops|us.Rooks|us.Queens != 0
}

// PieceOn returns the piece type on sq, or dragontoothmg.Nothing.
func PieceOn(bb *dragontoothmg.Bitboards, sq uint8) dragontoothmg.Piece {
	mask := uint64(1) << sq
	switch {
	case bb.All&mask == 0:
		return dragontoothmg.Nothing
	case bb.Pawns&mask != 0:
		return dragontoothmg.Pawn
	case bb.Knights&mask != 0:
		return dragontoothmg.Knight
	case bb.Bishops&mask != 0:
		return dragontoothmg.Bishop
	case bb.Rooks&mask != 0:
		return dragontoothmg.Rook
	case bb.Queens&mask != 0:
		return dragontoothmg.Queen
	}
	return dragontoothmg.King
}

// IsCapture reports whether m takes a piece. En passant captures are not
// detected.
func (p *Position) IsCapture(m Move) bool {
	return p.Theirs().All&(uint64(1)<<m.To()) != 0
}

// HalfmoveClock returns the number of plies since the last capture or pawn
// move.
func (p *Position) HalfmoveClock() int {
	return int(p.board.Halfmoveclock)
}

// GamePly returns the number of plies played since the start of the game.
func (p *Position) GamePly() int {
	ply := 2 * (int(p.board.Fullmoveno) - 1)
	if !p.board.Wtomove {
		ply++
	}
	return max(ply, 0)
}

// NullPosition returns p with the side to move passed to the opponent and
// the en passant square cleared. The generator has no null move, so the
// position is rebuilt from FEN.
func (p *Position) NullPosition() (*Position, error) {
	fields := strings.Fields(p.FEN())
	if len(fields) < 4 {
		return nil, fmt.Errorf("null move: bad FEN %q", p.FEN())
	}
	if fields[1] == "w" {
		fields[1] = "b"
	} else {
		fields[1] = "w"
	}
	fields[3] = "-"
	return FromFEN(strings.Join(fields, " "))
}

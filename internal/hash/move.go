package hash

import "fmt"

// Square is a board square index, 0 (a1) through 63 (h8).
type Square uint8

// Piece identifies a promotion piece. Only the low 3 bits are stored.
type Piece uint8

// Promotion pieces, numbered the way the board collaborator numbers them.
const (
	NoPiece Piece = 0
	Knight  Piece = 2
	Bishop  Piece = 3
	Rook    Piece = 4
	Queen   Piece = 5
)

// Move is the part of a move the table keeps: enough to rebuild it against a
// position. A move whose origin equals its destination is "no move".
type Move struct {
	From      Square
	To        Square
	Promotion Piece
}

// NoMove is stored when the search has no best move for a node.
var NoMove = Move{}

// IsNone reports whether m carries no move.
func (m Move) IsNone() bool {
	return m.From == m.To
}

func (m Move) String() string {
	if m.IsNone() {
		return "0000"
	}
	s := squareName(m.From) + squareName(m.To)
	switch m.Promotion {
	case Knight:
		s += "n"
	case Bishop:
		s += "b"
	case Rook:
		s += "r"
	case Queen:
		s += "q"
	}
	return s
}

func squareName(sq Square) string {
	return fmt.Sprintf("%c%c", 'a'+sq%8, '1'+sq/8)
}

// MoveFactory rebuilds a collaborator move from packed squares.
type MoveFactory[M any] interface {
	CreateMove(from, to Square, promotion Piece) M
	NullMove() M
}

// BestMove reconstructs the entry's best move using f, or f.NullMove() when
// the entry holds none.
func BestMove[M any](e Entry, f MoveFactory[M]) M {
	m := e.Move()
	if m.IsNone() {
		return f.NullMove()
	}
	return f.CreateMove(m.From, m.To, m.Promotion)
}

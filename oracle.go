/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"regexp"

	"github.com/corentings/chess/v2"
)

var squarePattern = regexp.MustCompile(`^[a-h][1-8]$`)

// Move is a single move in coordinate notation, e.g. e2e4 or e7e8q.
type Move struct {
	From      string
	To        string
	Promotion string
}

func (m Move) String() string {
	return m.From + m.To + m.Promotion
}

// TagPair is one PGN header.
type TagPair struct {
	Name  string
	Value string
}

// Oracle is the rules authority.
type Oracle interface {
	NewBoard() Board
}

// Board is a position owned by exactly one GameState. None of its methods,
// read-only ones included, are safe for concurrent use.
type Board interface {
	// Decode parses a coordinate move token. Malformed tokens return an
	// error wrapping ErrInvalidSyntax.
	Decode(token string) (Move, error)

	// Legal lists every legal move in the position.
	Legal() []Move

	// Apply plays m, attaches comment to it in the game record and
	// returns its SAN, or ErrIllegal.
	Apply(m Move, comment string) (string, error)

	FEN() string
	WhiteToMove() bool
	InCheck() bool
	Over() bool

	// Result is the PGN result token: 1-0, 0-1, 1/2-1/2 or *.
	Result() string

	// Record exports the game as PGN under the given headers.
	Record(tags []TagPair) string
}

type chessOracle struct{}

func (chessOracle) NewBoard() Board {
	return &chessBoard{game: chess.NewGame()}
}

type chessBoard struct {
	game *chess.Game
}

func fromChessMove(m *chess.Move) Move {
	return Move{
		From:      m.S1().String(),
		To:        m.S2().String(),
		Promotion: m.Promo().String(),
	}
}

func (b *chessBoard) Decode(token string) (Move, error) {
	// Without a position the decoder checks syntax only.
	m, err := chess.UCINotation{}.Decode(nil, token)
	if err != nil {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidSyntax, token)
	}

	return fromChessMove(m), nil
}

func (b *chessBoard) Legal() []Move {
	valid := b.game.ValidMoves()

	moves := make([]Move, 0, len(valid))
	for i := range valid {
		moves = append(moves, fromChessMove(&valid[i]))
	}

	return moves
}

// find returns the generated move matching m, which carries the tags
// (check, capture, castling) the library needs to play and encode it.
func (b *chessBoard) find(m Move) *chess.Move {
	valid := b.game.ValidMoves()

	for i := range valid {
		if fromChessMove(&valid[i]) == m {
			return &valid[i]
		}
	}

	return nil
}

func (b *chessBoard) Apply(m Move, comment string) (string, error) {
	mv := b.find(m)
	if mv == nil {
		return "", ErrIllegal
	}

	san := chess.AlgebraicNotation{}.Encode(b.game.Position(), mv)

	if err := b.game.Move(mv, nil); err != nil {
		return "", fmt.Errorf("%w: %v", ErrIllegal, err)
	}

	if comment != "" {
		mv.SetComment(comment)
	}

	return san, nil
}

func (b *chessBoard) FEN() string {
	return b.game.FEN()
}

func (b *chessBoard) WhiteToMove() bool {
	return b.game.Position().Turn() == chess.White
}

func (b *chessBoard) last() *chess.Move {
	moves := b.game.Moves()
	if len(moves) == 0 {
		return nil
	}

	return moves[len(moves)-1]
}

func (b *chessBoard) InCheck() bool {
	last := b.last()

	return last != nil && last.HasTag(chess.Check)
}

func (b *chessBoard) Over() bool {
	return b.game.Outcome() != chess.NoOutcome
}

func (b *chessBoard) Result() string {
	return b.game.Outcome().String()
}

func (b *chessBoard) Record(tags []TagPair) string {
	for _, t := range tags {
		b.game.AddTagPair(t.Name, t.Value)
	}

	return b.game.String()
}

func isSquare(s string) bool {
	return squarePattern.MatchString(s)
}

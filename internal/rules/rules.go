// Package rules adapts github.com/corentings/chess to the small surface the
// session manager needs: legality, application, terminal detection and
// position metadata.
package rules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
)

// Reason discriminates why a move was rejected.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonIllegal           Reason = "illegal_move"
	ReasonPromotionRequired Reason = "promotion_required"
	ReasonKingInCheck       Reason = "king_in_check"
	ReasonNoPiece           Reason = "no_piece"
)

var ErrMoveFormat = errors.New("invalid move format")

// RejectedError is returned by Apply when the engine refuses a move.
type RejectedError struct {
	Move   string
	Reason Reason
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("move %s rejected: %s", e.Move, e.Reason)
}

// Position is an immutable snapshot of a game including its history,
// which repetition detection needs.
type Position struct {
	game *nchess.Game
}

func (p Position) valid() bool { return p.game != nil }

// Turn returns "white" or "black".
func (p Position) Turn() string {
	if !p.valid() || p.game.Position().Turn() == nchess.White {
		return "white"
	}
	return "black"
}

// Board exposes the underlying board for rendering.
func (p Position) Board() *nchess.Board {
	if !p.valid() {
		return nchess.NewGame().Position().Board()
	}
	return p.game.Position().Board()
}

// LastMove returns the squares of the most recent move, if any.
func (p Position) LastMove() (from, to nchess.Square, ok bool) {
	if !p.valid() {
		return 0, 0, false
	}
	moves := p.game.Moves()
	if len(moves) == 0 {
		return 0, 0, false
	}
	mv := moves[len(moves)-1]
	return mv.S1(), mv.S2(), true
}

// Plies is the number of moves applied since the initial position.
func (p Position) Plies() int {
	if !p.valid() {
		return 0
	}
	return len(p.game.Moves())
}

type Move struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	UCI       string `json:"uci"`
	SAN       string `json:"san"`
}

// CaptureInfo describes the unit removed by a move. Square differs from the
// destination for en passant.
type CaptureInfo struct {
	Piece     string `json:"piece"`
	Color     string `json:"color"`
	Square    string `json:"square"`
	EnPassant bool   `json:"en_passant,omitempty"`
}

type TerminalFlags struct {
	Check                bool `json:"check"`
	Checkmate            bool `json:"checkmate"`
	Stalemate            bool `json:"stalemate"`
	InsufficientMaterial bool `json:"insufficient_material"`
	ThreefoldRepetition  bool `json:"threefold_repetition"`
	FivefoldRepetition   bool `json:"fivefold_repetition"`
	FiftyMoves           bool `json:"fifty_moves"`
	SeventyFiveMoves     bool `json:"seventy_five_moves"`
}

// Terminal reports whether any game-ending flag is set. Check alone is not terminal.
func (f TerminalFlags) Terminal() bool {
	return f.Checkmate || f.Stalemate || f.InsufficientMaterial ||
		f.ThreefoldRepetition || f.FivefoldRepetition ||
		f.FiftyMoves || f.SeventyFiveMoves
}

// Outcome is the result of applying a legal move.
type Outcome struct {
	Position Position
	Move     Move
	Capture  *CaptureInfo
	Flags    TerminalFlags
}

type Metadata struct {
	Castling       string `json:"castling"`
	EnPassant      string `json:"en_passant"`
	HalfmoveClock  int    `json:"halfmove_clock"`
	FullmoveNumber int    `json:"fullmove_number"`
}

type Opening struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

// Engine is the capability consumed by the session manager.
type Engine interface {
	InitialPosition() Position
	IsLegal(pos Position, move string) bool
	Apply(pos Position, move string) (Outcome, error)
	Encode(pos Position) string
	Metadata(pos Position) Metadata
	Flags(pos Position) TerminalFlags
	Explain(pos Position, move string) Reason
	Opening(pos Position) *Opening
}

// Chess implements Engine with corentings/chess.
type Chess struct {
	bookOnce sync.Once
	book     *opening.BookECO
}

func New() *Chess { return &Chess{} }

func (c *Chess) InitialPosition() Position {
	return Position{game: nchess.NewGame()}
}

// ParseMoveText normalises coordinate move text and checks its shape:
// [a-h][1-8][a-h][1-8] with an optional q, r, b or n.
func ParseMoveText(text string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	if len(s) != 4 && len(s) != 5 {
		return "", ErrMoveFormat
	}
	for i := 0; i < 4; i++ {
		ch := s[i]
		if i%2 == 0 && (ch < 'a' || ch > 'h') {
			return "", ErrMoveFormat
		}
		if i%2 == 1 && (ch < '1' || ch > '8') {
			return "", ErrMoveFormat
		}
	}
	if len(s) == 5 && !strings.ContainsRune("qrbn", rune(s[4])) {
		return "", ErrMoveFormat
	}
	return s, nil
}

func (c *Chess) IsLegal(pos Position, move string) bool {
	uci, err := ParseMoveText(move)
	if err != nil || !pos.valid() {
		return false
	}
	return pos.game.Clone().PushNotationMove(uci, nchess.UCINotation{}, nil) == nil
}

func (c *Chess) Apply(pos Position, move string) (Outcome, error) {
	uci, err := ParseMoveText(move)
	if err != nil {
		return Outcome{}, err
	}
	if !pos.valid() {
		pos = c.InitialPosition()
	}
	next := pos.game.Clone()
	if err := next.PushNotationMove(uci, nchess.UCINotation{}, nil); err != nil {
		return Outcome{}, &RejectedError{Move: uci, Reason: c.Explain(pos, uci)}
	}

	before := pos.game.Position()
	out := Outcome{
		Position: Position{game: next},
		Move: Move{
			From: uci[0:2],
			To:   uci[2:4],
			UCI:  uci,
		},
	}
	if len(uci) == 5 {
		out.Move.Promotion = uci[4:]
	}
	if mv, derr := (nchess.UCINotation{}).Decode(before, uci); derr == nil {
		out.Move.SAN = nchess.AlgebraicNotation{}.Encode(before, mv)
		out.Capture = captureFor(before.Board(), mv.S1(), mv.S2())
	}
	if out.Move.SAN == "" {
		out.Move.SAN = uci
	}
	out.Flags = c.Flags(out.Position)
	return out, nil
}

// captureFor inspects the pre-move board. A pawn changing file onto an empty
// square is an en passant capture of the pawn beside its origin rank.
func captureFor(board *nchess.Board, from, to nchess.Square) *CaptureInfo {
	mover := board.Piece(from)
	if mover == nchess.NoPiece {
		return nil
	}
	if victim := board.Piece(to); victim != nchess.NoPiece {
		return &CaptureInfo{
			Piece:  pieceLetter(victim.Type()),
			Color:  colorName(victim.Color()),
			Square: squareName(to),
		}
	}
	if mover.Type() == nchess.Pawn && from.File() != to.File() {
		sq := nchess.NewSquare(to.File(), from.Rank())
		victim := board.Piece(sq)
		if victim == nchess.NoPiece {
			return nil
		}
		return &CaptureInfo{
			Piece:     pieceLetter(victim.Type()),
			Color:     colorName(victim.Color()),
			Square:    squareName(sq),
			EnPassant: true,
		}
	}
	return nil
}

func (c *Chess) Encode(pos Position) string {
	if !pos.valid() {
		return c.InitialPosition().game.FEN()
	}
	return pos.game.FEN()
}

// Metadata reads the trailing FEN fields.
func (c *Chess) Metadata(pos Position) Metadata {
	fields := strings.Fields(c.Encode(pos))
	md := Metadata{Castling: "-", EnPassant: "-", FullmoveNumber: 1}
	if len(fields) > 2 {
		md.Castling = fields[2]
	}
	if len(fields) > 3 {
		md.EnPassant = fields[3]
	}
	if len(fields) > 4 {
		if n, err := strconv.Atoi(fields[4]); err == nil {
			md.HalfmoveClock = n
		}
	}
	if len(fields) > 5 {
		if n, err := strconv.Atoi(fields[5]); err == nil {
			md.FullmoveNumber = n
		}
	}
	return md
}

// Flags evaluates terminal conditions for the side to move. Threefold and
// fifty-move draws are reported as soon as they become claimable.
func (c *Chess) Flags(pos Position) TerminalFlags {
	var f TerminalFlags
	if !pos.valid() {
		return f
	}
	f.Check = inCheck(pos.game)
	switch pos.game.Method() {
	case nchess.Checkmate:
		f.Checkmate = true
		f.Check = true
	case nchess.Stalemate:
		f.Stalemate = true
	case nchess.InsufficientMaterial:
		f.InsufficientMaterial = true
	case nchess.FivefoldRepetition:
		f.FivefoldRepetition = true
		f.ThreefoldRepetition = true
	case nchess.SeventyFiveMoveRule:
		f.SeventyFiveMoves = true
		f.FiftyMoves = true
	}
	if pos.game.Outcome() == nchess.NoOutcome || pos.game.Outcome() == nchess.Draw {
		for _, m := range pos.game.EligibleDraws() {
			switch m {
			case nchess.ThreefoldRepetition:
				f.ThreefoldRepetition = true
			case nchess.FiftyMoveRule:
				f.FiftyMoves = true
			}
		}
	}
	return f
}

func inCheck(game *nchess.Game) bool {
	moves := game.Moves()
	if len(moves) == 0 {
		return false
	}
	return moves[len(moves)-1].HasTag(nchess.Check)
}

// Explain gives the most specific reason a move is not legal, or ReasonNone
// when it is.
func (c *Chess) Explain(pos Position, move string) Reason {
	uci, err := ParseMoveText(move)
	if err != nil {
		return ReasonIllegal
	}
	if !pos.valid() {
		pos = c.InitialPosition()
	}
	if c.IsLegal(pos, uci) {
		return ReasonNone
	}
	cur := pos.game.Position()
	from, ok := parseSquare(uci[0:2])
	if !ok {
		return ReasonIllegal
	}
	piece := cur.Board().Piece(from)
	if piece == nchess.NoPiece || piece.Color() != cur.Turn() {
		return ReasonNoPiece
	}
	if len(uci) == 4 && piece.Type() == nchess.Pawn && c.IsLegal(pos, uci+"q") {
		return ReasonPromotionRequired
	}
	if inCheck(pos.game) {
		return ReasonKingInCheck
	}
	to, _ := parseSquare(uci[2:4])
	if len(uci) == 5 && (piece.Type() != nchess.Pawn || (to.Rank() != nchess.Rank1 && to.Rank() != nchess.Rank8)) {
		return ReasonIllegal
	}
	// A move the piece could make on an empty-king board but the engine
	// refuses leaves the mover's own king attacked.
	if reachable(cur.Board(), piece, from, to, c.Metadata(pos).EnPassant) {
		return ReasonKingInCheck
	}
	return ReasonIllegal
}

func (c *Chess) Opening(pos Position) *Opening {
	if !pos.valid() || len(pos.game.Moves()) == 0 {
		return nil
	}
	c.bookOnce.Do(func() { c.book = opening.NewBookECO() })
	if c.book == nil {
		return nil
	}
	eco := c.book.Find(pos.game.Moves())
	if eco == nil {
		return nil
	}
	return &Opening{Code: eco.Code(), Title: eco.Title()}
}

func parseSquare(s string) (nchess.Square, bool) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return 0, false
	}
	file := nchess.FileA + nchess.File(s[0]-'a')
	rank := nchess.Rank1 + nchess.Rank(s[1]-'1')
	return nchess.NewSquare(file, rank), true
}

func squareName(sq nchess.Square) string {
	return string([]byte{'a' + byte(sq.File()-nchess.FileA), '1' + byte(sq.Rank()-nchess.Rank1)})
}

func colorName(c nchess.Color) string {
	if c == nchess.White {
		return "white"
	}
	return "black"
}

func pieceLetter(pt nchess.PieceType) string {
	switch pt {
	case nchess.King:
		return "k"
	case nchess.Queen:
		return "q"
	case nchess.Rook:
		return "r"
	case nchess.Bishop:
		return "b"
	case nchess.Knight:
		return "n"
	case nchess.Pawn:
		return "p"
	}
	return ""
}

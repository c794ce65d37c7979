package pvpchess

import (
	"github.com/park285/cheese-arena/internal/rules"
	"github.com/park285/cheese-arena/pkg/chessdto"
)

// snapshotLocked builds the board_state payload. viewer is the requesting
// seat or -1 for the query API.
func (m *Manager) snapshotLocked(s *GameSession, viewer int) *chessdto.SessionState {
	md := m.engine.Metadata(s.position)
	state := &chessdto.SessionState{
		GameID:         s.id,
		Status:         string(s.status),
		EndReason:      string(s.reason),
		White:          s.names[0],
		Black:          s.names[1],
		PlayerNumber:   viewer,
		BoardFEN:       m.engine.Encode(s.position),
		MovesHistory:   copyStrings(s.moves),
		MovesSAN:       copyStrings(s.san),
		CurrentPlayer:  s.turn,
		Turn:           string(seatColor(s.turn)),
		Flags:          flagsDTO(m.engine.Flags(s.position)),
		Captured:       capturedDTO(s),
		Castling:       md.Castling,
		EnPassant:      md.EnPassant,
		HalfmoveClock:  md.HalfmoveClock,
		FullmoveNumber: md.FullmoveNumber,
		CreatedAt:      s.createdAt,
		LastActivityAt: s.lastActivity,
	}
	if op := m.engine.Opening(s.position); op != nil {
		state.Opening = &chessdto.Opening{Code: op.Code, Title: op.Title}
	}
	return state
}

func flagsDTO(f rules.TerminalFlags) chessdto.TerminalFlags {
	return chessdto.TerminalFlags{
		Check:                f.Check,
		Checkmate:            f.Checkmate,
		Stalemate:            f.Stalemate,
		InsufficientMaterial: f.InsufficientMaterial,
		ThreefoldRepetition:  f.ThreefoldRepetition,
		FivefoldRepetition:   f.FivefoldRepetition,
		FiftyMoves:           f.FiftyMoves,
		SeventyFiveMoves:     f.SeventyFiveMoves,
	}
}

func captureDTO(c *rules.CaptureInfo) *chessdto.CapturedUnit {
	if c == nil {
		return nil
	}
	return &chessdto.CapturedUnit{Piece: c.Piece, Color: c.Color, Square: c.Square, EnPassant: c.EnPassant}
}

func capturedDTO(s *GameSession) chessdto.CapturedPieces {
	return chessdto.CapturedPieces{
		ByWhite: append([]chessdto.CapturedUnit{}, s.captured[0]...),
		ByBlack: append([]chessdto.CapturedUnit{}, s.captured[1]...),
	}
}

// terminalReason maps engine flags to an end reason, most specific first.
func terminalReason(f rules.TerminalFlags) Reason {
	switch {
	case f.Checkmate:
		return ReasonCheckmate
	case f.Stalemate:
		return ReasonStalemate
	case f.InsufficientMaterial:
		return ReasonInsufficientMaterial
	case f.FivefoldRepetition, f.ThreefoldRepetition:
		return ReasonRepetition
	case f.SeventyFiveMoves, f.FiftyMoves:
		return ReasonMoveCountDraw
	}
	return ReasonNone
}

func ruleError(r rules.Reason) *Error {
	switch r {
	case rules.ReasonPromotionRequired:
		return ErrPromotionRequired
	case rules.ReasonKingInCheck:
		return ErrKingInCheck
	case rules.ReasonNoPiece:
		return ErrNoPiece
	}
	return ErrIllegalMove
}

// finishedLocked builds the sink record. winner is a seat index or -1 for draws.
func finishedLocked(s *GameSession, winner int) *FinishedGame {
	fg := &FinishedGame{
		ID:        s.id,
		WhiteName: s.names[0],
		BlackName: s.names[1],
		Reason:    s.reason,
		Result:    "draw",
		MovesUCI:  copyStrings(s.moves),
		MovesSAN:  copyStrings(s.san),
		StartedAt: s.createdAt,
		EndedAt:   s.lastActivity,
	}
	if winner == 0 || winner == 1 {
		fg.Winner = s.names[winner]
		fg.Loser = s.names[1-winner]
		fg.Result = string(seatColor(winner))
	}
	return fg
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

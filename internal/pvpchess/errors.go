package pvpchess

import "fmt"

// Kind groups error codes.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindPrecondition     Kind = "precondition"
	KindRuleViolation    Kind = "rule_violation"
	KindTerminalConflict Kind = "terminal_conflict"
)

// Error is reported to the acting connection only. Two errors match under
// errors.Is when their codes are equal.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newErr(kind Kind, code, msg string) *Error { return &Error{Kind: kind, Code: code, Message: msg} }

var (
	ErrInvalidMoveFormat = newErr(KindValidation, "invalid_move_format", "invalid move format")
	ErrInvalidName       = newErr(KindValidation, "invalid_name", "invalid player name")

	ErrNotInGame          = newErr(KindPrecondition, "not_in_game", "not in a game")
	ErrNotFound           = newErr(KindPrecondition, "not_found", "game not found")
	ErrAlreadyFull        = newErr(KindPrecondition, "already_full", "game is full")
	ErrSelfJoin           = newErr(KindPrecondition, "self_join", "cannot join own game")
	ErrAlreadyInGame      = newErr(KindPrecondition, "already_in_game", "already in this game")
	ErrInOtherGame        = newErr(KindPrecondition, "in_other_game", "leave current game first")
	ErrWaitingForOpponent = newErr(KindPrecondition, "waiting_for_opponent", "waiting for opponent")
	ErrNotYourTurn        = newErr(KindPrecondition, "not_your_turn", "not your turn")
	ErrNotAPlayer         = newErr(KindPrecondition, "not_a_player", "not a player in this game")

	ErrGameOver = newErr(KindTerminalConflict, "game_over", "game is already over")

	ErrIllegalMove       = newErr(KindRuleViolation, "illegal_move", "illegal move")
	ErrPromotionRequired = newErr(KindRuleViolation, "promotion_required", "promotion piece required")
	ErrKingInCheck       = newErr(KindRuleViolation, "king_in_check", "king is in check")
	ErrNoPiece           = newErr(KindRuleViolation, "no_piece", "no piece of yours on that square")
)

package chessdto

import "encoding/json"

// Inbound actions.
const (
	ActionCreateGame    = "create_game"
	ActionJoinGame      = "join_game"
	ActionMakeMove      = "make_move"
	ActionRequestDraw   = "request_draw"
	ActionAcceptDraw    = "accept_draw"
	ActionResign        = "resign"
	ActionGetBoardState = "get_board_state"
	ActionLeaveGame     = "leave_game"
	ActionResetGame     = "reset_game"
)

// Inbound is one client frame: {"action": "...", "data": {...}}.
type Inbound struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type CreateGameRequest struct {
	Name string `json:"name"`
}

type JoinGameRequest struct {
	GameID string `json:"game_id"`
	Name   string `json:"name"`
}

type MakeMoveRequest struct {
	Move string `json:"move"`
}

type DrawRequest struct {
	Reason string `json:"reason"`
}

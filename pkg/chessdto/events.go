package chessdto

import "time"

// Outbound events.
const (
	EventConnected      = "connected"
	EventGameCreated    = "game_created"
	EventGameJoined     = "game_joined"
	EventOpponentJoined = "opponent_joined"
	EventMoveMade       = "move_made"
	EventDrawOffered    = "draw_offered"
	EventError          = "error"
	EventOpponentLeft   = "opponent_left"
	EventGameEnded      = "game_ended"
	EventBoardState     = "board_state"
	EventGameReset      = "game_reset"
	EventLeftGame       = "left_game"
)

// Event is one server frame: {"event": "...", "data": {...}}.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type Connected struct {
	Message      string `json:"message"`
	ConnectionID string `json:"connection_id"`
}

type Notice struct {
	GameID  string `json:"game_id,omitempty"`
	Message string `json:"message"`
}

type GameCreated struct {
	GameID       string    `json:"game_id"`
	PlayerNumber int       `json:"player_number"`
	Color        string    `json:"color"`
	Name         string    `json:"name"`
	BoardFEN     string    `json:"board_fen"`
	CreatedAt    time.Time `json:"created_at"`
}

type GameJoined struct {
	GameID       string         `json:"game_id"`
	PlayerNumber int            `json:"player_number"`
	Color        string         `json:"color"`
	Name         string         `json:"name"`
	Opponent     string         `json:"opponent"`
	BoardFEN     string         `json:"board_fen"`
	MovesHistory []string       `json:"moves_history"`
	Captured     CapturedPieces `json:"captured_pieces"`
}

type OpponentJoined struct {
	GameID       string         `json:"game_id"`
	Message      string         `json:"message"`
	Name         string         `json:"name"`
	BoardFEN     string         `json:"board_fen"`
	MovesHistory []string       `json:"moves_history"`
	Captured     CapturedPieces `json:"captured_pieces"`
}

type DrawOffered struct {
	GameID  string `json:"game_id"`
	From    string `json:"from"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}

// Game results carried by game_ended.
const (
	ResultCheckmate            = "checkmate"
	ResultStalemate            = "stalemate"
	ResultInsufficientMaterial = "insufficient_material"
	ResultRepetition           = "repetition"
	ResultMoveCountDraw        = "move_count_draw"
	ResultResignation          = "resignation"
	ResultAgreedDraw           = "agreed_draw"
	ResultAbandonment          = "abandonment"
	ResultExpired              = "expired"
)

type GameEnded struct {
	GameID  string `json:"game_id"`
	Result  string `json:"result"`
	Winner  string `json:"winner,omitempty"`
	Loser   string `json:"loser,omitempty"`
	Message string `json:"message"`
}

type GameReset struct {
	GameID        string `json:"game_id"`
	Message       string `json:"message"`
	BoardFEN      string `json:"board_fen"`
	Status        string `json:"status"`
	CurrentPlayer int    `json:"current_player"`
}

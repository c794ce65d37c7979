package chessdto

import "time"

type CapturedUnit struct {
	Piece     string `json:"piece"`
	Color     string `json:"color"`
	Square    string `json:"square"`
	EnPassant bool   `json:"en_passant,omitempty"`
}

// CapturedPieces lists units taken by each side: ByWhite holds black units.
type CapturedPieces struct {
	ByWhite []CapturedUnit `json:"by_white"`
	ByBlack []CapturedUnit `json:"by_black"`
}

type Opening struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

// SessionState is the full snapshot returned by get_board_state.
type SessionState struct {
	GameID         string         `json:"game_id"`
	Status         string         `json:"status"`
	EndReason      string         `json:"end_reason,omitempty"`
	White          string         `json:"white"`
	Black          string         `json:"black,omitempty"`
	PlayerNumber   int            `json:"player_number"`
	BoardFEN       string         `json:"board_fen"`
	MovesHistory   []string       `json:"moves_history"`
	MovesSAN       []string       `json:"moves_san"`
	CurrentPlayer  int            `json:"current_player"`
	Turn           string         `json:"turn"`
	Flags          TerminalFlags  `json:"flags"`
	Captured       CapturedPieces `json:"captured_pieces"`
	Castling       string         `json:"castling"`
	EnPassant      string         `json:"en_passant"`
	HalfmoveClock  int            `json:"halfmove_clock"`
	FullmoveNumber int            `json:"fullmove_number"`
	Opening        *Opening       `json:"opening,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	LastActivityAt time.Time      `json:"last_activity_at"`
}

// Stats is the operational view of the live registries.
type Stats struct {
	LiveSessions     int `json:"live_sessions"`
	Awaiting         int `json:"awaiting_opponent"`
	Active           int `json:"active"`
	BoundConnections int `json:"bound_connections"`
}

// LobbyEntry is a session waiting for its second player.
type LobbyEntry struct {
	GameID    string    `json:"game_id"`
	Host      string    `json:"host"`
	CreatedAt time.Time `json:"created_at"`
}

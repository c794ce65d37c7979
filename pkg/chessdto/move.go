package chessdto

// TerminalFlags mirrors the rules engine's terminal evaluation.
type TerminalFlags struct {
	Check                bool `json:"is_check"`
	Checkmate            bool `json:"is_checkmate"`
	Stalemate            bool `json:"is_stalemate"`
	InsufficientMaterial bool `json:"is_insufficient_material"`
	ThreefoldRepetition  bool `json:"is_repetition"`
	FivefoldRepetition   bool `json:"is_fivefold_repetition"`
	FiftyMoves           bool `json:"is_fifty_moves"`
	SeventyFiveMoves     bool `json:"is_seventyfive_moves"`
}

// MoveMade is broadcast to both seats after an accepted move.
type MoveMade struct {
	GameID        string         `json:"game_id"`
	Move          string         `json:"move"`
	From          string         `json:"from"`
	To            string         `json:"to"`
	Promotion     string         `json:"promotion,omitempty"`
	SAN           string         `json:"san"`
	BoardFEN      string         `json:"board_fen"`
	Flags         TerminalFlags  `json:"flags"`
	Capture       *CapturedUnit  `json:"capture,omitempty"`
	Captured      CapturedPieces `json:"captured_pieces"`
	MovesHistory  []string       `json:"moves_history"`
	CurrentPlayer int            `json:"current_player"`
	Turn          string         `json:"turn"`
	EndReason     string         `json:"end_reason,omitempty"`
	Winner        string         `json:"winner,omitempty"`
}

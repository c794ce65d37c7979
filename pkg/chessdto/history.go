package chessdto

import "time"

// ArchivedGame is a finished game as stored in the archive.
type ArchivedGame struct {
	GameID       string    `json:"game_id"`
	WhiteName    string    `json:"white_name"`
	BlackName    string    `json:"black_name"`
	Result       string    `json:"result"`
	ResultMethod string    `json:"result_method"`
	MovesUCI     []string  `json:"moves_uci"`
	MovesSAN     []string  `json:"moves_san"`
	PGN          string    `json:"pgn"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
	DurationMS   int64     `json:"duration_ms"`
}

package pvpchess

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/park285/cheese-arena/pkg/chessdto"
)

const schemaArenaGames = `
CREATE TABLE IF NOT EXISTS arena_games (
	game_id       TEXT PRIMARY KEY,
	white_name    TEXT NOT NULL,
	black_name    TEXT NOT NULL,
	result        TEXT NOT NULL,
	result_method TEXT NOT NULL,
	moves_uci     JSONB NOT NULL DEFAULT '[]',
	moves_san     JSONB NOT NULL DEFAULT '[]',
	pgn           TEXT NOT NULL,
	started_at    TIMESTAMPTZ NOT NULL,
	ended_at      TIMESTAMPTZ NOT NULL,
	duration_ms   BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS arena_games_white_idx ON arena_games (white_name, ended_at DESC);
CREATE INDEX IF NOT EXISTS arena_games_black_idx ON arena_games (black_name, ended_at DESC);`

// archiveDB is satisfied by *sqlx.DB and *sqlx.Tx.
type archiveDB interface {
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Repository archives finished games in postgres. It is a ResultSink.
type Repository struct {
	db     archiveDB
	closer func() error
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Repository{db: db, closer: db.Close}, nil
}

// NewRepositoryWithDB wraps an existing handle, typically a transaction.
func NewRepositoryWithDB(db archiveDB) *Repository { return &Repository{db: db} }

func (r *Repository) Close() error {
	if r == nil || r.closer == nil {
		return nil
	}
	return r.closer()
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, schemaArenaGames)
	return err
}

// RecordFinished upserts a finished game.
func (r *Repository) RecordFinished(ctx context.Context, g *FinishedGame) error {
	if r == nil || r.db == nil || g == nil {
		return nil
	}
	pgnResult := mapResultToPGN(g.Result)
	pgn := buildPGN(g, pgnResult)
	movesUCIRaw, _ := json.Marshal(nonNil(g.MovesUCI))
	movesSANRaw, _ := json.Marshal(nonNil(g.MovesSAN))
	duration := g.EndedAt.Sub(g.StartedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO arena_games (
        game_id, white_name, black_name,
        result, result_method, moves_uci, moves_san, pgn,
        started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
      ) ON CONFLICT (game_id) DO UPDATE SET
        white_name=EXCLUDED.white_name,
        black_name=EXCLUDED.black_name,
        result=EXCLUDED.result,
        result_method=EXCLUDED.result_method,
        moves_uci=EXCLUDED.moves_uci,
        moves_san=EXCLUDED.moves_san,
        pgn=EXCLUDED.pgn,
        started_at=EXCLUDED.started_at,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err := r.db.ExecContext(ctx, q,
		g.ID,
		g.WhiteName, g.BlackName,
		g.Result, string(g.Reason), string(movesUCIRaw), string(movesSANRaw), pgn,
		g.StartedAt, g.EndedAt, duration,
	)
	return err
}

type archivedRow struct {
	GameID       string    `db:"game_id"`
	WhiteName    string    `db:"white_name"`
	BlackName    string    `db:"black_name"`
	Result       string    `db:"result"`
	ResultMethod string    `db:"result_method"`
	MovesUCI     []byte    `db:"moves_uci"`
	MovesSAN     []byte    `db:"moves_san"`
	PGN          string    `db:"pgn"`
	StartedAt    time.Time `db:"started_at"`
	EndedAt      time.Time `db:"ended_at"`
	DurationMS   int64     `db:"duration_ms"`
}

// RecentGames lists archived games, newest first, optionally for one player.
func (r *Repository) RecentGames(ctx context.Context, player string, limit int) ([]chessdto.ArchivedGame, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var rows []archivedRow
	var err error
	player = strings.TrimSpace(player)
	if player == "" {
		err = r.db.SelectContext(ctx, &rows, `
			SELECT * FROM arena_games ORDER BY ended_at DESC LIMIT $1`, limit)
	} else {
		err = r.db.SelectContext(ctx, &rows, `
			SELECT * FROM arena_games
			WHERE white_name = $1 OR black_name = $1
			ORDER BY ended_at DESC LIMIT $2`, player, limit)
	}
	if err != nil {
		return nil, err
	}
	out := make([]chessdto.ArchivedGame, 0, len(rows))
	for _, row := range rows {
		g := chessdto.ArchivedGame{
			GameID:       row.GameID,
			WhiteName:    row.WhiteName,
			BlackName:    row.BlackName,
			Result:       row.Result,
			ResultMethod: row.ResultMethod,
			PGN:          row.PGN,
			StartedAt:    row.StartedAt,
			EndedAt:      row.EndedAt,
			DurationMS:   row.DurationMS,
		}
		_ = json.Unmarshal(row.MovesUCI, &g.MovesUCI)
		_ = json.Unmarshal(row.MovesSAN, &g.MovesSAN)
		out = append(out, g)
	}
	return out, nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func mapResultToPGN(result string) string {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case "white":
		return "1-0"
	case "black":
		return "0-1"
	case "draw":
		return "1/2-1/2"
	default:
		return "*"
	}
}

func buildPGN(g *FinishedGame, pgnResult string) string {
	if g == nil {
		return ""
	}
	var b strings.Builder
	date := g.EndedAt
	if date.IsZero() {
		date = time.Now()
	}
	b.WriteString("[Event \"Arena\"]\n")
	b.WriteString("[Site \"cheese-arena\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(g.WhiteName)))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(g.BlackName)))
	if g.Reason != ReasonNone {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(string(g.Reason))))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", pgnResult))

	for i := 0; i < len(g.MovesSAN); i += 2 {
		turn := (i / 2) + 1
		b.WriteString(fmt.Sprintf("%d. %s", turn, strings.TrimSpace(g.MovesSAN[i])))
		if i+1 < len(g.MovesSAN) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(g.MovesSAN[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(pgnResult)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}

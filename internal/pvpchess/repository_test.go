package pvpchess

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"
)

type fakeExec struct {
	query string
	args  []interface{}
}

func (f *fakeExec) SelectContext(context.Context, interface{}, string, ...interface{}) error {
	return nil
}

func (f *fakeExec) ExecContext(_ context.Context, query string, args ...interface{}) (sql.Result, error) {
	f.query = query
	f.args = args
	return nil, nil
}

func sampleFinished() *FinishedGame {
	start := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	return &FinishedGame{
		ID:        "g-1",
		WhiteName: `Al "the" ice`,
		BlackName: "Bob",
		Reason:    ReasonCheckmate,
		Winner:    "Bob",
		Loser:     `Al "the" ice`,
		Result:    "black",
		MovesUCI:  []string{"f2f3", "e7e5", "g2g4", "d8h4"},
		MovesSAN:  []string{"f3", "e5", "g4", "Qh4#"},
		StartedAt: start,
		EndedAt:   start.Add(90 * time.Second),
	}
}

func TestBuildPGN(t *testing.T) {
	pgn := buildPGN(sampleFinished(), mapResultToPGN("black"))
	for _, want := range []string{
		`[Date "2026.03.04"]`,
		`[White "Al 'the' ice"]`,
		`[Termination "checkmate"]`,
		`[Result "0-1"]`,
		"1. f3 e5 2. g4 Qh4# 0-1",
	} {
		if !strings.Contains(pgn, want) {
			t.Fatalf("pgn missing %q:\n%s", want, pgn)
		}
	}
}

func TestMapResultToPGN(t *testing.T) {
	cases := map[string]string{"white": "1-0", "black": "0-1", "draw": "1/2-1/2", "": "*"}
	for in, want := range cases {
		if got := mapResultToPGN(in); got != want {
			t.Fatalf("mapResultToPGN(%q) = %q", in, got)
		}
	}
}

func TestRecordFinishedArgs(t *testing.T) {
	db := &fakeExec{}
	repo := NewRepositoryWithDB(db)
	if err := repo.RecordFinished(context.Background(), sampleFinished()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(db.query, "INSERT INTO arena_games") || len(db.args) != 11 {
		t.Fatalf("unexpected exec: %q %d", db.query, len(db.args))
	}
	if db.args[3] != "black" || db.args[4] != "checkmate" || db.args[10] != int64(90000) {
		t.Fatalf("unexpected args: %v", db.args)
	}
	if db.args[5] != `["f2f3","e7e5","g2g4","d8h4"]` {
		t.Fatalf("moves_uci = %v", db.args[5])
	}
}

func TestNilRepositoryIsNoop(t *testing.T) {
	var repo *Repository
	if err := repo.RecordFinished(context.Background(), sampleFinished()); err != nil {
		t.Fatal(err)
	}
	if err := repo.Close(); err != nil {
		t.Fatal(err)
	}
}

package rules

import (
	"errors"
	"testing"

	nchess "github.com/corentings/chess/v2"
)

func play(t *testing.T, c *Chess, moves ...string) (Position, Outcome) {
	t.Helper()
	pos := c.InitialPosition()
	var out Outcome
	for _, mv := range moves {
		var err error
		out, err = c.Apply(pos, mv)
		if err != nil {
			t.Fatalf("Apply(%s): %v", mv, err)
		}
		pos = out.Position
	}
	return pos, out
}

func TestParseMoveText(t *testing.T) {
	cases := map[string]bool{
		"e2e4":   true,
		"E7E8Q":  true,
		" g1f3 ": true,
		"e2e9":   false,
		"i2e4":   false,
		"e7e8k":  false,
		"e2":     false,
		"e2e4qq": false,
		"":       false,
	}
	for in, ok := range cases {
		_, err := ParseMoveText(in)
		if ok && err != nil {
			t.Fatalf("ParseMoveText(%q) unexpected error: %v", in, err)
		}
		if !ok && !errors.Is(err, ErrMoveFormat) {
			t.Fatalf("ParseMoveText(%q) expected ErrMoveFormat, got %v", in, err)
		}
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	c := New()
	start := c.InitialPosition()
	fen := c.Encode(start)
	out, err := c.Apply(start, "e2e4")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if c.Encode(start) != fen {
		t.Fatalf("input position mutated")
	}
	if out.Position.Turn() != "black" || out.Move.SAN != "e4" {
		t.Fatalf("unexpected outcome: turn=%s san=%s", out.Position.Turn(), out.Move.SAN)
	}
	if out.Capture != nil || out.Flags.Terminal() {
		t.Fatalf("unexpected capture or terminal flags: %+v %+v", out.Capture, out.Flags)
	}
}

func TestFoolsMate(t *testing.T) {
	c := New()
	_, out := play(t, c, "f2f3", "e7e5", "g2g4", "d8h4")
	if !out.Flags.Checkmate || !out.Flags.Check {
		t.Fatalf("expected checkmate, got %+v", out.Flags)
	}
	if !out.Flags.Terminal() {
		t.Fatalf("checkmate must be terminal")
	}
}

func TestEnPassantCapture(t *testing.T) {
	c := New()
	_, out := play(t, c, "e2e4", "a7a6", "e4e5", "d7d5", "e5d6")
	if out.Capture == nil {
		t.Fatalf("expected capture info")
	}
	if !out.Capture.EnPassant || out.Capture.Square != "d5" || out.Capture.Piece != "p" || out.Capture.Color != "black" {
		t.Fatalf("unexpected capture: %+v", out.Capture)
	}
}

func TestRegularCapture(t *testing.T) {
	c := New()
	_, out := play(t, c, "e2e4", "d7d5", "e4d5")
	if out.Capture == nil || out.Capture.EnPassant || out.Capture.Square != "d5" {
		t.Fatalf("unexpected capture: %+v", out.Capture)
	}
}

func TestPromotionRequired(t *testing.T) {
	c := New()
	pos, _ := play(t, c, "a2a4", "b7b5", "a4b5", "a7a6", "b5a6", "c8b7", "a6a7", "g8f6")
	_, err := c.Apply(pos, "a7b8")
	var rej *RejectedError
	if !errors.As(err, &rej) || rej.Reason != ReasonPromotionRequired {
		t.Fatalf("expected promotion_required, got %v", err)
	}
	out, err := c.Apply(pos, "a7b8q")
	if err != nil {
		t.Fatalf("promotion with piece letter: %v", err)
	}
	if out.Move.Promotion != "q" || out.Capture == nil || out.Capture.Piece != "n" {
		t.Fatalf("unexpected promotion outcome: %+v %+v", out.Move, out.Capture)
	}
}

func TestExplainReasons(t *testing.T) {
	c := New()
	start := c.InitialPosition()
	if r := c.Explain(start, "e3e4"); r != ReasonNoPiece {
		t.Fatalf("empty square: %q", r)
	}
	if r := c.Explain(start, "e7e5"); r != ReasonNoPiece {
		t.Fatalf("opponent piece: %q", r)
	}
	if r := c.Explain(start, "e2e5"); r != ReasonIllegal {
		t.Fatalf("structurally illegal: %q", r)
	}
	if r := c.Explain(start, "e2e4"); r != ReasonNone {
		t.Fatalf("legal move: %q", r)
	}
	checked, out := play(t, c, "e2e4", "f7f6", "d1h5")
	if !out.Flags.Check {
		t.Fatalf("expected check flag")
	}
	if r := c.Explain(checked, "a7a6"); r != ReasonKingInCheck {
		t.Fatalf("in check: %q", r)
	}
}

func TestThreefoldRepetition(t *testing.T) {
	c := New()
	_, out := play(t, c,
		"g1f3", "g8f6", "f3g1", "f6g8",
		"g1f3", "g8f6", "f3g1", "f6g8",
	)
	if !out.Flags.ThreefoldRepetition || !out.Flags.Terminal() {
		t.Fatalf("expected threefold repetition, got %+v", out.Flags)
	}
}

func TestMetadata(t *testing.T) {
	c := New()
	pos, _ := play(t, c, "e2e4", "e7e5", "e1e2")
	md := c.Metadata(pos)
	if md.Castling != "kq" {
		t.Fatalf("castling = %q", md.Castling)
	}
	if md.HalfmoveClock != 1 || md.FullmoveNumber != 2 {
		t.Fatalf("clocks = %d %d", md.HalfmoveClock, md.FullmoveNumber)
	}
	start := c.Metadata(c.InitialPosition())
	if start.Castling != "KQkq" || start.FullmoveNumber != 1 || start.EnPassant != "-" {
		t.Fatalf("start metadata = %+v", start)
	}
}

func TestOpeningLabel(t *testing.T) {
	c := New()
	if c.Opening(c.InitialPosition()) != nil {
		t.Fatalf("no opening before first move")
	}
	pos, _ := play(t, c, "e2e4", "e7e5", "g1f3", "b8c6", "f1b5")
	op := c.Opening(pos)
	if op == nil || op.Code == "" {
		t.Fatalf("expected an ECO label for the Ruy Lopez")
	}
}

func fromFEN(t *testing.T, fen string) Position {
	t.Helper()
	opt, err := nchess.FEN(fen)
	if err != nil {
		t.Fatalf("FEN(%q): %v", fen, err)
	}
	return Position{game: nchess.NewGame(opt)}
}

func TestExplainExposedKing(t *testing.T) {
	c := New()
	pinned, _ := play(t, c, "d2d3", "e7e6", "b1c3", "f8b4", "g2g3", "a7a6")
	if r := c.Explain(pinned, "c3e4"); r != ReasonKingInCheck {
		t.Fatalf("pinned knight: %q", r)
	}
	if r := c.Explain(pinned, "c3e5"); r != ReasonIllegal {
		t.Fatalf("knight off pattern: %q", r)
	}
	if r := c.Explain(pinned, "a2a3q"); r != ReasonIllegal {
		t.Fatalf("promotion letter off the last rank: %q", r)
	}

	// Kf1 would walk into the h3 bishop's diagonal.
	walkIn, _ := play(t, c, "e2e4", "b7b6", "f1e2", "c8a6", "e2d3", "a6d3")
	if r := c.Explain(walkIn, "e1f1"); r != ReasonKingInCheck {
		t.Fatalf("king into attack: %q", r)
	}
}

func TestStalemateFlag(t *testing.T) {
	c := New()
	_, out := play(t, c,
		"e2e3", "a7a5", "d1h5", "a8a6", "h5a5", "h7h5",
		"h2h4", "a6h6", "a5c7", "f7f6", "c7d7", "e8f7",
		"d7b7", "d8d3", "b7b8", "d3h7", "b8c8", "f7g6",
		"c8e6",
	)
	if !out.Flags.Stalemate || out.Flags.Checkmate || !out.Flags.Terminal() {
		t.Fatalf("expected stalemate, got %+v", out.Flags)
	}
}

func TestInsufficientMaterialFlag(t *testing.T) {
	c := New()
	pos := fromFEN(t, "8/8/8/4k3/8/8/3n4/4K2B w - - 0 1")
	if c.Flags(pos).InsufficientMaterial {
		t.Fatalf("knight and bishop on board should not be insufficient yet")
	}
	out, err := c.Apply(pos, "e1d2")
	if err != nil {
		t.Fatalf("Kxd2: %v", err)
	}
	if !out.Flags.InsufficientMaterial || !out.Flags.Terminal() {
		t.Fatalf("expected insufficient material, got %+v", out.Flags)
	}
	if out.Capture == nil || out.Capture.Piece != "n" {
		t.Fatalf("capture = %+v", out.Capture)
	}
}

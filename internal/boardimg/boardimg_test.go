package boardimg

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/cheese-arena/internal/rules"
)

func TestRenderInitialPosition(t *testing.T) {
	r := New()
	pos := rules.New().InitialPosition()
	data, err := r.RenderPNG(context.Background(), pos, Options{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != DefaultSize || b.Dy() != DefaultSize {
		t.Fatalf("bounds = %v", b)
	}
}

func TestRenderScalesAndFlips(t *testing.T) {
	engine := rules.New()
	out, err := engine.Apply(engine.InitialPosition(), "e2e4")
	if err != nil {
		t.Fatal(err)
	}
	r := New()
	normal, err := r.RenderPNG(context.Background(), out.Position, Options{Size: 256})
	if err != nil {
		t.Fatal(err)
	}
	flipped, err := r.RenderPNG(context.Background(), out.Position, Options{Size: 256, Flip: true})
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(normal, flipped) {
		t.Fatalf("flipped render identical to normal")
	}
	img, err := png.Decode(bytes.NewReader(normal))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 256 {
		t.Fatalf("width = %d", img.Bounds().Dx())
	}
}

func TestRenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().RenderPNG(ctx, rules.New().InitialPosition(), Options{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestClampSize(t *testing.T) {
	cases := map[int]int{0: DefaultSize, -5: DefaultSize, 10: MinSize, 4096: MaxSize, 300: 300}
	for in, want := range cases {
		if got := ClampSize(in); got != want {
			t.Fatalf("ClampSize(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestGeometryFlip(t *testing.T) {
	a1 := nchess.NewSquare(nchess.FileA, nchess.Rank1)
	col, row := geometry{}.cell(a1)
	if col != 0 || row != 7 {
		t.Fatalf("a1 normal = (%d,%d)", col, row)
	}
	col, row = geometry{flip: true}.cell(a1)
	if col != 7 || row != 0 {
		t.Fatalf("a1 flipped = (%d,%d)", col, row)
	}
}

func TestEveryPieceAssetParses(t *testing.T) {
	c := newPieceCache()
	for _, p := range []nchess.Piece{
		nchess.WhiteKing, nchess.WhiteQueen, nchess.WhiteRook, nchess.WhiteBishop, nchess.WhiteKnight, nchess.WhitePawn,
		nchess.BlackKing, nchess.BlackQueen, nchess.BlackRook, nchess.BlackBishop, nchess.BlackKnight, nchess.BlackPawn,
	} {
		if _, err := c.get(p, 32); err != nil {
			t.Fatalf("piece %v: %v", p, err)
		}
	}
}

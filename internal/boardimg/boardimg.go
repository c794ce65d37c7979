// Package boardimg renders session positions as PNG diagrams.
package boardimg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"

	nchess "github.com/corentings/chess/v2"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/cheese-arena/internal/rules"
)

const (
	squareSize  = 64
	margin      = 20
	boardPixels = squareSize * 8
	canvasSize  = boardPixels + margin*2

	MinSize     = 128
	MaxSize     = 1024
	DefaultSize = canvasSize
)

var (
	lightSquare         = color.RGBA{233, 207, 163, 255}
	darkSquare          = color.RGBA{187, 136, 96, 255}
	frameColor          = color.RGBA{28, 31, 46, 255}
	lastMoveFill        = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	coordinateTextColor = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
)

// Options controls the output. Flip draws the board from black's side.
type Options struct {
	Size int
	Flip bool
}

// ClampSize maps a requested edge length into the supported range.
func ClampSize(size int) int {
	switch {
	case size <= 0:
		return DefaultSize
	case size < MinSize:
		return MinSize
	case size > MaxSize:
		return MaxSize
	default:
		return size
	}
}

type Renderer struct {
	pieces *pieceCache
}

func New() *Renderer {
	return &Renderer{pieces: newPieceCache()}
}

// RenderPNG draws pos with its last move highlighted.
func (r *Renderer) RenderPNG(ctx context.Context, pos rules.Position, opts Options) ([]byte, error) {
	board := pos.Board()
	if board == nil {
		return nil, fmt.Errorf("board is nil")
	}
	img := image.NewRGBA(image.Rect(0, 0, canvasSize, canvasSize))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(frameColor), image.Point{}, imagedraw.Src)

	origin := image.Point{X: margin, Y: margin}
	g := geometry{origin: origin, flip: opts.Flip}

	g.drawSquares(img)
	if from, to, ok := pos.LastMove(); ok {
		imagedraw.Draw(img, g.squareRect(from), image.NewUniform(lastMoveFill), image.Point{}, imagedraw.Over)
		imagedraw.Draw(img, g.squareRect(to), image.NewUniform(lastMoveFill), image.Point{}, imagedraw.Over)
	}
	if err := r.drawPieces(img, board, g); err != nil {
		return nil, err
	}
	g.drawCoordinates(img)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var out image.Image = img
	if size := ClampSize(opts.Size); size != canvasSize {
		scaled := image.NewRGBA(image.Rect(0, 0, size, size))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Src, nil)
		out = scaled
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawPieces(dst imagedraw.Image, board *nchess.Board, g geometry) error {
	for sq, piece := range board.SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		pimg, err := r.pieces.get(piece, squareSize)
		if err != nil {
			return err
		}
		imagedraw.Draw(dst, g.squareRect(sq), pimg, image.Point{}, imagedraw.Over)
	}
	return nil
}

type geometry struct {
	origin image.Point
	flip   bool
}

// cell maps a square to its (column, row) on screen.
func (g geometry) cell(sq nchess.Square) (int, int) {
	col := int(sq.File())
	row := 7 - int(sq.Rank())
	if g.flip {
		col, row = 7-col, 7-row
	}
	return col, row
}

func (g geometry) squareRect(sq nchess.Square) image.Rectangle {
	col, row := g.cell(sq)
	x := g.origin.X + col*squareSize
	y := g.origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func (g geometry) drawSquares(dst imagedraw.Image) {
	for file := nchess.FileA; file <= nchess.FileH; file++ {
		for rank := nchess.Rank1; rank <= nchess.Rank8; rank++ {
			sq := nchess.NewSquare(file, rank)
			imagedraw.Draw(dst, g.squareRect(sq), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
		}
	}
}

func (g geometry) drawCoordinates(dst imagedraw.Image) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Src: image.NewUniform(coordinateTextColor), Face: face}
	ascent := face.Metrics().Ascent.Ceil()

	for i := 0; i < 8; i++ {
		file := nchess.File(i)
		col, _ := g.cell(nchess.NewSquare(file, nchess.Rank1))
		centerX := g.origin.X + col*squareSize + squareSize/2
		drawCenteredText(drawer, file.String(), centerX, g.origin.Y+boardPixels+ascent+2)

		rank := nchess.Rank(i)
		_, row := g.cell(nchess.NewSquare(nchess.FileA, rank))
		centerY := g.origin.Y + row*squareSize + squareSize/2
		drawCenteredText(drawer, rank.String(), g.origin.X/2, centerY+ascent/2)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

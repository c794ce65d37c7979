package boardimg

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

//go:embed assets/pieces/*.svg
var pieceFiles embed.FS

var pieceLetters = map[nchess.PieceType]string{
	nchess.King:   "K",
	nchess.Queen:  "Q",
	nchess.Rook:   "R",
	nchess.Bishop: "B",
	nchess.Knight: "N",
	nchess.Pawn:   "P",
}

// pieceCache holds rasterized sprites per piece and edge length. Sprites are
// read-only once stored.
type pieceCache struct {
	mu      sync.Mutex
	sprites map[string]*image.RGBA
}

func newPieceCache() *pieceCache {
	return &pieceCache{sprites: make(map[string]*image.RGBA)}
}

func (c *pieceCache) get(piece nchess.Piece, size int) (*image.RGBA, error) {
	asset := spriteAsset(piece)
	key := fmt.Sprintf("%s@%d", asset, size)

	c.mu.Lock()
	sprite, ok := c.sprites[key]
	c.mu.Unlock()
	if ok {
		return sprite, nil
	}

	sprite, err := rasterizeSVG(asset, size)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.sprites[key] = sprite
	c.mu.Unlock()
	return sprite, nil
}

// spriteAsset names the embedded file for piece, e.g. assets/pieces/wN.svg.
func spriteAsset(piece nchess.Piece) string {
	side := "b"
	if piece.Color() == nchess.White {
		side = "w"
	}
	letter, ok := pieceLetters[piece.Type()]
	if !ok {
		letter = "P"
	}
	return "assets/pieces/" + side + letter + ".svg"
}

func rasterizeSVG(asset string, size int) (*image.RGBA, error) {
	raw, err := pieceFiles.ReadFile(asset)
	if err != nil {
		return nil, fmt.Errorf("read sprite %s: %w", asset, err)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse sprite %s: %w", asset, err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, dst, dst.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1)
	return dst, nil
}

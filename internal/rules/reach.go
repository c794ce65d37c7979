package rules

import nchess "github.com/corentings/chess/v2"

// reachable reports whether piece on from could move to to on board if its
// own king were ignored: movement pattern, clear path, and a legal target.
// Castling is not covered. epSquare is the en passant target or "-".
func reachable(board *nchess.Board, piece nchess.Piece, from, to nchess.Square, epSquare string) bool {
	if from == to {
		return false
	}
	target := board.Piece(to)
	if target != nchess.NoPiece && target.Color() == piece.Color() {
		return false
	}
	df := int(to.File()) - int(from.File())
	dr := int(to.Rank()) - int(from.Rank())

	switch piece.Type() {
	case nchess.Knight:
		return abs(df)*abs(dr) == 2
	case nchess.King:
		return abs(df) <= 1 && abs(dr) <= 1
	case nchess.Rook:
		return (df == 0 || dr == 0) && pathClear(board, from, df, dr)
	case nchess.Bishop:
		return abs(df) == abs(dr) && pathClear(board, from, df, dr)
	case nchess.Queen:
		return (df == 0 || dr == 0 || abs(df) == abs(dr)) && pathClear(board, from, df, dr)
	case nchess.Pawn:
		return pawnReaches(board, piece, from, to, df, dr, epSquare)
	}
	return false
}

func pawnReaches(board *nchess.Board, piece nchess.Piece, from, to nchess.Square, df, dr int, epSquare string) bool {
	dir, startRank := 1, nchess.Rank2
	if piece.Color() == nchess.Black {
		dir, startRank = -1, nchess.Rank7
	}
	target := board.Piece(to)
	switch {
	case df == 0 && dr == dir:
		return target == nchess.NoPiece
	case df == 0 && dr == 2*dir && from.Rank() == startRank:
		return target == nchess.NoPiece && pathClear(board, from, df, dr)
	case abs(df) == 1 && dr == dir:
		return target != nchess.NoPiece || squareName(to) == epSquare
	}
	return false
}

// pathClear checks the squares strictly between from and from+(df,dr).
func pathClear(board *nchess.Board, from nchess.Square, df, dr int) bool {
	steps := abs(df)
	if abs(dr) > steps {
		steps = abs(dr)
	}
	sf, sr := sign(df), sign(dr)
	f, r := int(from.File()), int(from.Rank())
	for i := 1; i < steps; i++ {
		sq := nchess.NewSquare(nchess.File(f+i*sf), nchess.Rank(r+i*sr))
		if board.Piece(sq) != nchess.NoPiece {
			return false
		}
	}
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}

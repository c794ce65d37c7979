package pvpchess

import (
	"sync"
	"time"

	"github.com/park285/cheese-arena/internal/rules"
	"github.com/park285/cheese-arena/pkg/chessdto"
)

// Color identifies chess side. Seat 0 plays White.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func seatColor(seat int) Color {
	if seat == 1 {
		return Black
	}
	return White
}

// Status represents a session lifecycle state.
type Status string

const (
	StatusAwaiting Status = "AWAITING_OPPONENT"
	StatusActive   Status = "ACTIVE"
	StatusEnded    Status = "ENDED"
)

// Reason qualifies StatusEnded.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonCheckmate            Reason = "checkmate"
	ReasonStalemate            Reason = "stalemate"
	ReasonInsufficientMaterial Reason = "insufficient_material"
	ReasonRepetition           Reason = "repetition"
	ReasonMoveCountDraw        Reason = "move_count_draw"
	ReasonResignation          Reason = "resignation"
	ReasonAgreedDraw           Reason = "agreed_draw"
	ReasonAbandonment          Reason = "abandonment"
)

// Decisive reports whether the reason produces a winner.
func (r Reason) Decisive() bool { return r == ReasonCheckmate || r == ReasonResignation }

// GameSession is one live two-seat game. All fields are guarded by mu.
type GameSession struct {
	mu sync.Mutex

	id           string
	seats        [2]string
	names        [2]string
	position     rules.Position
	moves        []string
	san          []string
	turn         int
	captured     [2][]chessdto.CapturedUnit
	status       Status
	reason       Reason
	createdAt    time.Time
	lastActivity time.Time
	closed       bool
}

func (s *GameSession) ID() string { return s.id }

// seatOf returns the seat index held by conn, or -1.
func (s *GameSession) seatOf(conn string) int {
	if conn == "" {
		return -1
	}
	for i, c := range s.seats {
		if c == conn {
			return i
		}
	}
	return -1
}

func (s *GameSession) full() bool { return s.seats[0] != "" && s.seats[1] != "" }

// occupants lists the seated connection ids in seat order.
func (s *GameSession) occupants() []string {
	out := make([]string, 0, 2)
	for _, c := range s.seats {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func (s *GameSession) join(conn, name string, now time.Time) error {
	if s.closed {
		return ErrNotFound
	}
	if s.seats[1] != "" {
		return ErrAlreadyFull
	}
	if s.seats[0] == conn {
		return ErrSelfJoin
	}
	s.seats[1] = conn
	s.names[1] = disambiguate(name, s.names[0])
	s.status = StatusActive
	s.lastActivity = now
	return nil
}

func (s *GameSession) reset(initial rules.Position, now time.Time) {
	s.position = initial
	s.moves = nil
	s.san = nil
	s.captured = [2][]chessdto.CapturedUnit{}
	s.turn = 0
	s.createdAt = now
	s.lastActivity = now
	if s.full() {
		s.status = StatusActive
	} else {
		s.status = StatusAwaiting
	}
}

func (s *GameSession) end(reason Reason) {
	if s.status != StatusEnded {
		s.status = StatusEnded
		s.reason = reason
	}
}

// FinishedGame is handed to result sinks after a game ends with a result.
type FinishedGame struct {
	ID        string
	WhiteName string
	BlackName string
	Reason    Reason
	Winner    string
	Loser     string
	// Result is "white", "black" or "draw".
	Result    string
	MovesUCI  []string
	MovesSAN  []string
	StartedAt time.Time
	EndedAt   time.Time
}

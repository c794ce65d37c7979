package pvpchess

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/ledger"
	"github.com/park285/cheese-arena/internal/msgcat"
	"github.com/park285/cheese-arena/internal/obslog"
	"github.com/park285/cheese-arena/internal/rules"
	"github.com/park285/cheese-arena/pkg/chessdto"
)

const (
	defaultSinkTimeout = 5 * time.Second
	ledgerTimeout      = 5 * time.Second
	maxDrawReasonRunes = 140
)

type Options struct {
	Engine       rules.Engine
	Ledger       *ledger.Ledger
	Notifier     Notifier
	Catalog      *msgcat.Catalog
	Sinks        []ResultSink
	NameMaxRunes int
	SinkTimeout  time.Duration
	Now          func() time.Time
}

// Manager arbitrates every session action. Lock order is session, then
// index/store, then ledger.
type Manager struct {
	store    *Store
	index    *Index
	engine   rules.Engine
	ledger   *ledger.Ledger
	notifier Notifier
	catalog  *msgcat.Catalog
	sinks    []ResultSink

	nameMax     int
	sinkTimeout time.Duration
	now         func() time.Time
	sinkWG      sync.WaitGroup
}

func NewManager(opts Options) *Manager {
	if opts.Engine == nil {
		opts.Engine = rules.New()
	}
	if opts.Ledger == nil {
		opts.Ledger = ledger.New(ledger.NewMemoryStore())
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Catalog == nil {
		opts.Catalog = msgcat.MustDefault()
	}
	if opts.NameMaxRunes <= 0 {
		opts.NameMaxRunes = defaultNameRuneLimit
	}
	if opts.SinkTimeout <= 0 {
		opts.SinkTimeout = defaultSinkTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		store:       NewStore(opts.Engine, opts.Now),
		index:       NewIndex(),
		engine:      opts.Engine,
		ledger:      opts.Ledger,
		notifier:    opts.Notifier,
		catalog:     opts.Catalog,
		sinks:       opts.Sinks,
		nameMax:     opts.NameMaxRunes,
		sinkTimeout: opts.SinkTimeout,
		now:         opts.Now,
	}
}

// SetNotifier swaps the event transport; call before serving connections.
func (m *Manager) SetNotifier(n Notifier) {
	if n == nil {
		n = nopNotifier{}
	}
	m.notifier = n
}

// AddSink attaches a result sink; call before serving connections.
func (m *Manager) AddSink(s ResultSink) {
	if s != nil {
		m.sinks = append(m.sinks, s)
	}
}

func (m *Manager) Catalog() *msgcat.Catalog { return m.catalog }

func (m *Manager) Store() *Store { return m.store }

// Wait blocks until in-flight result sinks finish or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.sinkWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) text(key string, data any, fallback string) string {
	return m.catalog.Text(key, data, fallback)
}

func (m *Manager) send(conn, event string, data any) {
	if conn == "" {
		return
	}
	m.notifier.Notify(conn, chessdto.Event{Event: event, Data: data})
}

func (m *Manager) broadcastLocked(s *GameSession, event string, data any) {
	for _, c := range s.occupants() {
		m.send(c, event, data)
	}
}

// CreateSession opens a new session with conn at seat 0. Any session the
// connection already occupies is abandoned first.
func (m *Manager) CreateSession(ctx context.Context, conn, name string) (*chessdto.GameCreated, error) {
	clean, err := SanitizeName(name, m.nameMax)
	if err != nil {
		return nil, err
	}
	if id, ok := m.index.SessionFor(conn); ok {
		m.leave(conn, id, false)
	}

	s := m.store.Create(conn, clean)
	s.mu.Lock()
	defer s.mu.Unlock()
	m.index.Bind(conn, s.id)
	reply := &chessdto.GameCreated{
		GameID:       s.id,
		PlayerNumber: 0,
		Color:        string(White),
		Name:         clean,
		BoardFEN:     m.engine.Encode(s.position),
		CreatedAt:    s.createdAt,
	}
	m.send(conn, chessdto.EventGameCreated, reply)
	obslog.L().Info("pvp_game_create", zap.String("game_id", s.id), zap.String("conn", conn), zap.String("name", clean))
	return reply, nil
}

// JoinSession seats conn at index 1 of an existing session.
func (m *Manager) JoinSession(ctx context.Context, conn, sessionID, name string) (*chessdto.GameJoined, error) {
	sessionID = strings.TrimSpace(sessionID)
	clean, err := SanitizeName(name, m.nameMax)
	if err != nil {
		return nil, err
	}
	if b, ok := m.index.lookup(conn); ok {
		cur := b.sessionID
		if b.evicted {
			m.index.UnbindIf(conn, cur)
			return nil, ErrNotFound
		}
		if m.store.Get(cur) == nil {
			m.index.UnbindIf(conn, cur)
		} else if cur == sessionID {
			return nil, ErrAlreadyInGame
		} else {
			return nil, ErrInOtherGame
		}
	}

	s := m.store.Get(sessionID)
	if s == nil {
		return nil, ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.join(conn, clean, m.now()); err != nil {
		return nil, err
	}
	m.index.Bind(conn, s.id)

	fen := m.engine.Encode(s.position)
	reply := &chessdto.GameJoined{
		GameID:       s.id,
		PlayerNumber: 1,
		Color:        string(Black),
		Name:         s.names[1],
		Opponent:     s.names[0],
		BoardFEN:     fen,
		MovesHistory: copyStrings(s.moves),
		Captured:     capturedDTO(s),
	}
	m.send(conn, chessdto.EventGameJoined, reply)
	m.send(s.seats[0], chessdto.EventOpponentJoined, &chessdto.OpponentJoined{
		GameID:       s.id,
		Message:      m.text("notice.opponent_joined", map[string]string{"Name": s.names[1]}, "Opponent has joined"),
		Name:         s.names[1],
		BoardFEN:     fen,
		MovesHistory: copyStrings(s.moves),
		Captured:     capturedDTO(s),
	})
	obslog.L().Info("pvp_join", zap.String("game_id", s.id), zap.String("conn", conn), zap.String("name", s.names[1]))
	return reply, nil
}

// withBoundSession resolves and locks the session conn occupies. Stale index
// entries are removed before reporting not_found.
func (m *Manager) withBoundSession(conn string, fn func(s *GameSession, seat int) error) error {
	id, ok := m.index.SessionFor(conn)
	if !ok {
		return ErrNotInGame
	}
	s := m.store.Get(id)
	if s == nil {
		m.index.UnbindIf(conn, id)
		return ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		m.index.UnbindIf(conn, id)
		if s.status == StatusEnded && s.reason != ReasonAbandonment {
			return ErrGameOver
		}
		return ErrNotFound
	}
	seat := s.seatOf(conn)
	if seat < 0 {
		m.index.UnbindIf(conn, id)
		return ErrNotAPlayer
	}
	return fn(s, seat)
}

// SubmitMove validates and applies a coordinate move for conn.
func (m *Manager) SubmitMove(ctx context.Context, conn, moveText string) error {
	uci, err := rules.ParseMoveText(moveText)
	if err != nil {
		return ErrInvalidMoveFormat
	}
	var finished *FinishedGame
	err = m.withBoundSession(conn, func(s *GameSession, seat int) error {
		if s.status == StatusEnded {
			return ErrGameOver
		}
		if !s.full() {
			return ErrWaitingForOpponent
		}
		if seat != s.turn {
			return ErrNotYourTurn
		}
		out, aerr := m.engine.Apply(s.position, uci)
		if aerr != nil {
			var rej *rules.RejectedError
			if errors.As(aerr, &rej) {
				return ruleError(rej.Reason)
			}
			if errors.Is(aerr, rules.ErrMoveFormat) {
				return ErrInvalidMoveFormat
			}
			return ErrIllegalMove
		}

		s.position = out.Position
		s.moves = append(s.moves, out.Move.UCI)
		s.san = append(s.san, out.Move.SAN)
		if unit := captureDTO(out.Capture); unit != nil {
			s.captured[seat] = append(s.captured[seat], *unit)
		}
		s.turn = 1 - s.turn
		s.lastActivity = m.now()

		reason := terminalReason(out.Flags)
		payload := &chessdto.MoveMade{
			GameID:        s.id,
			Move:          out.Move.UCI,
			From:          out.Move.From,
			To:            out.Move.To,
			Promotion:     out.Move.Promotion,
			SAN:           out.Move.SAN,
			BoardFEN:      m.engine.Encode(s.position),
			Flags:         flagsDTO(out.Flags),
			Capture:       captureDTO(out.Capture),
			Captured:      capturedDTO(s),
			MovesHistory:  copyStrings(s.moves),
			CurrentPlayer: s.turn,
			Turn:          string(seatColor(s.turn)),
			EndReason:     string(reason),
		}
		if reason == ReasonCheckmate {
			payload.Winner = s.names[seat]
		}
		m.broadcastLocked(s, chessdto.EventMoveMade, payload)
		obslog.L().Info("pvp_move",
			zap.String("game_id", s.id),
			zap.Int("seat", seat),
			zap.String("uci", out.Move.UCI),
			zap.String("san", out.Move.SAN),
			zap.Int("ply", len(s.moves)),
		)

		if reason == ReasonNone {
			return nil
		}
		winner := -1
		if reason == ReasonCheckmate {
			winner = seat
		}
		finished = m.finishLocked(ctx, s, reason, winner)
		return nil
	})
	m.publish(finished)
	return err
}

// RequestDraw sends a one-shot offer to the opponent. No offer state is kept.
func (m *Manager) RequestDraw(ctx context.Context, conn, reason string) error {
	return m.withBoundSession(conn, func(s *GameSession, seat int) error {
		if err := activeOnly(s); err != nil {
			return err
		}
		s.lastActivity = m.now()
		reason = strings.TrimSpace(reason)
		if utf8.RuneCountInString(reason) > maxDrawReasonRunes {
			reason = string([]rune(reason)[:maxDrawReasonRunes])
		}
		m.send(s.seats[1-seat], chessdto.EventDrawOffered, &chessdto.DrawOffered{
			GameID:  s.id,
			From:    s.names[seat],
			Reason:  reason,
			Message: m.text("notice.draw_offered", map[string]string{"Name": s.names[seat]}, "Draw offered"),
		})
		obslog.L().Info("pvp_draw_offer", zap.String("game_id", s.id), zap.Int("seat", seat))
		return nil
	})
}

// AcceptDraw ends an active session as an agreed draw. A prior offer is not required.
func (m *Manager) AcceptDraw(ctx context.Context, conn string) error {
	var finished *FinishedGame
	err := m.withBoundSession(conn, func(s *GameSession, seat int) error {
		if err := activeOnly(s); err != nil {
			return err
		}
		s.lastActivity = m.now()
		finished = m.finishLocked(ctx, s, ReasonAgreedDraw, -1)
		return nil
	})
	m.publish(finished)
	return err
}

// Resign ends the session with conn's seat as the loser.
func (m *Manager) Resign(ctx context.Context, conn string) error {
	var finished *FinishedGame
	err := m.withBoundSession(conn, func(s *GameSession, seat int) error {
		if s.status == StatusEnded {
			return ErrGameOver
		}
		s.lastActivity = m.now()
		finished = m.finishLocked(ctx, s, ReasonResignation, 1-seat)
		return nil
	})
	m.publish(finished)
	return err
}

func activeOnly(s *GameSession) error {
	switch s.status {
	case StatusEnded:
		return ErrGameOver
	case StatusAwaiting:
		return ErrWaitingForOpponent
	}
	return nil
}

// finishLocked ends the session, updates the ledger, broadcasts game_ended and
// tears the session down. winner is a seat index, or -1 for draws.
func (m *Manager) finishLocked(ctx context.Context, s *GameSession, reason Reason, winner int) *FinishedGame {
	s.end(reason)
	bothSeated := s.full()

	var ended chessdto.GameEnded
	ended.GameID = s.id
	ended.Result = string(reason)
	if winner == 0 || winner == 1 {
		if s.seats[winner] != "" {
			ended.Winner = s.names[winner]
		}
		ended.Loser = s.names[1-winner]
	}
	ended.Message = m.endMessage(reason, ended.Winner, ended.Loser)

	if bothSeated {
		// The session ends either way; the ledger write must outlive the
		// requesting connection.
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerTimeout)
		var lerr error
		if reason.Decisive() {
			lerr = m.ledger.RecordDecisive(lctx, ended.Winner, ended.Loser)
		} else {
			lerr = m.ledger.RecordDraw(lctx, s.names[0], s.names[1])
		}
		cancel()
		if lerr != nil {
			obslog.L().Error("ledger_record_error", zap.String("game_id", s.id), zap.String("reason", string(reason)), zap.Error(lerr))
		}
	}

	m.broadcastLocked(s, chessdto.EventGameEnded, &ended)
	obslog.L().Info("pvp_game_end",
		zap.String("game_id", s.id),
		zap.String("reason", string(reason)),
		zap.String("winner", ended.Winner),
		zap.String("loser", ended.Loser),
		zap.Int("plies", len(s.moves)),
	)
	var fg *FinishedGame
	if bothSeated {
		w := -1
		if reason.Decisive() {
			w = winner
		}
		fg = finishedLocked(s, w)
	}
	m.teardownLocked(s, reason)
	return fg
}

func (m *Manager) endMessage(reason Reason, winner, loser string) string {
	data := map[string]string{"Winner": winner, "Loser": loser}
	key := "game_ended." + string(reason)
	if reason == ReasonResignation && winner == "" {
		key = "game_ended.resignation_alone"
	}
	return m.text(key, data, string(reason))
}

// teardownLocked unbinds every occupant and removes the session.
func (m *Manager) teardownLocked(s *GameSession, reason Reason) {
	s.end(reason)
	s.closed = true
	for _, c := range s.occupants() {
		m.index.UnbindIf(c, s.id)
	}
	m.store.Remove(s.id)
}

// QueryState returns the full snapshot for conn's session and stamps activity.
func (m *Manager) QueryState(ctx context.Context, conn string) (*chessdto.SessionState, error) {
	var state *chessdto.SessionState
	err := m.withBoundSession(conn, func(s *GameSession, seat int) error {
		s.lastActivity = m.now()
		state = m.snapshotLocked(s, seat)
		m.send(conn, chessdto.EventBoardState, state)
		return nil
	})
	return state, err
}

// LeaveSession abandons conn's session. It is a no-op when conn is unbound.
func (m *Manager) LeaveSession(ctx context.Context, conn string) error {
	id, ok := m.index.SessionFor(conn)
	if !ok {
		return nil
	}
	m.leave(conn, id, true)
	return nil
}

// Disconnect handles a closed transport; it behaves like LeaveSession without a reply.
func (m *Manager) Disconnect(conn string) {
	id, ok := m.index.SessionFor(conn)
	if !ok {
		return
	}
	m.leave(conn, id, false)
}

// leave tears down session id on behalf of conn. The remaining occupant is
// told and unbound; the ledger is not touched.
func (m *Manager) leave(conn, id string, reply bool) {
	s := m.store.Get(id)
	if s == nil {
		m.index.UnbindIf(conn, id)
		if reply {
			m.send(conn, chessdto.EventLeftGame, &chessdto.Notice{Message: m.text("notice.left_game", nil, "You left the game")})
		}
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m.index.UnbindIf(conn, id)
	if s.closed {
		return
	}
	seat := s.seatOf(conn)
	if seat >= 0 {
		if other := s.seats[1-seat]; other != "" {
			m.send(other, chessdto.EventOpponentLeft, &chessdto.Notice{
				GameID:  s.id,
				Message: m.text("notice.opponent_left", nil, "Opponent left the game"),
			})
		}
	}
	m.teardownLocked(s, ReasonAbandonment)
	if reply {
		m.send(conn, chessdto.EventLeftGame, &chessdto.Notice{
			GameID:  s.id,
			Message: m.text("notice.left_game", nil, "You left the game"),
		})
	}
	obslog.L().Info("pvp_leave", zap.String("game_id", s.id), zap.String("conn", conn), zap.Bool("explicit", reply))
}

// ResetSession restarts the game in place for the same seats.
func (m *Manager) ResetSession(ctx context.Context, conn string) error {
	return m.withBoundSession(conn, func(s *GameSession, seat int) error {
		if s.status == StatusEnded {
			return ErrGameOver
		}
		s.reset(m.engine.InitialPosition(), m.now())
		m.broadcastLocked(s, chessdto.EventGameReset, &chessdto.GameReset{
			GameID:        s.id,
			Message:       m.text("notice.game_reset", nil, "Game has been reset"),
			BoardFEN:      m.engine.Encode(s.position),
			Status:        string(s.status),
			CurrentPlayer: s.turn,
		})
		obslog.L().Info("pvp_reset", zap.String("game_id", s.id), zap.Int("seat", seat))
		return nil
	})
}

// Snapshot returns a read-only view of any live session.
func (m *Manager) Snapshot(id string) (*chessdto.SessionState, error) {
	s := m.store.Get(id)
	if s == nil {
		return nil, ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrNotFound
	}
	return m.snapshotLocked(s, -1), nil
}

// Position returns the current position of a live session. Positions are
// immutable, so the value is safe to use after the lock is released.
func (m *Manager) Position(id string) (rules.Position, error) {
	s := m.store.Get(id)
	if s == nil {
		return rules.Position{}, ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return rules.Position{}, ErrNotFound
	}
	return s.position, nil
}

func (m *Manager) Stats() chessdto.Stats {
	total, awaiting, active := m.store.Counts()
	return chessdto.Stats{
		LiveSessions:     total,
		Awaiting:         awaiting,
		Active:           active,
		BoundConnections: m.index.Len(),
	}
}

func (m *Manager) Lobby() []chessdto.LobbyEntry { return m.store.Lobby() }

// publish hands a finished game to every sink on its own goroutine.
func (m *Manager) publish(fg *FinishedGame) {
	if fg == nil || len(m.sinks) == 0 {
		return
	}
	for _, sink := range m.sinks {
		m.sinkWG.Add(1)
		go func(sink ResultSink) {
			defer m.sinkWG.Done()
			ctx, cancel := context.WithTimeout(context.Background(), m.sinkTimeout)
			defer cancel()
			if err := sink.RecordFinished(ctx, fg); err != nil {
				obslog.L().Warn("pvp_result_sink_error", zap.String("game_id", fg.ID), zap.Error(err))
			}
		}(sink)
	}
}

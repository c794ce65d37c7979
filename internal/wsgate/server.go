// Package wsgate serves the realtime websocket protocol.
package wsgate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-arena/internal/obslog"
	"github.com/park285/cheese-arena/internal/pvpchess"
	"github.com/park285/cheese-arena/pkg/chessdto"
)

const (
	defaultPingInterval = 30 * time.Second
	writeTimeout        = 5 * time.Second
	readLimit           = 16 << 10
)

type Options struct {
	AllowedOrigins []string
	PingInterval   time.Duration
	SendBuffer     int
}

// Server accepts websocket connections and dispatches their actions to the
// session manager.
type Server struct {
	manager   *pvpchess.Manager
	hub       *Hub
	origins   []string
	pingEvery time.Duration

	base     context.Context
	shutdown context.CancelFunc
	wg       sync.WaitGroup
}

// NewServer registers the hub as the manager's notifier.
func NewServer(m *pvpchess.Manager, opts Options) *Server {
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	hub := NewHub(opts.SendBuffer)
	m.SetNotifier(hub)
	base, cancel := context.WithCancel(context.Background())
	return &Server{
		manager:   m,
		hub:       hub,
		origins:   normalizeOrigins(opts.AllowedOrigins),
		pingEvery: opts.PingInterval,
		base:      base,
		shutdown:  cancel,
	}
}

func (s *Server) Hub() *Hub { return s.hub }

// Shutdown closes every live connection and waits for their handlers, which
// release their sessions through Disconnect.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdown()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeHTTP upgrades the request and runs the connection until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  s.origins,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Warn("ws_accept_failed", zap.Error(err), zap.String("remote", r.RemoteAddr))
		return
	}
	conn.SetReadLimit(readLimit)

	s.wg.Add(1)
	defer s.wg.Done()
	s.serve(s.base, conn)
}

func (s *Server) serve(parent context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	id := uuid.NewString()
	c := s.hub.register(id)
	obslog.L().Info("ws_connected", zap.String("conn", id))

	var loops sync.WaitGroup
	loops.Add(2)
	go func() {
		defer loops.Done()
		s.writeLoop(ctx, cancel, conn, c)
	}()
	go func() {
		defer loops.Done()
		s.pingLoop(ctx, cancel, conn)
	}()

	s.hub.Notify(id, chessdto.Event{Event: chessdto.EventConnected, Data: &chessdto.Connected{
		Message:      s.manager.Catalog().Text("notice.connected", nil, "Connected to chess server"),
		ConnectionID: id,
	}})

	s.readLoop(ctx, conn, id)

	s.manager.Disconnect(id)
	s.hub.unregister(id)
	cancel()
	loops.Wait()
	_ = conn.Close(websocket.StatusNormalClosure, "")
	obslog.L().Info("ws_disconnected", zap.String("conn", id))
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, id string) {
	for {
		typ, raw, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				obslog.L().Debug("ws_read_end", zap.String("conn", id), zap.Error(err))
			}
			return
		}
		if typ != websocket.MessageText {
			s.reject(id, "invalid_request", "malformed message")
			continue
		}
		var msg chessdto.Inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.reject(id, "invalid_request", "malformed message")
			continue
		}
		s.dispatch(ctx, id, msg)
	}
}

func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, c *client) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.send:
			if !ok {
				return
			}
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, ev)
			wcancel()
			if err != nil {
				obslog.L().Debug("ws_write_failed", zap.String("conn", c.id), zap.Error(err))
				cancel()
				return
			}
		}
	}
}

func (s *Server) pingLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn) {
	t := time.NewTicker(s.pingEvery)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, pcancel := context.WithTimeout(ctx, 3*time.Second)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				failures++
				if failures >= 2 {
					cancel()
					return
				}
				continue
			}
			failures = 0
		}
	}
}

// dispatch runs one action. Handlers emit their own success events; only
// failures are answered here.
func (s *Server) dispatch(ctx context.Context, id string, msg chessdto.Inbound) {
	var err error
	switch msg.Action {
	case chessdto.ActionCreateGame:
		var req chessdto.CreateGameRequest
		if err = decode(msg.Data, &req); err == nil {
			_, err = s.manager.CreateSession(ctx, id, req.Name)
		}
	case chessdto.ActionJoinGame:
		var req chessdto.JoinGameRequest
		if err = decode(msg.Data, &req); err == nil {
			_, err = s.manager.JoinSession(ctx, id, req.GameID, req.Name)
		}
	case chessdto.ActionMakeMove:
		var req chessdto.MakeMoveRequest
		if err = decode(msg.Data, &req); err == nil {
			err = s.manager.SubmitMove(ctx, id, req.Move)
		}
	case chessdto.ActionRequestDraw:
		var req chessdto.DrawRequest
		if err = decode(msg.Data, &req); err == nil {
			err = s.manager.RequestDraw(ctx, id, req.Reason)
		}
	case chessdto.ActionAcceptDraw:
		err = s.manager.AcceptDraw(ctx, id)
	case chessdto.ActionResign:
		err = s.manager.Resign(ctx, id)
	case chessdto.ActionGetBoardState:
		_, err = s.manager.QueryState(ctx, id)
	case chessdto.ActionLeaveGame:
		err = s.manager.LeaveSession(ctx, id)
	case chessdto.ActionResetGame:
		err = s.manager.ResetSession(ctx, id)
	default:
		s.reject(id, "unknown_action", "unknown action")
		return
	}
	if err == nil {
		return
	}

	var perr *pvpchess.Error
	switch {
	case errors.As(err, &perr):
		s.reject(id, perr.Code, perr.Message)
	case errors.Is(err, errBadPayload):
		s.reject(id, "invalid_request", "malformed request data")
	default:
		obslog.L().Error("ws_action_failed", zap.String("conn", id), zap.String("action", msg.Action), zap.Error(err))
		s.reject(id, "internal", "internal error")
	}
}

func (s *Server) reject(id, code, fallback string) {
	s.hub.Notify(id, chessdto.Event{Event: chessdto.EventError, Data: chessdto.ErrorPayload{
		Message: s.manager.Catalog().Text("errors."+code, nil, fallback),
		Code:    code,
	}})
}

var errBadPayload = errors.New("bad payload")

func decode(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errBadPayload
	}
	return nil
}

// normalizeOrigins converts configured origins into host patterns; an empty
// list or "*" allows any origin.
func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, o := range in {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if o == "*" {
			return []string{"*"}
		}
		o = strings.TrimPrefix(strings.TrimPrefix(o, "https://"), "http://")
		out = append(out, strings.TrimSuffix(o, "/"))
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

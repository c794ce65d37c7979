// Package queryapi is the read-only HTTP surface over standings, live
// sessions and the game archive.
package queryapi

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/boardimg"
	"github.com/park285/cheese-arena/internal/ledger"
	"github.com/park285/cheese-arena/internal/obslog"
	"github.com/park285/cheese-arena/internal/rules"
	"github.com/park285/cheese-arena/pkg/chessdto"
)

const (
	requestTimeout  = 5 * time.Second
	defaultTopN     = 10
	defaultGamesLim = 20
)

// Sessions is the live-session view the API reads.
type Sessions interface {
	Stats() chessdto.Stats
	Lobby() []chessdto.LobbyEntry
	Position(id string) (rules.Position, error)
}

// Archive lists finished games.
type Archive interface {
	RecentGames(ctx context.Context, player string, limit int) ([]chessdto.ArchivedGame, error)
}

type Options struct {
	Ledger   *ledger.Ledger
	Sessions Sessions
	Renderer *boardimg.Renderer
	Archive  Archive
}

type Handler struct {
	ledger   *ledger.Ledger
	sessions Sessions
	renderer *boardimg.Renderer
	archive  Archive
}

func New(opts Options) *Handler {
	if opts.Renderer == nil {
		opts.Renderer = boardimg.New()
	}
	return &Handler{
		ledger:   opts.Ledger,
		sessions: opts.Sessions,
		renderer: opts.Renderer,
		archive:  opts.Archive,
	}
}

// NewServer wraps h in a fasthttp server with conservative timeouts.
func NewServer(h *Handler) *fasthttp.Server {
	return &fasthttp.Server{
		Handler:      h.Handle,
		Name:         "cheese-arena",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// Handle routes one request.
func (h *Handler) Handle(ctx *fasthttp.RequestCtx) {
	if !ctx.IsGet() && !ctx.IsHead() {
		writeJSON(ctx, fasthttp.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
		return
	}
	path := string(ctx.Path())
	switch {
	case path == "/api/health":
		writeJSON(ctx, fasthttp.StatusOK, map[string]string{"status": "ok"})
	case path == "/api/standings":
		h.standings(ctx)
	case path == "/api/standings/top":
		h.top(ctx)
	case strings.HasPrefix(path, "/api/standings/player/"):
		h.player(ctx, strings.TrimPrefix(path, "/api/standings/player/"))
	case path == "/api/stats":
		writeJSON(ctx, fasthttp.StatusOK, h.sessions.Stats())
	case path == "/api/lobby":
		writeJSON(ctx, fasthttp.StatusOK, h.sessions.Lobby())
	case strings.HasPrefix(path, "/api/sessions/") && strings.HasSuffix(path, "/board.png"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/api/sessions/"), "/board.png")
		h.board(ctx, id)
	case path == "/api/games":
		h.games(ctx)
	default:
		writeJSON(ctx, fasthttp.StatusNotFound, errorBody{Error: "not found"})
	}
}

func (h *Handler) standings(ctx *fasthttp.RequestCtx) {
	c, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	all, err := h.ledger.Query(c)
	if err != nil {
		h.fail(ctx, "standings", err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, all)
}

func (h *Handler) top(ctx *fasthttp.RequestCtx) {
	n := defaultTopN
	if ctx.QueryArgs().Has("n") {
		n = ctx.QueryArgs().GetUintOrZero("n")
	}
	c, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	top, err := h.ledger.QueryTop(c, n)
	if err != nil {
		h.fail(ctx, "standings_top", err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, top)
}

func (h *Handler) player(ctx *fasthttp.RequestCtx, name string) {
	c, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	st, err := h.ledger.QueryPlayer(c, name)
	if errors.Is(err, ledger.ErrPlayerNotFound) {
		writeJSON(ctx, fasthttp.StatusNotFound, errorBody{Error: "player not found"})
		return
	}
	if err != nil {
		h.fail(ctx, "standings_player", err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, st)
}

func (h *Handler) board(ctx *fasthttp.RequestCtx, id string) {
	pos, err := h.sessions.Position(id)
	if err != nil {
		writeJSON(ctx, fasthttp.StatusNotFound, errorBody{Error: "game not found"})
		return
	}
	args := ctx.QueryArgs()
	opts := boardimg.Options{
		Size: args.GetUintOrZero("size"),
		Flip: string(args.Peek("flip")) == "1" || string(args.Peek("flip")) == "true",
	}
	c, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	data, err := h.renderer.RenderPNG(c, pos, opts)
	if err != nil {
		h.fail(ctx, "board_render", err)
		return
	}
	ctx.Response.Header.Set("Cache-Control", "no-store")
	ctx.SetContentType("image/png")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(data)
}

func (h *Handler) games(ctx *fasthttp.RequestCtx) {
	if h.archive == nil {
		writeJSON(ctx, fasthttp.StatusNotFound, errorBody{Error: "archive not configured"})
		return
	}
	args := ctx.QueryArgs()
	limit := defaultGamesLim
	if args.Has("limit") {
		limit = args.GetUintOrZero("limit")
	}
	c, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	games, err := h.archive.RecentGames(c, string(args.Peek("player")), limit)
	if err != nil {
		h.fail(ctx, "archive_games", err)
		return
	}
	if games == nil {
		games = []chessdto.ArchivedGame{}
	}
	writeJSON(ctx, fasthttp.StatusOK, games)
}

func (h *Handler) fail(ctx *fasthttp.RequestCtx, route string, err error) {
	obslog.L().Error("query_api_error", zap.String("route", route), zap.Error(err))
	writeJSON(ctx, fasthttp.StatusInternalServerError, errorBody{Error: "internal error"})
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		ctx.Error(`{"error":"encode failed"}`, fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json; charset=utf-8")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}

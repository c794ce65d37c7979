package queryapi

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"testing"

	"github.com/valyala/fasthttp"

	"github.com/park285/cheese-arena/internal/ledger"
	"github.com/park285/cheese-arena/internal/pvpchess"
	"github.com/park285/cheese-arena/pkg/chessdto"
)

type fakeArchive struct {
	player string
	limit  int
}

func (f *fakeArchive) RecentGames(_ context.Context, player string, limit int) ([]chessdto.ArchivedGame, error) {
	f.player, f.limit = player, limit
	return []chessdto.ArchivedGame{{GameID: "g1", WhiteName: "Alice", BlackName: "Bob", Result: "white"}}, nil
}

func newHandler(t *testing.T, archive Archive) (*Handler, *pvpchess.Manager) {
	t.Helper()
	lg := ledger.New(ledger.NewMemoryStore())
	ctx := context.Background()
	if err := lg.RecordDecisive(ctx, "Alice", "Bob"); err != nil {
		t.Fatal(err)
	}
	if err := lg.RecordDecisive(ctx, "Carol", "Bob"); err != nil {
		t.Fatal(err)
	}
	if err := lg.RecordDecisive(ctx, "Alice", "Carol"); err != nil {
		t.Fatal(err)
	}
	m := pvpchess.NewManager(pvpchess.Options{Ledger: lg})
	return New(Options{Ledger: lg, Sessions: m, Archive: archive}), m
}

func get(h *Handler, uri string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.SetRequestURI(uri)
	h.Handle(&ctx)
	return &ctx
}

func TestStandingsRoutes(t *testing.T) {
	h, _ := newHandler(t, nil)

	ctx := get(h, "/api/standings")
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("status = %d", ctx.Response.StatusCode())
	}
	var all []ledger.Standing
	if err := json.Unmarshal(ctx.Response.Body(), &all); err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].Name != "Alice" || all[0].Wins != 2 {
		t.Fatalf("standings = %+v", all)
	}

	ctx = get(h, "/api/standings/top?n=1")
	var top []ledger.Standing
	_ = json.Unmarshal(ctx.Response.Body(), &top)
	if len(top) != 1 || top[0].Name != "Alice" {
		t.Fatalf("top = %+v", top)
	}

	ctx = get(h, "/api/standings/player/Bob")
	var bob ledger.Standing
	_ = json.Unmarshal(ctx.Response.Body(), &bob)
	if bob.Losses != 2 || bob.HeadToHead["Alice"].Losses != 1 {
		t.Fatalf("bob = %+v", bob)
	}

	if ctx := get(h, "/api/standings/player/Nobody"); ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("missing player status = %d", ctx.Response.StatusCode())
	}
}

func TestSessionRoutes(t *testing.T) {
	h, m := newHandler(t, nil)
	bg := context.Background()
	created, err := m.CreateSession(bg, "c1", "Alice")
	if err != nil {
		t.Fatal(err)
	}

	var lobby []chessdto.LobbyEntry
	_ = json.Unmarshal(get(h, "/api/lobby").Response.Body(), &lobby)
	if len(lobby) != 1 || lobby[0].GameID != created.GameID || lobby[0].Host != "Alice" {
		t.Fatalf("lobby = %+v", lobby)
	}

	var st chessdto.Stats
	_ = json.Unmarshal(get(h, "/api/stats").Response.Body(), &st)
	if st.LiveSessions != 1 || st.Awaiting != 1 || st.BoundConnections != 1 {
		t.Fatalf("stats = %+v", st)
	}

	ctx := get(h, "/api/sessions/"+created.GameID+"/board.png?size=200&flip=1")
	if ctx.Response.StatusCode() != fasthttp.StatusOK || string(ctx.Response.Header.ContentType()) != "image/png" {
		t.Fatalf("board status=%d type=%s", ctx.Response.StatusCode(), ctx.Response.Header.ContentType())
	}
	img, err := png.Decode(bytes.NewReader(ctx.Response.Body()))
	if err != nil || img.Bounds().Dx() != 200 {
		t.Fatalf("board png: %v", err)
	}

	if ctx := get(h, "/api/sessions/nope/board.png"); ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("unknown session status = %d", ctx.Response.StatusCode())
	}
}

func TestGamesRoute(t *testing.T) {
	h, _ := newHandler(t, nil)
	if ctx := get(h, "/api/games"); ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("games without archive status = %d", ctx.Response.StatusCode())
	}

	arch := &fakeArchive{}
	h, _ = newHandler(t, arch)
	ctx := get(h, "/api/games?player=Alice&limit=5")
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("status = %d", ctx.Response.StatusCode())
	}
	if arch.player != "Alice" || arch.limit != 5 {
		t.Fatalf("archive called with %q %d", arch.player, arch.limit)
	}
	var games []chessdto.ArchivedGame
	_ = json.Unmarshal(ctx.Response.Body(), &games)
	if len(games) != 1 || games[0].GameID != "g1" {
		t.Fatalf("games = %+v", games)
	}
}

func TestHealthAndUnknown(t *testing.T) {
	h, _ := newHandler(t, nil)
	if ctx := get(h, "/api/health"); ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("health status = %d", ctx.Response.StatusCode())
	}
	if ctx := get(h, "/api/nothing"); ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("unknown status = %d", ctx.Response.StatusCode())
	}
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.SetRequestURI("/api/standings")
	h.Handle(&ctx)
	if ctx.Response.StatusCode() != fasthttp.StatusMethodNotAllowed {
		t.Fatalf("post status = %d", ctx.Response.StatusCode())
	}
}

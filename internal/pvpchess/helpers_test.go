package pvpchess

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/park285/cheese-arena/internal/ledger"
	"github.com/park285/cheese-arena/pkg/chessdto"
)

type recorder struct {
	mu     sync.Mutex
	events map[string][]chessdto.Event
}

func newRecorder() *recorder { return &recorder{events: make(map[string][]chessdto.Event)} }

func (r *recorder) Notify(conn string, ev chessdto.Event) {
	r.mu.Lock()
	r.events[conn] = append(r.events[conn], ev)
	r.mu.Unlock()
}

func (r *recorder) count(conn, event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events[conn] {
		if ev.Event == event {
			n++
		}
	}
	return n
}

func (r *recorder) last(conn, event string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	evs := r.events[conn]
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Event == event {
			return evs[i].Data, true
		}
	}
	return nil, false
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	m     *Manager
	rec   *recorder
	led   *ledger.Ledger
	clock *fakeClock
}

func newTestManager(t *testing.T, sinks ...ResultSink) *testEnv {
	t.Helper()
	env := &testEnv{
		rec:   newRecorder(),
		led:   ledger.New(ledger.NewMemoryStore()),
		clock: &fakeClock{t: time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)},
	}
	env.m = NewManager(Options{
		Ledger:   env.led,
		Notifier: env.rec,
		Sinks:    sinks,
		Now:      env.clock.now,
	})
	return env
}

// startGame seats Alice on c1 and Bob on c2 and returns the session id.
func (e *testEnv) startGame(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	created, err := e.m.CreateSession(ctx, "c1", "Alice")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := e.m.JoinSession(ctx, "c2", created.GameID, "Bob"); err != nil {
		t.Fatalf("JoinSession: %v", err)
	}
	return created.GameID
}

func (e *testEnv) play(t *testing.T, moves ...string) {
	t.Helper()
	for i, mv := range moves {
		conn := "c1"
		if i%2 == 1 {
			conn = "c2"
		}
		if err := e.m.SubmitMove(context.Background(), conn, mv); err != nil {
			t.Fatalf("SubmitMove(%s, %s): %v", conn, mv, err)
		}
	}
}

func expectErr(t *testing.T, err error, want *Error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %s, got %v", want.Code, err)
	}
}

package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func checkInvariants(t *testing.T, l *Ledger) {
	t.Helper()
	all, err := l.Query(context.Background())
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	byName := map[string]Standing{}
	for _, s := range all {
		byName[s.Name] = s
		if s.TotalGames != s.Wins+s.Losses+s.Draws {
			t.Fatalf("%s: total %d != %d+%d+%d", s.Name, s.TotalGames, s.Wins, s.Losses, s.Draws)
		}
	}
	for name, s := range byName {
		for opp, rec := range s.HeadToHead {
			other, ok := byName[opp]
			if !ok {
				t.Fatalf("%s has head-to-head with unknown %s", name, opp)
			}
			mirror := other.HeadToHead[name]
			if mirror == nil || mirror.Wins != rec.Losses || mirror.Losses != rec.Wins {
				t.Fatalf("head-to-head not mirrored between %s and %s", name, opp)
			}
		}
	}
}

func TestRecordDecisive(t *testing.T) {
	ctx := context.Background()
	l := New(NewMemoryStore())
	if err := l.RecordDecisive(ctx, "Bob", "Alice"); err != nil {
		t.Fatalf("RecordDecisive: %v", err)
	}
	bob, err := l.QueryPlayer(ctx, "Bob")
	if err != nil {
		t.Fatalf("QueryPlayer: %v", err)
	}
	alice, err := l.QueryPlayer(ctx, "Alice")
	if err != nil {
		t.Fatalf("QueryPlayer: %v", err)
	}
	if bob.Wins != 1 || bob.TotalGames != 1 || alice.Losses != 1 || alice.TotalGames != 1 {
		t.Fatalf("unexpected counters: bob=%+v alice=%+v", bob.Entry, alice.Entry)
	}
	if bob.HeadToHead["Alice"].Wins != 1 || alice.HeadToHead["Bob"].Losses != 1 {
		t.Fatalf("unexpected head-to-head")
	}
	checkInvariants(t, l)
}

func TestRecordDraw(t *testing.T) {
	ctx := context.Background()
	l := New(nil)
	if err := l.RecordDraw(ctx, "Alice", "Bob"); err != nil {
		t.Fatalf("RecordDraw: %v", err)
	}
	for _, name := range []string{"Alice", "Bob"} {
		s, err := l.QueryPlayer(ctx, name)
		if err != nil {
			t.Fatalf("QueryPlayer(%s): %v", name, err)
		}
		if s.Draws != 1 || s.TotalGames != 1 || s.Wins != 0 || s.Losses != 0 {
			t.Fatalf("%s: %+v", name, s.Entry)
		}
	}
	checkInvariants(t, l)
}

func TestRejectsInvalidPair(t *testing.T) {
	l := New(nil)
	ctx := context.Background()
	if err := l.RecordDecisive(ctx, "Alice", "Alice"); !errors.Is(err, ErrInvalidPair) {
		t.Fatalf("same name: %v", err)
	}
	if err := l.RecordDraw(ctx, "", "Bob"); !errors.Is(err, ErrInvalidPair) {
		t.Fatalf("empty name: %v", err)
	}
	all, _ := l.Query(ctx)
	if len(all) != 0 {
		t.Fatalf("rejected records must not create entries")
	}
}

func TestQueryOrderingAndTop(t *testing.T) {
	ctx := context.Background()
	l := New(nil)
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(l.RecordDecisive(ctx, "Carol", "Alice"))
	must(l.RecordDecisive(ctx, "Carol", "Bob"))
	must(l.RecordDecisive(ctx, "Bob", "Alice"))
	must(l.RecordDraw(ctx, "Dave", "Alice"))

	all, err := l.Query(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, s := range all {
		names = append(names, s.Name)
	}
	if got := strings.Join(names, ","); got != "Carol,Bob,Dave,Alice" {
		t.Fatalf("order = %s", got)
	}
	top, err := l.QueryTop(ctx, 2)
	if err != nil || len(top) != 2 || top[0].Name != "Carol" {
		t.Fatalf("QueryTop = %v, %v", top, err)
	}
	if none, _ := l.QueryTop(ctx, 0); len(none) != 0 {
		t.Fatalf("QueryTop(0) should be empty")
	}
	if _, err := l.QueryPlayer(ctx, "Nobody"); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}
	checkInvariants(t, l)
}

func TestConcurrentRecordsDoNotLoseUpdates(t *testing.T) {
	ctx := context.Background()
	l := New(NewFileStore(filepath.Join(t.TempDir(), "standings.yaml")))
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.RecordDecisive(ctx, "Alice", "Bob"); err != nil {
				t.Errorf("RecordDecisive: %v", err)
			}
		}()
	}
	wg.Wait()
	alice, err := l.QueryPlayer(ctx, "Alice")
	if err != nil {
		t.Fatal(err)
	}
	if alice.Wins != 20 || alice.HeadToHead["Bob"].Wins != 20 {
		t.Fatalf("lost updates: %+v", alice.Entry)
	}
	checkInvariants(t, l)
}

func TestFileStoreRoundTripIsReadable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "standings.yaml")
	l := New(NewFileStore(path))
	if err := l.RecordDecisive(ctx, "Bob", "Alice"); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), "total_games: 1") || !strings.Contains(string(raw), "head_to_head:") {
		t.Fatalf("unexpected yaml:\n%s", raw)
	}
	reopened := New(NewFileStore(path))
	bob, err := reopened.QueryPlayer(ctx, "Bob")
	if err != nil || bob.Wins != 1 {
		t.Fatalf("reopen: %+v %v", bob, err)
	}
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "absent.yaml"))
	doc, err := s.Load(context.Background())
	if err != nil || doc == nil || len(doc.Players) != 0 {
		t.Fatalf("Load missing = %v, %v", doc, err)
	}
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	ctx := context.Background()
	rdb, err := DialRedis(ctx, "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("DialRedis: %v", err)
	}
	defer rdb.Close()

	l := New(NewRedisStore(rdb, "test:standings"))
	if err := l.RecordDraw(ctx, "Alice", "Bob"); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("test:standings") {
		t.Fatalf("expected key to be written")
	}
	other := New(NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test:standings"))
	bob, err := other.QueryPlayer(ctx, "Bob")
	if err != nil || bob.Draws != 1 {
		t.Fatalf("QueryPlayer via second client: %+v %v", bob, err)
	}
}

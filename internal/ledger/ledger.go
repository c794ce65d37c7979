// Package ledger keeps durable win/loss/draw standings keyed by player name.
// Every update is a single load, mutate and save of the whole document.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/obslog"
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrInvalidPair    = errors.New("ledger needs two distinct non-empty names")
)

// Store persists the whole ledger document.
type Store interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
}

type Ledger struct {
	mu    sync.Mutex
	store Store
}

func New(store Store) *Ledger {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Ledger{store: store}
}

// RecordDecisive credits winner with a win and loser with a loss.
func (l *Ledger) RecordDecisive(ctx context.Context, winner, loser string) error {
	winner, loser = strings.TrimSpace(winner), strings.TrimSpace(loser)
	if err := checkPair(winner, loser); err != nil {
		return err
	}
	return l.update(ctx, func(doc *Document) {
		w := doc.entry(winner)
		lo := doc.entry(loser)
		w.Wins++
		w.TotalGames++
		lo.Losses++
		lo.TotalGames++
		w.versus(loser).Wins++
		lo.versus(winner).Losses++
	}, zap.String("kind", "decisive"), zap.String("winner", winner), zap.String("loser", loser))
}

// RecordDraw credits both players with a draw.
func (l *Ledger) RecordDraw(ctx context.Context, a, b string) error {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if err := checkPair(a, b); err != nil {
		return err
	}
	return l.update(ctx, func(doc *Document) {
		ea := doc.entry(a)
		eb := doc.entry(b)
		ea.Draws++
		ea.TotalGames++
		eb.Draws++
		eb.TotalGames++
		// draws leave head-to-head wins/losses alone but register the pairing
		ea.versus(b)
		eb.versus(a)
	}, zap.String("kind", "draw"), zap.String("a", a), zap.String("b", b))
}

func checkPair(a, b string) error {
	if a == "" || b == "" || a == b {
		return ErrInvalidPair
	}
	return nil
}

func (l *Ledger) update(ctx context.Context, mutate func(*Document), fields ...zap.Field) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	doc, err := l.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	if doc == nil {
		doc = newDocument()
	}
	mutate(doc)
	if err := l.store.Save(ctx, doc); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	obslog.L().Info("ledger_record", fields...)
	return nil
}

// Query returns every standing ordered by wins desc, then fewer losses, then name.
func (l *Ledger) Query(ctx context.Context) ([]Standing, error) {
	l.mu.Lock()
	doc, err := l.store.Load(ctx)
	l.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if doc == nil {
		return []Standing{}, nil
	}
	out := make([]Standing, 0, len(doc.Players))
	for name, e := range doc.Players {
		if e == nil {
			continue
		}
		out = append(out, Standing{Name: name, Entry: e.clone()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		if out[i].Losses != out[j].Losses {
			return out[i].Losses < out[j].Losses
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// QueryTop returns the first n standings; n <= 0 yields an empty list.
func (l *Ledger) QueryTop(ctx context.Context, n int) ([]Standing, error) {
	all, err := l.Query(ctx)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return []Standing{}, nil
	}
	if n < len(all) {
		all = all[:n]
	}
	return all, nil
}

func (l *Ledger) QueryPlayer(ctx context.Context, name string) (*Standing, error) {
	name = strings.TrimSpace(name)
	l.mu.Lock()
	doc, err := l.store.Load(ctx)
	l.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if doc == nil {
		return nil, ErrPlayerNotFound
	}
	e, ok := doc.Players[name]
	if !ok || e == nil {
		return nil, ErrPlayerNotFound
	}
	return &Standing{Name: name, Entry: e.clone()}, nil
}

package pvpchess

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/obslog"
	"github.com/park285/cheese-arena/pkg/chessdto"
)

// Sweep evicts every session idle for longer than idle at now and returns
// the number removed. It takes the same per-session lock as action handlers.
func (m *Manager) Sweep(now time.Time, idle time.Duration) int {
	cutoff := now.Add(-idle)
	evicted := 0
	for _, id := range m.store.ListExpiredBefore(cutoff) {
		s := m.store.Get(id)
		if s == nil {
			continue
		}
		s.mu.Lock()
		if s.closed || !s.lastActivity.Before(cutoff) {
			s.mu.Unlock()
			continue
		}
		ended := &chessdto.GameEnded{
			GameID:  s.id,
			Result:  chessdto.ResultExpired,
			Message: m.text("game_ended.expired", nil, "Game expired after inactivity"),
		}
		seats := s.occupants()
		for _, c := range seats {
			m.send(c, chessdto.EventGameEnded, ended)
		}
		s.end(ReasonAbandonment)
		s.closed = true
		for _, c := range seats {
			m.index.Evict(c, s.id)
		}
		m.store.Remove(s.id)
		idleFor := now.Sub(s.lastActivity)
		s.mu.Unlock()

		evicted++
		obslog.L().Info("pvp_sweep_evict", zap.String("game_id", id), zap.Duration("idle", idleFor), zap.Int("occupants", len(seats)))
	}
	return evicted
}

// Sweeper runs Manager.Sweep on a fixed interval.
type Sweeper struct {
	m        *Manager
	idle     time.Duration
	interval time.Duration

	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

func NewSweeper(m *Manager, idle, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	return &Sweeper{m: m, idle: idle, interval: interval, stopCh: make(chan struct{})}
}

// Start launches the sweep loop; it exits on Stop or when ctx is done.
func (sw *Sweeper) Start(ctx context.Context) {
	sw.wg.Add(1)
	go sw.loop(ctx)
}

func (sw *Sweeper) loop(ctx context.Context) {
	defer sw.wg.Done()
	t := time.NewTicker(sw.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sw.stopCh:
			return
		case <-t.C:
			if n := sw.m.Sweep(sw.m.now(), sw.idle); n > 0 {
				obslog.L().Info("pvp_sweep", zap.Int("evicted", n))
			}
		}
	}
}

// Stop ends the loop and waits for it to exit. Safe to call more than once.
func (sw *Sweeper) Stop() {
	sw.once.Do(func() { close(sw.stopCh) })
	sw.wg.Wait()
}

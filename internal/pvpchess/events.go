package pvpchess

import (
	"context"

	"github.com/park285/cheese-arena/pkg/chessdto"
)

// Notifier delivers events to one connection. Implementations must not block;
// a full or closed queue drops the event.
type Notifier interface {
	Notify(connID string, ev chessdto.Event)
}

// ResultSink receives finished games outside of any session lock.
type ResultSink interface {
	RecordFinished(ctx context.Context, g *FinishedGame) error
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, chessdto.Event) {}

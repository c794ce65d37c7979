// Package eventbus publishes finished games to NATS.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/obslog"
	"github.com/park285/cheese-arena/internal/pvpchess"
)

const DefaultSubject = "arena.game.ended"

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// GameEnded is the message body published for each finished game.
type GameEnded struct {
	GameID    string    `json:"game_id"`
	White     string    `json:"white"`
	Black     string    `json:"black"`
	Result    string    `json:"result"`
	Reason    string    `json:"reason"`
	Winner    string    `json:"winner,omitempty"`
	Loser     string    `json:"loser,omitempty"`
	Plies     int       `json:"plies"`
	MovesUCI  []string  `json:"moves_uci"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// Publisher is a pvpchess.ResultSink backed by NATS.
type Publisher struct {
	nc      conn
	subject string
	closeFn func()
}

// Connect dials NATS with reconnect settings suited to a long-running server.
func Connect(url, subject string) (*Publisher, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("NATS_URL is required")
	}
	nc, err := nats.Connect(url,
		nats.Name("cheese-arena"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				obslog.L().Warn("nats_disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			obslog.L().Info("nats_reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	p := newPublisher(nc, subject)
	p.closeFn = func() {
		if err := nc.Drain(); err != nil {
			nc.Close()
		}
	}
	return p, nil
}

func newPublisher(nc conn, subject string) *Publisher {
	if strings.TrimSpace(subject) == "" {
		subject = DefaultSubject
	}
	return &Publisher{nc: nc, subject: subject}
}

func (p *Publisher) Close() {
	if p != nil && p.closeFn != nil {
		p.closeFn()
	}
}

// RecordFinished publishes g and flushes so delivery errors surface within ctx.
func (p *Publisher) RecordFinished(ctx context.Context, g *pvpchess.FinishedGame) error {
	if p == nil || p.nc == nil || g == nil {
		return nil
	}
	body, err := json.Marshal(GameEnded{
		GameID:    g.ID,
		White:     g.WhiteName,
		Black:     g.BlackName,
		Result:    g.Result,
		Reason:    string(g.Reason),
		Winner:    g.Winner,
		Loser:     g.Loser,
		Plies:     len(g.MovesUCI),
		MovesUCI:  g.MovesUCI,
		StartedAt: g.StartedAt,
		EndedAt:   g.EndedAt,
	})
	if err != nil {
		return err
	}
	if err := p.nc.Publish(p.subject, body); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", p.subject, err)
	}
	obslog.L().Debug("nats_game_published", zap.String("game_id", g.ID), zap.String("subject", p.subject))
	return nil
}

package pvpchess

import (
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/park285/cheese-arena/internal/rules"
	"github.com/park285/cheese-arena/pkg/chessdto"
)

const (
	defaultNameRuneLimit = 24
	maxRawNameBytes      = 256
	duplicateNameSuffix  = " (2)"
)

// Store owns the live sessions. The map lock is never held while taking a
// session lock.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*GameSession
	engine   rules.Engine
	now      func() time.Time
	newID    func() string
}

func NewStore(engine rules.Engine, now func() time.Time) *Store {
	if engine == nil {
		engine = rules.New()
	}
	if now == nil {
		now = time.Now
	}
	return &Store{
		sessions: make(map[string]*GameSession),
		engine:   engine,
		now:      now,
		newID:    uuid.NewString,
	}
}

// Create seats ownerConn at index 0 of a fresh session. ownerName must
// already be sanitized.
func (st *Store) Create(ownerConn, ownerName string) *GameSession {
	now := st.now()
	s := &GameSession{
		id:           st.newID(),
		seats:        [2]string{ownerConn, ""},
		names:        [2]string{ownerName, ""},
		position:     st.engine.InitialPosition(),
		status:       StatusAwaiting,
		createdAt:    now,
		lastActivity: now,
	}
	st.mu.Lock()
	st.sessions[s.id] = s
	st.mu.Unlock()
	return s
}

func (st *Store) Get(id string) *GameSession {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.sessions[strings.TrimSpace(id)]
}

// Join seats conn at index 1. Callers that also bind the connection should
// take the session lock themselves and use GameSession.join.
func (st *Store) Join(id, conn, name string) (*GameSession, error) {
	s := st.Get(id)
	if s == nil {
		return nil, ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.join(conn, name, st.now()); err != nil {
		return nil, err
	}
	return s, nil
}

func (st *Store) Remove(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

func (st *Store) list() []*GameSession {
	st.mu.RLock()
	out := make([]*GameSession, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	st.mu.RUnlock()
	return out
}

// ListExpiredBefore returns ids of sessions whose last activity is before t.
func (st *Store) ListExpiredBefore(t time.Time) []string {
	var ids []string
	for _, s := range st.list() {
		s.mu.Lock()
		if !s.closed && s.lastActivity.Before(t) {
			ids = append(ids, s.id)
		}
		s.mu.Unlock()
	}
	sort.Strings(ids)
	return ids
}

// Counts returns live, awaiting and active session totals.
func (st *Store) Counts() (total, awaiting, active int) {
	for _, s := range st.list() {
		s.mu.Lock()
		if !s.closed {
			total++
			switch s.status {
			case StatusAwaiting:
				awaiting++
			case StatusActive:
				active++
			}
		}
		s.mu.Unlock()
	}
	return total, awaiting, active
}

// Lobby lists sessions waiting for a second player, oldest first.
func (st *Store) Lobby() []chessdto.LobbyEntry {
	out := make([]chessdto.LobbyEntry, 0)
	for _, s := range st.list() {
		s.mu.Lock()
		if !s.closed && s.status == StatusAwaiting {
			out = append(out, chessdto.LobbyEntry{GameID: s.id, Host: s.names[0], CreatedAt: s.createdAt})
		}
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].GameID < out[j].GameID
	})
	return out
}

// SanitizeName collapses whitespace, drops control characters and caps the
// result at limit runes.
func SanitizeName(raw string, limit int) (string, error) {
	if len(raw) > maxRawNameBytes || !utf8.ValidString(raw) {
		return "", ErrInvalidName
	}
	if limit <= 0 {
		limit = defaultNameRuneLimit
	}
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	runes := []rune(cleaned)
	if len(runes) > limit {
		cleaned = strings.TrimSpace(string(runes[:limit]))
	}
	if cleaned == "" {
		return "", ErrInvalidName
	}
	return cleaned, nil
}

func disambiguate(name, host string) string {
	if strings.EqualFold(name, host) {
		return name + duplicateNameSuffix
	}
	return name
}

package pvpchess

import "sync"

type binding struct {
	sessionID string
	evicted   bool
}

// Index maps a connection id to the session it occupies.
type Index struct {
	mu    sync.Mutex
	binds map[string]binding
}

func NewIndex() *Index { return &Index{binds: make(map[string]binding)} }

func (x *Index) Bind(conn, sessionID string) {
	x.mu.Lock()
	x.binds[conn] = binding{sessionID: sessionID}
	x.mu.Unlock()
}

func (x *Index) Unbind(conn string) {
	x.mu.Lock()
	delete(x.binds, conn)
	x.mu.Unlock()
}

// UnbindIf removes the binding only when it still points at sessionID.
func (x *Index) UnbindIf(conn, sessionID string) {
	x.mu.Lock()
	if b, ok := x.binds[conn]; ok && b.sessionID == sessionID {
		delete(x.binds, conn)
	}
	x.mu.Unlock()
}

// Evict keeps a marker for a swept session so the connection's next action
// resolves to a missing session and reports not_found.
func (x *Index) Evict(conn, sessionID string) {
	x.mu.Lock()
	if b, ok := x.binds[conn]; ok && b.sessionID == sessionID {
		x.binds[conn] = binding{sessionID: sessionID, evicted: true}
	}
	x.mu.Unlock()
}

func (x *Index) SessionFor(conn string) (string, bool) {
	x.mu.Lock()
	b, ok := x.binds[conn]
	x.mu.Unlock()
	return b.sessionID, ok
}

func (x *Index) lookup(conn string) (binding, bool) {
	x.mu.Lock()
	b, ok := x.binds[conn]
	x.mu.Unlock()
	return b, ok
}

// Len counts live bindings, excluding eviction markers.
func (x *Index) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	n := 0
	for _, b := range x.binds {
		if !b.evicted {
			n++
		}
	}
	return n
}

package ledger

// Record is a head-to-head tally from the owning player's perspective.
type Record struct {
	Wins   int `yaml:"wins" json:"wins"`
	Losses int `yaml:"losses" json:"losses"`
}

// Entry is one player's aggregate standing.
type Entry struct {
	Wins       int                `yaml:"wins" json:"wins"`
	Losses     int                `yaml:"losses" json:"losses"`
	Draws      int                `yaml:"draws" json:"draws"`
	TotalGames int                `yaml:"total_games" json:"total_games"`
	HeadToHead map[string]*Record `yaml:"head_to_head,omitempty" json:"head_to_head,omitempty"`
}

// Document is the whole persisted ledger keyed by display name.
type Document struct {
	Players map[string]*Entry `yaml:"players" json:"players"`
}

// Standing is an entry paired with its name for ordered listings.
type Standing struct {
	Name  string `yaml:"name" json:"name"`
	Entry `yaml:",inline"`
}

func newDocument() *Document {
	return &Document{Players: make(map[string]*Entry)}
}

func (d *Document) entry(name string) *Entry {
	if d.Players == nil {
		d.Players = make(map[string]*Entry)
	}
	e, ok := d.Players[name]
	if !ok || e == nil {
		e = &Entry{}
		d.Players[name] = e
	}
	return e
}

func (e *Entry) versus(opponent string) *Record {
	if e.HeadToHead == nil {
		e.HeadToHead = make(map[string]*Record)
	}
	r, ok := e.HeadToHead[opponent]
	if !ok || r == nil {
		r = &Record{}
		e.HeadToHead[opponent] = r
	}
	return r
}

func (e *Entry) clone() Entry {
	out := *e
	if e.HeadToHead != nil {
		out.HeadToHead = make(map[string]*Record, len(e.HeadToHead))
		for k, v := range e.HeadToHead {
			if v == nil {
				continue
			}
			r := *v
			out.HeadToHead[k] = &r
		}
	}
	return out
}

package model

import "sort"

// Roster is the full in-memory mapping from player identity to record for
// one ladder. It is obtained from a repository Load and only becomes durable
// through Save.
type Roster map[string]*Player

// Register creates a default record for id if absent and returns the record.
// Existing records are left untouched.
func (r Roster) Register(id string, startingRating int) *Player {
	if p, ok := r[id]; ok {
		p.EnsureMaps()
		return p
	}
	p := NewPlayer(id, startingRating)
	r[id] = p
	return p
}

// Get returns a copy of the record for id.
func (r Roster) Get(id string) (Player, bool) {
	p, ok := r[id]
	if !ok {
		return Player{}, false
	}
	return *p.Clone(), true
}

// IDs returns all identities in ascending order.
func (r Roster) IDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone deep-copies the roster.
func (r Roster) Clone() Roster {
	c := make(Roster, len(r))
	for id, p := range r {
		c[id] = p.Clone()
	}
	return c
}

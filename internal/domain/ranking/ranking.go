// Package ranking derives leaderboards and pairwise summaries from a roster.
//
// Ordering: value DESC, then player id ASC. The id tie-break makes every
// listing deterministic regardless of map iteration order.
package ranking

import (
	"fmt"
	"sort"

	"github.com/okian/rally/internal/domain/model"
)

// Entry is a leaderboard row.
type Entry struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"player_id"`
	Value    int    `json:"value"`
	Rating   int    `json:"rating"`
}

// less reports whether (aVal, aID) ranks ahead of (bVal, bID).
func less(aVal int, aID string, bVal int, bID string) bool {
	if aVal != bVal {
		return aVal > bVal
	}
	return aID < bID
}

// rankBy orders every player by key.
func rankBy(roster model.Roster, key func(*model.Player) int) []Entry {
	out := make([]Entry, 0, len(roster))
	for id, p := range roster {
		out = append(out, Entry{PlayerID: id, Value: key(p), Rating: p.Rating})
	}
	sort.Slice(out, func(i, j int) bool {
		return less(out[i].Value, out[i].PlayerID, out[j].Value, out[j].PlayerID)
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func top(entries []Entry, n int) []Entry {
	if n < 0 {
		n = 0
	}
	if n < len(entries) {
		entries = entries[:n]
	}
	return entries
}

func byRating(p *model.Player) int { return p.Rating }

// Standings returns every player ordered by rating.
func Standings(roster model.Roster) []Entry {
	return rankBy(roster, byRating)
}

// Rank returns the standing of id: one plus the number of players ordered
// ahead of it.
func Rank(roster model.Roster, id string) (Entry, error) {
	for _, e := range Standings(roster) {
		if e.PlayerID == id {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%s: %w", id, ErrNotFound)
}

// Neighborhood is a player's standing with the players directly around it.
type Neighborhood struct {
	Above *Entry `json:"above,omitempty"`
	Self  Entry  `json:"self"`
	Below *Entry `json:"below,omitempty"`
}

// Neighbors returns id's standing and its immediate neighbours.
func Neighbors(roster model.Roster, id string) (Neighborhood, error) {
	all := Standings(roster)
	for i, e := range all {
		if e.PlayerID != id {
			continue
		}
		n := Neighborhood{Self: e}
		if i > 0 {
			above := all[i-1]
			n.Above = &above
		}
		if i < len(all)-1 {
			below := all[i+1]
			n.Below = &below
		}
		return n, nil
	}
	return Neighborhood{}, fmt.Errorf("%s: %w", id, ErrNotFound)
}

// TopN returns the n highest rated players.
func TopN(roster model.Roster, n int) []Entry {
	return top(Standings(roster), n)
}

// TopGainers returns the n players with the largest lifetime gain.
func TopGainers(roster model.Roster, n int) []Entry {
	return top(rankBy(roster, func(p *model.Player) int { return p.AllTimeGain }), n)
}

// TopLosers returns the n players with the largest lifetime loss.
func TopLosers(roster model.Roster, n int) []Entry {
	return top(rankBy(roster, func(p *model.Player) int { return p.AllTimeLoss }), n)
}

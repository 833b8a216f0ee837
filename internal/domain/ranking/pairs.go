package ranking

import (
	"fmt"
	"sort"

	"github.com/okian/rally/internal/domain/model"
)

// Side is one player of a pairwise summary.
type Side struct {
	PlayerID string `json:"player_id"`
	Rank     int    `json:"rank"`
	Rating   int    `json:"rating"`
	Wins     int    `json:"wins"`
}

// H2H summarizes the games between two players.
type H2H struct {
	A     Side `json:"a"`
	B     Side `json:"b"`
	Games int  `json:"games"`
}

// HeadToHead returns the record between a and b. An unplayed pair reports
// zero wins on both sides.
func HeadToHead(roster model.Roster, a, b string) (H2H, error) {
	if a == b {
		return H2H{}, fmt.Errorf("%s: %w", a, ErrSamePlayer)
	}
	ra, err := Rank(roster, a)
	if err != nil {
		return H2H{}, err
	}
	rb, err := Rank(roster, b)
	if err != nil {
		return H2H{}, err
	}
	aWins := roster[a].HeadToHead[b].Wins
	bWins := roster[b].HeadToHead[a].Wins
	return H2H{
		A:     Side{PlayerID: a, Rank: ra.Rank, Rating: ra.Rating, Wins: aWins},
		B:     Side{PlayerID: b, Rank: rb.Rank, Rating: rb.Rating, Wins: bWins},
		Games: aWins + bWins,
	}, nil
}

// Rivalry is an unordered pair with at least one recorded game. Leader is
// the side with more wins; ties keep the lower id as leader.
type Rivalry struct {
	Leader  Side `json:"leader"`
	Trailer Side `json:"trailer"`
	Games   int  `json:"games"`

	lo, hi   string
	bestWins int
}

// Rivalries returns the n pairs with the most games, then the most wins by
// either side. Each unordered pair appears once.
func Rivalries(roster model.Roster, n int) []Rivalry {
	ranks := make(map[string]int, len(roster))
	for _, e := range Standings(roster) {
		ranks[e.PlayerID] = e.Rank
	}
	seen := make(map[[2]string]struct{})
	var out []Rivalry
	for id, p := range roster {
		for opp := range p.HeadToHead {
			if opp == id {
				continue
			}
			lo, hi := id, opp
			if hi < lo {
				lo, hi = hi, lo
			}
			key := [2]string{lo, hi}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}

			var loWins, hiWins int
			if pl, ok := roster[lo]; ok {
				loWins = pl.HeadToHead[hi].Wins
			}
			if ph, ok := roster[hi]; ok {
				hiWins = ph.HeadToHead[lo].Wins
			}
			games := loWins + hiWins
			if games == 0 {
				continue
			}
			r := Rivalry{Games: games, lo: lo, hi: hi, bestWins: max(loWins, hiWins)}
			loSide := side(roster, ranks, lo, loWins)
			hiSide := side(roster, ranks, hi, hiWins)
			if loWins >= hiWins {
				r.Leader, r.Trailer = loSide, hiSide
			} else {
				r.Leader, r.Trailer = hiSide, loSide
			}
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Games != b.Games {
			return a.Games > b.Games
		}
		if a.bestWins != b.bestWins {
			return a.bestWins > b.bestWins
		}
		if a.lo != b.lo {
			return a.lo < b.lo
		}
		return a.hi < b.hi
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

func side(roster model.Roster, ranks map[string]int, id string, wins int) Side {
	s := Side{PlayerID: id, Rank: ranks[id], Wins: wins}
	if p, ok := roster[id]; ok {
		s.Rating = p.Rating
	}
	return s
}

// Duo is a doubles partnership.
type Duo struct {
	Players [2]string `json:"players"`
	Wins    int       `json:"wins"`
	Losses  int       `json:"losses"`
}

// Duos returns the n partnerships with the most joint wins. Pairs that only
// ever lost together are listed after every pair with a win.
func Duos(roster model.Roster, n int) []Duo {
	pairs := make(map[[2]string]*Duo)
	get := func(a, b string) *Duo {
		if b < a {
			a, b = b, a
		}
		k := [2]string{a, b}
		d, ok := pairs[k]
		if !ok {
			d = &Duo{Players: k}
			pairs[k] = d
		}
		return d
	}
	// Partner counts are reciprocal, so reading the lower id's side is enough.
	for id, p := range roster {
		for partner, wins := range p.Partners {
			if id < partner {
				get(id, partner).Wins = wins
			}
		}
		for partner, losses := range p.PartnerLosses {
			if id < partner {
				get(id, partner).Losses = losses
			}
		}
	}
	out := make([]Duo, 0, len(pairs))
	for _, d := range pairs {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.Losses != b.Losses {
			return a.Losses < b.Losses
		}
		if a.Players[0] != b.Players[0] {
			return a.Players[0] < b.Players[0]
		}
		return a.Players[1] < b.Players[1]
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

package rating

import (
	"fmt"

	"github.com/okian/rally/internal/domain/model"
)

// DoublesResult describes an applied 2v2 match.
type DoublesResult struct {
	MatchID   string
	Winners   [2]string
	Losers    [2]string
	Before    map[string]int
	After     map[string]int
	WinnerAvg float64
	LoserAvg  float64
	DeltaWin  int
	DeltaLoss int

	// Joint record of each pair after the match.
	WinnerPair model.Record
	LoserPair  model.Record
}

// ProcessDoubles applies a doubles result where a1/a2 beat b1/b2. Team
// strength is the average of the members' ratings; the resulting deltas are
// applied to every member and floor-clamped per player.
func (e *Engine) ProcessDoubles(roster model.Roster, a1, a2, b1, b2 string) (DoublesResult, error) {
	ids := [4]string{a1, a2, b1, b2}
	seen := make(map[string]struct{}, len(ids))
	players := make([]*model.Player, len(ids))
	for i, id := range ids {
		if _, dup := seen[id]; dup {
			return DoublesResult{}, fmt.Errorf("%s: %w", id, ErrDuplicatePlayer)
		}
		seen[id] = struct{}{}
		p, ok := roster[id]
		if !ok {
			return DoublesResult{}, fmt.Errorf("%s: %w", id, ErrUnregistered)
		}
		players[i] = p
	}
	for _, p := range players {
		p.EnsureMaps()
	}
	winners, losers := players[:2], players[2:]

	res := DoublesResult{
		MatchID: e.newID(),
		Winners: [2]string{a1, a2},
		Losers:  [2]string{b1, b2},
		Before:  make(map[string]int, len(ids)),
		After:   make(map[string]int, len(ids)),
	}
	for _, p := range players {
		res.Before[p.ID] = p.Rating
	}

	res.WinnerAvg = float64(winners[0].Rating+winners[1].Rating) / 2
	res.LoserAvg = float64(losers[0].Rating+losers[1].Rating) / 2
	d := e.Delta(res.WinnerAvg, res.LoserAvg)
	res.DeltaWin, res.DeltaLoss = d.Gain, d.Loss

	for _, p := range winners {
		p.Rating = e.clamp(p.Rating + d.Gain)
		p.ObservePeak()
		p.Wins++
		p.Streak = winStreak(p.Streak)
		p.AllTimeGain += d.Gain
	}
	for _, p := range losers {
		p.Rating = e.clamp(p.Rating - d.Loss)
		p.ObservePeak()
		p.Losses++
		p.Streak = 0
		p.AllTimeLoss += d.Loss
	}

	winners[0].Partners[a2]++
	winners[1].Partners[a1]++
	losers[0].PartnerLosses[b2]++
	losers[1].PartnerLosses[b1]++

	for _, p := range players {
		res.After[p.ID] = p.Rating
	}
	res.WinnerPair = model.Record{Wins: winners[0].Partners[a2], Losses: winners[0].PartnerLosses[a2]}
	res.LoserPair = model.Record{Wins: losers[0].Partners[b2], Losses: losers[0].PartnerLosses[b2]}
	return res, nil
}

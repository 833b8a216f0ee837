package rating

import (
	"fmt"

	"github.com/okian/rally/internal/domain/history"
	"github.com/okian/rally/internal/domain/model"
)

// Projection is the rating portion of a singles match: what would change,
// without any bookkeeping.
type Projection struct {
	WinnerBefore int
	LoserBefore  int
	WinnerAfter  int
	LoserAfter   int
	EloGain      int // bonus excluded
	Bonus        int
	EloLoss      int
	Delta        Delta
}

// TotalGain is the winner's nominal gain including the bonus.
func (p Projection) TotalGain() int { return p.EloGain + p.Bonus }

// MatchResult describes an applied singles match.
type MatchResult struct {
	Projection
	MatchID    string
	WinnerID   string
	LoserID    string
	NewStreak  int          // winner's streak after the match
	HeadToHead model.Record // winner's record against the loser after the match
}

func (e *Engine) project(w, l *model.Player) Projection {
	d := e.Delta(float64(w.Rating), float64(l.Rating))
	bonus := e.bonusFor(w.Wins)
	return Projection{
		WinnerBefore: w.Rating,
		LoserBefore:  l.Rating,
		WinnerAfter:  e.clamp(w.Rating + d.Gain + bonus),
		LoserAfter:   e.clamp(l.Rating - d.Loss),
		EloGain:      d.Gain,
		Bonus:        bonus,
		EloLoss:      d.Loss,
		Delta:        d,
	}
}

func (e *Engine) pair(roster model.Roster, winnerID, loserID string) (*model.Player, *model.Player, error) {
	if winnerID == loserID {
		return nil, nil, fmt.Errorf("%s: %w", winnerID, ErrSamePlayer)
	}
	w, ok := roster[winnerID]
	if !ok {
		return nil, nil, fmt.Errorf("winner %s: %w", winnerID, ErrUnregistered)
	}
	l, ok := roster[loserID]
	if !ok {
		return nil, nil, fmt.Errorf("loser %s: %w", loserID, ErrUnregistered)
	}
	w.EnsureMaps()
	l.EnsureMaps()
	return w, l, nil
}

// ProcessMatch applies a singles result to roster. Scores are informational
// and only recorded in history. Both players must be registered; on error
// roster is left untouched.
func (e *Engine) ProcessMatch(roster model.Roster, winnerID, loserID string, scoreW, scoreL int) (MatchResult, error) {
	w, l, err := e.pair(roster, winnerID, loserID)
	if err != nil {
		return MatchResult{}, err
	}
	if scoreW < 0 || scoreL < 0 {
		return MatchResult{}, fmt.Errorf("score %d-%d: %w", scoreW, scoreL, ErrInvalidInput)
	}

	p := e.project(w, l)

	w.Rating = p.WinnerAfter
	l.Rating = p.LoserAfter
	w.ObservePeak()
	l.ObservePeak()

	w.Wins++
	l.Losses++
	w.Streak = winStreak(w.Streak)
	l.Streak = 0

	w.AllTimeGain += p.TotalGain()
	l.AllTimeLoss += p.EloLoss

	wr := w.HeadToHead[loserID]
	wr.Wins++
	w.HeadToHead[loserID] = wr
	lr := l.HeadToHead[winnerID]
	lr.Losses++
	l.HeadToHead[winnerID] = lr

	id := e.newID()
	history.Record(w, l, history.Match{
		MatchID:           id,
		WinnerID:          winnerID,
		LoserID:           loserID,
		WinnerScore:       scoreW,
		LoserScore:        scoreL,
		WinnerRatingAfter: w.Rating,
		LoserRatingAfter:  l.Rating,
		At:                e.now(),
	}, e.historyLimit)

	return MatchResult{
		Projection: p,
		MatchID:    id,
		WinnerID:   winnerID,
		LoserID:    loserID,
		NewStreak:  w.Streak,
		HeadToHead: wr,
	}, nil
}

// Simulate projects a singles result without mutating roster.
func (e *Engine) Simulate(roster model.Roster, winnerID, loserID string) (Projection, error) {
	w, l, err := e.pair(roster, winnerID, loserID)
	if err != nil {
		return Projection{}, err
	}
	return e.project(w, l), nil
}

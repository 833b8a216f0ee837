// Package history maintains the bounded per-player match log.
package history

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/rally/internal/domain/model"
)

// DefaultLimit is the number of entries kept per player.
const DefaultLimit = 10

// Append inserts e at the head of p's history and drops the oldest entries
// beyond limit. A non-positive limit falls back to DefaultLimit.
func Append(p *model.Player, e model.HistoryEntry, limit int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	h := make([]model.HistoryEntry, 0, min(len(p.History)+1, limit))
	h = append(h, e)
	for _, old := range p.History {
		if len(h) == limit {
			break
		}
		h = append(h, old)
	}
	p.History = h
}

// Match describes a completed match for recording on both sides.
type Match struct {
	MatchID           string
	WinnerID          string
	LoserID           string
	WinnerScore       int
	LoserScore        int
	WinnerRatingAfter int
	LoserRatingAfter  int
	At                time.Time
}

// Record appends the mirrored entries for m to the winner and the loser.
func Record(winner, loser *model.Player, m Match, limit int) {
	if m.MatchID == "" {
		m.MatchID = uuid.NewString()
	}
	if m.At.IsZero() {
		m.At = time.Now().UTC()
	}
	Append(winner, model.HistoryEntry{
		Version:             model.HistorySchemaVersion,
		MatchID:             m.MatchID,
		Result:              model.Win,
		RatingAfter:         m.WinnerRatingAfter,
		OpponentID:          m.LoserID,
		OpponentRatingAfter: m.LoserRatingAfter,
		Score:               m.WinnerScore,
		OpponentScore:       m.LoserScore,
		RecordedAt:          m.At,
	}, limit)
	Append(loser, model.HistoryEntry{
		Version:             model.HistorySchemaVersion,
		MatchID:             m.MatchID,
		Result:              model.Loss,
		RatingAfter:         m.LoserRatingAfter,
		OpponentID:          m.WinnerID,
		OpponentRatingAfter: m.WinnerRatingAfter,
		Score:               m.LoserScore,
		OpponentScore:       m.WinnerScore,
		RecordedAt:          m.At,
	}, limit)
}

// Backfill records a historical match without touching any rating field.
// Both players must already be registered in roster.
func Backfill(roster model.Roster, m Match, limit int) error {
	if m.WinnerID == m.LoserID {
		return fmt.Errorf("backfill %s: %w", m.WinnerID, ErrSamePlayer)
	}
	w, ok := roster[m.WinnerID]
	if !ok {
		return fmt.Errorf("backfill winner %s: %w", m.WinnerID, ErrUnregistered)
	}
	l, ok := roster[m.LoserID]
	if !ok {
		return fmt.Errorf("backfill loser %s: %w", m.LoserID, ErrUnregistered)
	}
	if m.WinnerRatingAfter < 0 || m.LoserRatingAfter < 0 || m.WinnerScore < 0 || m.LoserScore < 0 {
		return fmt.Errorf("backfill %s vs %s: %w", m.WinnerID, m.LoserID, ErrInvalidEntry)
	}
	Record(w, l, m, limit)
	return nil
}

// Clear drops every entry of the registered player id and returns how many
// were removed. Ratings and head-to-head records are untouched.
func Clear(roster model.Roster, id string) (int, error) {
	p, ok := roster[id]
	if !ok {
		return 0, fmt.Errorf("clear %s: %w", id, ErrUnregistered)
	}
	n := len(p.History)
	p.History = nil
	return n, nil
}

// Recent returns p's history, most recent first. Any entry that fails schema
// validation aborts the query.
func Recent(p *model.Player) ([]model.HistoryEntry, error) {
	out := make([]model.HistoryEntry, len(p.History))
	for i, e := range p.History {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("player %s entry %d: %w", p.ID, i, err)
		}
		out[i] = e
	}
	return out, nil
}

// Trend returns the post-match ratings of entries, oldest first.
func Trend(entries []model.HistoryEntry) []int {
	t := make([]int, len(entries))
	for i, e := range entries {
		t[len(entries)-1-i] = e.RatingAfter
	}
	return t
}

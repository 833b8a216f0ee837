package service

import (
	"context"
	"fmt"

	"github.com/okian/rally/internal/domain/history"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/ranking"
)

// PlayerStats is a player's record with its standing on the ladder.
type PlayerStats struct {
	Player   model.Player
	Standing ranking.Neighborhood
	WinRate  float64 // wins / games, 0 before the first game
}

// Stats returns the record and standing of id on ladder.
func (s *Service) Stats(ctx context.Context, ladder model.Ladder, id string) (PlayerStats, error) {
	id, err := normalizeID(id)
	if err != nil {
		return PlayerStats{}, err
	}
	var out PlayerStats
	err = s.read(ctx, ladder, func(roster model.Roster) error {
		p, ok := roster.Get(id)
		if !ok {
			return fmt.Errorf("%s: %w", id, ranking.ErrNotFound)
		}
		n, err := ranking.Neighbors(roster, id)
		if err != nil {
			return err
		}
		out = PlayerStats{Player: p, Standing: n}
		if games := p.Wins + p.Losses; games > 0 {
			out.WinRate = float64(p.Wins) / float64(games)
		}
		return nil
	})
	return out, err
}

// PlayerHistory is a validated match log with the rating trend it implies.
type PlayerHistory struct {
	PlayerID string
	Entries  []model.HistoryEntry // most recent first
	Trend    []int                // post-match ratings, oldest first
}

// History returns id's singles match log. An entry that does not carry the
// current field set fails the whole query with model.ErrIncompatibleHistory.
func (s *Service) History(ctx context.Context, id string) (PlayerHistory, error) {
	id, err := normalizeID(id)
	if err != nil {
		return PlayerHistory{}, err
	}
	var out PlayerHistory
	err = s.read(ctx, model.Singles, func(roster model.Roster) error {
		p, ok := roster[id]
		if !ok {
			return fmt.Errorf("%s: %w", id, ranking.ErrNotFound)
		}
		entries, err := history.Recent(p)
		if err != nil {
			return err
		}
		out = PlayerHistory{PlayerID: id, Entries: entries, Trend: history.Trend(entries)}
		return nil
	})
	return out, err
}

// Leaderboard returns the top n players of ladder by rating.
func (s *Service) Leaderboard(ctx context.Context, ladder model.Ladder, n int) ([]ranking.Entry, error) {
	return s.list(ctx, ladder, n, ranking.TopN)
}

// Gainers returns the top n players of ladder by lifetime gain.
func (s *Service) Gainers(ctx context.Context, ladder model.Ladder, n int) ([]ranking.Entry, error) {
	return s.list(ctx, ladder, n, ranking.TopGainers)
}

// Losers returns the top n players of ladder by lifetime loss.
func (s *Service) Losers(ctx context.Context, ladder model.Ladder, n int) ([]ranking.Entry, error) {
	return s.list(ctx, ladder, n, ranking.TopLosers)
}

func (s *Service) list(ctx context.Context, ladder model.Ladder, n int, by func(model.Roster, int) []ranking.Entry) ([]ranking.Entry, error) {
	var out []ranking.Entry
	err := s.read(ctx, ladder, func(roster model.Roster) error {
		out = by(roster, s.limit(n))
		return nil
	})
	return out, err
}

// HeadToHead summarizes the singles games between a and b.
func (s *Service) HeadToHead(ctx context.Context, a, b string) (ranking.H2H, error) {
	var err error
	if a, err = normalizeID(a); err != nil {
		return ranking.H2H{}, err
	}
	if b, err = normalizeID(b); err != nil {
		return ranking.H2H{}, err
	}
	var out ranking.H2H
	err = s.read(ctx, model.Singles, func(roster model.Roster) error {
		var err error
		out, err = ranking.HeadToHead(roster, a, b)
		return err
	})
	return out, err
}

// Rivalries returns the n most played singles pairs.
func (s *Service) Rivalries(ctx context.Context, n int) ([]ranking.Rivalry, error) {
	var out []ranking.Rivalry
	err := s.read(ctx, model.Singles, func(roster model.Roster) error {
		out = ranking.Rivalries(roster, s.limit(n))
		return nil
	})
	return out, err
}

// Duos returns the n most successful doubles partnerships.
func (s *Service) Duos(ctx context.Context, n int) ([]ranking.Duo, error) {
	var out []ranking.Duo
	err := s.read(ctx, model.Doubles, func(roster model.Roster) error {
		out = ranking.Duos(roster, s.limit(n))
		return nil
	})
	return out, err
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	stats := map[string]interface{}{
		"dedupeSize":      s.dedupeSize,
		"reportsTracked":  s.deduper.Size(),
		"startingRating":  s.engine.StartingRating(),
		"ratingFloor":     s.engine.Floor(),
		"historyLimit":    s.engine.HistoryLimit(),
		"maxListingLimit": s.maxLimit,
	}
	for _, ladder := range []model.Ladder{model.Singles, model.Doubles} {
		key := ladder.String() + "Players"
		err := s.read(ctx, ladder, func(roster model.Roster) error {
			stats[key] = len(roster)
			return nil
		})
		if err != nil {
			stats[key] = -1
		}
	}
	return stats
}

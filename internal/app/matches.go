package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/rally/internal/domain/history"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/rating"
	"github.com/okian/rally/pkg/logger"
	"github.com/okian/rally/pkg/metrics"
)

// MatchReport is a reported singles result.
type MatchReport struct {
	ReportID    string // optional idempotency key
	WinnerID    string
	LoserID     string
	WinnerScore int
	LoserScore  int

	// Optional per-set breakdown, comma separated, winner's sets first.
	SetCount   int
	WinnerSets string
	LoserSets  string
}

// MatchOutcome is an applied singles result.
type MatchOutcome struct {
	rating.MatchResult
	Sets []rating.SetScore
}

// RecordMatch registers both players if needed and applies a singles
// result. A report id that was already applied returns ErrDuplicateReport
// and changes nothing.
func (s *Service) RecordMatch(ctx context.Context, rep MatchReport) (MatchOutcome, error) {
	start := time.Now()
	ladder := model.Singles

	winner, err := normalizeID(rep.WinnerID)
	if err != nil {
		s.reject(ctx, ladder, "match", err)
		return MatchOutcome{}, err
	}
	loser, err := normalizeID(rep.LoserID)
	if err != nil {
		s.reject(ctx, ladder, "match", err)
		return MatchOutcome{}, err
	}
	sets, err := validateScores(rep.WinnerScore, rep.LoserScore, rep.SetCount, rep.WinnerSets, rep.LoserSets)
	if err != nil {
		s.reject(ctx, ladder, "match", err)
		return MatchOutcome{}, err
	}

	var res rating.MatchResult
	err = s.mutateReport(ctx, ladder, rep.ReportID, func(roster model.Roster) error {
		if winner != loser {
			s.engine.Register(roster, winner)
			s.engine.Register(roster, loser)
		}
		var err error
		res, err = s.engine.ProcessMatch(roster, winner, loser, rep.WinnerScore, rep.LoserScore)
		return err
	})
	if errors.Is(err, ErrDuplicateReport) {
		return MatchOutcome{}, err
	}
	if err != nil {
		s.reject(ctx, ladder, "match", err)
		return MatchOutcome{}, err
	}

	metrics.RecordMatchProcessed(ladder.String(), res.TotalGain(), res.EloLoss, elapsedMs(start))
	s.logger.Info(ctx, "match recorded",
		logger.String("match_id", res.MatchID),
		logger.String("winner", winner),
		logger.String("loser", loser),
		logger.Int("winner_rating", res.WinnerAfter),
		logger.Int("loser_rating", res.LoserAfter),
		logger.Int("gain", res.EloGain),
		logger.Int("bonus", res.Bonus),
		logger.Int("loss", res.EloLoss))
	return MatchOutcome{MatchResult: res, Sets: sets}, nil
}

// validateScores checks the reported totals and the optional set breakdown.
func validateScores(winnerScore, loserScore, setCount int, winnerSets, loserSets string) ([]rating.SetScore, error) {
	if winnerScore < 0 || loserScore < 0 {
		return nil, fmt.Errorf("score %d-%d: %w", winnerScore, loserScore, rating.ErrInvalidInput)
	}
	return rating.ParseSetScores(setCount, winnerSets, loserSets)
}

// DoublesReport is a reported 2v2 result: Winners beat Losers.
type DoublesReport struct {
	ReportID    string
	Winners     [2]string
	Losers      [2]string
	WinnerScore int
	LoserScore  int

	// Optional per-set breakdown, as in MatchReport.
	SetCount   int
	WinnerSets string
	LoserSets  string
}

// DoublesOutcome is an applied doubles result with the reported score.
type DoublesOutcome struct {
	rating.DoublesResult
	WinnerScore int
	LoserScore  int
	Sets        []rating.SetScore
}

// RecordDoubles registers all four players if needed and applies a doubles
// result on the doubles ladder. Report ids behave as in RecordMatch.
func (s *Service) RecordDoubles(ctx context.Context, rep DoublesReport) (DoublesOutcome, error) {
	start := time.Now()
	ladder := model.Doubles

	var ids [4]string
	for i, raw := range []string{rep.Winners[0], rep.Winners[1], rep.Losers[0], rep.Losers[1]} {
		id, err := normalizeID(raw)
		if err != nil {
			s.reject(ctx, ladder, "doubles", err)
			return DoublesOutcome{}, err
		}
		ids[i] = id
	}
	sets, err := validateScores(rep.WinnerScore, rep.LoserScore, rep.SetCount, rep.WinnerSets, rep.LoserSets)
	if err != nil {
		s.reject(ctx, ladder, "doubles", err)
		return DoublesOutcome{}, err
	}

	var res rating.DoublesResult
	err = s.mutateReport(ctx, ladder, rep.ReportID, func(roster model.Roster) error {
		for _, id := range ids {
			s.engine.Register(roster, id)
		}
		var err error
		res, err = s.engine.ProcessDoubles(roster, ids[0], ids[1], ids[2], ids[3])
		return err
	})
	if errors.Is(err, ErrDuplicateReport) {
		return DoublesOutcome{}, err
	}
	if err != nil {
		s.reject(ctx, ladder, "doubles", err)
		return DoublesOutcome{}, err
	}

	metrics.RecordMatchProcessed(ladder.String(), res.DeltaWin, res.DeltaLoss, elapsedMs(start))
	s.logger.Info(ctx, "doubles recorded",
		logger.String("match_id", res.MatchID),
		logger.Any("winners", res.Winners),
		logger.Any("losers", res.Losers),
		logger.Int("winner_score", rep.WinnerScore),
		logger.Int("loser_score", rep.LoserScore),
		logger.Int("delta_win", res.DeltaWin),
		logger.Int("delta_loss", res.DeltaLoss))
	return DoublesOutcome{
		DoublesResult: res,
		WinnerScore:   rep.WinnerScore,
		LoserScore:    rep.LoserScore,
		Sets:          sets,
	}, nil
}

// LogHistory backfills a singles history entry for two registered players
// without touching any rating field.
func (s *Service) LogHistory(ctx context.Context, m history.Match) (history.Match, error) {
	ladder := model.Singles
	var err error
	if m.WinnerID, err = normalizeID(m.WinnerID); err != nil {
		s.reject(ctx, ladder, "history", err)
		return history.Match{}, err
	}
	if m.LoserID, err = normalizeID(m.LoserID); err != nil {
		s.reject(ctx, ladder, "history", err)
		return history.Match{}, err
	}
	if m.At.IsZero() {
		m.At = time.Now().UTC()
	}
	if m.MatchID == "" {
		m.MatchID = s.engine.NewMatchID()
	}

	err = s.mutate(ctx, ladder, func(roster model.Roster) error {
		return history.Backfill(roster, m, s.engine.HistoryLimit())
	})
	if err != nil {
		s.reject(ctx, ladder, "history", err)
		return history.Match{}, err
	}
	metrics.RecordHistoryBackfill(ladder.String())
	s.logger.Info(ctx, "history backfilled",
		logger.String("match_id", m.MatchID),
		logger.String("winner", m.WinnerID),
		logger.String("loser", m.LoserID))
	return m, nil
}

// Simulate projects a singles result without persisting anything. Players
// that are not registered yet are projected from the starting rating.
func (s *Service) Simulate(ctx context.Context, winnerID, loserID string) (rating.Projection, error) {
	winner, err := normalizeID(winnerID)
	if err != nil {
		return rating.Projection{}, err
	}
	loser, err := normalizeID(loserID)
	if err != nil {
		return rating.Projection{}, err
	}

	var p rating.Projection
	err = s.read(ctx, model.Singles, func(roster model.Roster) error {
		if winner != loser {
			for _, id := range []string{winner, loser} {
				if _, ok := roster[id]; !ok {
					s.engine.Register(roster, id)
				}
			}
		}
		var err error
		p, err = s.engine.Simulate(roster, winner, loser)
		return err
	})
	return p, err
}

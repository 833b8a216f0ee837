package service

import (
	"context"

	"github.com/okian/rally/internal/domain/history"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/rating"
	"github.com/okian/rally/pkg/logger"
	"github.com/okian/rally/pkg/metrics"
)

// Register creates a default record for id on ladder if absent. created is
// false when the player already existed; existing stats are never reset.
func (s *Service) Register(ctx context.Context, ladder model.Ladder, id string) (p model.Player, created bool, err error) {
	if id, err = normalizeID(id); err != nil {
		return model.Player{}, false, err
	}
	err = s.mutate(ctx, ladder, func(roster model.Roster) error {
		_, exists := roster[id]
		created = !exists
		p = *s.engine.Register(roster, id).Clone()
		return nil
	})
	if err != nil {
		return model.Player{}, false, err
	}
	if created {
		s.logger.Info(ctx, "player registered",
			logger.String("ladder", ladder.String()),
			logger.String("player", id))
	}
	return p, created, nil
}

// SetStat overrides one counter of a registered player.
func (s *Service) SetStat(ctx context.Context, ladder model.Ladder, id string, field rating.Field, op rating.Op, amount int) (rating.StatChange, error) {
	id, err := normalizeID(id)
	if err != nil {
		s.reject(ctx, ladder, "set stat", err)
		return rating.StatChange{}, err
	}
	var change rating.StatChange
	err = s.mutate(ctx, ladder, func(roster model.Roster) error {
		var err error
		change, err = s.engine.SetStat(roster, id, field, op, amount)
		return err
	})
	if err != nil {
		s.reject(ctx, ladder, "set stat", err)
		return rating.StatChange{}, err
	}
	metrics.RecordAdminOverride("stat")
	s.logger.Info(ctx, "stat overridden",
		logger.String("ladder", ladder.String()),
		logger.String("player", id),
		logger.String("field", field.String()),
		logger.String("op", op.String()),
		logger.Int("old", change.Old),
		logger.Int("new", change.New))
	return change, nil
}

// SetPeak sets a player's peak rating. A negative peak is rejected; a peak
// below the current rating is raised to it.
func (s *Service) SetPeak(ctx context.Context, ladder model.Ladder, id string, peak int) (rating.StatChange, error) {
	return s.SetStat(ctx, ladder, id, rating.FieldPeakRating, rating.OpSet, peak)
}

// ModifyHeadToHead edits a's singles wins or losses against b; b's record
// is mirrored.
func (s *Service) ModifyHeadToHead(ctx context.Context, a, b string, field rating.Field, op rating.Op, amount int) (model.Record, error) {
	ladder := model.Singles
	var err error
	if a, err = normalizeID(a); err != nil {
		s.reject(ctx, ladder, "head-to-head edit", err)
		return model.Record{}, err
	}
	if b, err = normalizeID(b); err != nil {
		s.reject(ctx, ladder, "head-to-head edit", err)
		return model.Record{}, err
	}
	var rec model.Record
	err = s.mutate(ctx, ladder, func(roster model.Roster) error {
		var err error
		rec, err = s.engine.ModifyHeadToHead(roster, a, b, field, op, amount)
		return err
	})
	if err != nil {
		s.reject(ctx, ladder, "head-to-head edit", err)
		return model.Record{}, err
	}
	metrics.RecordAdminOverride("head_to_head")
	s.logger.Info(ctx, "head-to-head overridden",
		logger.String("player", a),
		logger.String("opponent", b),
		logger.Int("wins", rec.Wins),
		logger.Int("losses", rec.Losses))
	return rec, nil
}

// AwardMedal appends a tournament medal to a registered singles player.
func (s *Service) AwardMedal(ctx context.Context, id string, tier model.MedalTier, title string) (model.Medal, error) {
	ladder := model.Singles
	id, err := normalizeID(id)
	if err != nil {
		s.reject(ctx, ladder, "medal", err)
		return model.Medal{}, err
	}
	var m model.Medal
	err = s.mutate(ctx, ladder, func(roster model.Roster) error {
		var err error
		m, err = s.engine.AwardMedal(roster, id, tier, title)
		return err
	})
	if err != nil {
		s.reject(ctx, ladder, "medal", err)
		return model.Medal{}, err
	}
	metrics.RecordAdminOverride("medal")
	s.logger.Info(ctx, "medal awarded",
		logger.String("player", id),
		logger.String("tier", string(m.Tier)),
		logger.String("title", m.Title))
	return m, nil
}

// ClearHistory drops a singles player's match history, including entries
// that no longer match the current layout.
func (s *Service) ClearHistory(ctx context.Context, id string) (int, error) {
	ladder := model.Singles
	id, err := normalizeID(id)
	if err != nil {
		s.reject(ctx, ladder, "clear history", err)
		return 0, err
	}
	var removed int
	err = s.mutate(ctx, ladder, func(roster model.Roster) error {
		var err error
		removed, err = history.Clear(roster, id)
		return err
	})
	if err != nil {
		s.reject(ctx, ladder, "clear history", err)
		return 0, err
	}
	metrics.RecordAdminOverride("clear_history")
	s.logger.Info(ctx, "history cleared",
		logger.String("player", id),
		logger.Int("removed", removed))
	return removed, nil
}

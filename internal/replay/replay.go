package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	service "github.com/okian/rally/internal/app"
	"github.com/okian/rally/internal/domain/history"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/ranking"
	"github.com/okian/rally/internal/domain/rating"
	"github.com/okian/rally/pkg/logger"
)

const (
	defaultTopN          = 10
	percentageMultiplier = 100
)

// Target is the subset of the ladder service a log is replayed into.
type Target interface {
	Register(ctx context.Context, ladder model.Ladder, id string) (model.Player, bool, error)
	RecordMatch(ctx context.Context, rep service.MatchReport) (service.MatchOutcome, error)
	RecordDoubles(ctx context.Context, rep service.DoublesReport) (service.DoublesOutcome, error)
	LogHistory(ctx context.Context, m history.Match) (history.Match, error)
	SetStat(ctx context.Context, ladder model.Ladder, id string, field rating.Field, op rating.Op, amount int) (rating.StatChange, error)
	SetPeak(ctx context.Context, ladder model.Ladder, id string, peak int) (rating.StatChange, error)
	ModifyHeadToHead(ctx context.Context, a, b string, field rating.Field, op rating.Op, amount int) (model.Record, error)
	AwardMedal(ctx context.Context, id string, tier model.MedalTier, title string) (model.Medal, error)
	Leaderboard(ctx context.Context, ladder model.Ladder, n int) ([]ranking.Entry, error)
}

// Stats summarizes one replay.
type Stats struct {
	Events     int
	Applied    int
	Duplicates int
	Failed     int
	// Mismatches counts singles matches whose logged post-match ratings
	// differ from the ones the engine produced.
	Mismatches int
	PerKind    map[Kind]int

	Leaderboard []ranking.Entry

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// Replayer applies match logs to a Target.
type Replayer struct {
	target      Target
	stopOnError bool
	topN        int
	logger      logger.Logger
}

// Option applies a configuration option to the Replayer.
type Option func(*Replayer)

// WithStopOnError aborts the replay at the first failed event instead of
// counting it and moving on.
func WithStopOnError(stop bool) Option {
	return func(r *Replayer) { r.stopOnError = stop }
}

// WithTopN sets how many singles leaderboard rows are captured at the end.
func WithTopN(n int) Option {
	return func(r *Replayer) {
		if n > 0 {
			r.topN = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Replayer) {
		if l != nil {
			r.logger = l
		}
	}
}

// New returns a Replayer writing into target.
func New(target Target, opts ...Option) *Replayer {
	r := &Replayer{
		target: target,
		topN:   defaultTopN,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run applies every event of l in order. Duplicate report ids are counted,
// not failed. The returned Stats are valid even when an error is returned.
func (r *Replayer) Run(ctx context.Context, l *Log) (*Stats, error) {
	stats := &Stats{
		PerKind:   make(map[Kind]int),
		StartTime: time.Now(),
	}
	defer func() {
		stats.EndTime = time.Now()
		stats.Duration = stats.EndTime.Sub(stats.StartTime)
	}()

	r.logger.Info(ctx, "starting replay",
		logger.String("season", l.Season),
		logger.Int("events", len(l.Events)),
		logger.Bool("stopOnError", r.stopOnError))

	for i, e := range l.Events {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Events++
		stats.PerKind[e.Kind]++

		mismatch, err := r.apply(ctx, e)
		switch {
		case errors.Is(err, service.ErrDuplicateReport):
			stats.Duplicates++
			r.logger.Debug(ctx, "duplicate report skipped",
				logger.Int("index", i),
				logger.String("reportId", e.ReportID))
		case err != nil:
			stats.Failed++
			if r.stopOnError {
				return stats, fmt.Errorf("event %d (%s): %w", i, e.Kind, err)
			}
			r.logger.Warn(ctx, "event failed",
				logger.Int("index", i),
				logger.String("kind", string(e.Kind)),
				logger.Error(err))
		default:
			stats.Applied++
			if mismatch {
				stats.Mismatches++
			}
		}
	}

	board, err := r.target.Leaderboard(ctx, model.Singles, r.topN)
	if err != nil {
		return stats, fmt.Errorf("leaderboard: %w", err)
	}
	stats.Leaderboard = board
	return stats, nil
}

func (r *Replayer) apply(ctx context.Context, e Event) (mismatch bool, err error) {
	ladder, ok := model.ParseLadder(e.Ladder)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrBadLadder, e.Ladder)
	}

	switch e.Kind {
	case KindRegister:
		_, _, err = r.target.Register(ctx, ladder, e.Player)
	case KindMatch:
		rep := service.MatchReport{
			ReportID:    e.ReportID,
			WinnerID:    e.Winner,
			LoserID:     e.Loser,
			WinnerScore: e.WinnerScore,
			LoserScore:  e.LoserScore,
		}
		if e.Sets != nil {
			rep.SetCount, rep.WinnerSets, rep.LoserSets = e.Sets.Count, e.Sets.Winner, e.Sets.Loser
		}
		var out service.MatchOutcome
		if out, err = r.target.RecordMatch(ctx, rep); err != nil {
			return false, err
		}
		mismatch = r.check(ctx, e, out)
	case KindDoubles:
		rep := service.DoublesReport{
			ReportID:    e.ReportID,
			Winners:     e.Winners,
			Losers:      e.Losers,
			WinnerScore: e.WinnerScore,
			LoserScore:  e.LoserScore,
		}
		if e.Sets != nil {
			rep.SetCount, rep.WinnerSets, rep.LoserSets = e.Sets.Count, e.Sets.Winner, e.Sets.Loser
		}
		_, err = r.target.RecordDoubles(ctx, rep)
	case KindHistory:
		_, err = r.target.LogHistory(ctx, history.Match{
			MatchID:           e.ReportID,
			WinnerID:          e.Winner,
			LoserID:           e.Loser,
			WinnerScore:       e.WinnerScore,
			LoserScore:        e.LoserScore,
			WinnerRatingAfter: e.WinnerAfter,
			LoserRatingAfter:  e.LoserAfter,
			At:                e.At,
		})
	case KindMedal:
		_, err = r.target.AwardMedal(ctx, e.Player, model.MedalTier(e.Tier), e.Title)
	case KindPeak:
		_, err = r.target.SetPeak(ctx, ladder, e.Player, e.Amount)
	case KindStat, KindH2H:
		err = r.override(ctx, ladder, e)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
	return mismatch, err
}

func (r *Replayer) override(ctx context.Context, ladder model.Ladder, e Event) error {
	field, err := rating.ParseField(e.Field)
	if err != nil {
		return err
	}
	op, err := rating.ParseOp(e.Op)
	if err != nil {
		return err
	}
	if e.Kind == KindH2H {
		_, err = r.target.ModifyHeadToHead(ctx, e.Player, e.Opponent, field, op, e.Amount)
		return err
	}
	_, err = r.target.SetStat(ctx, ladder, e.Player, field, op, e.Amount)
	return err
}

// check compares the logged post-match ratings, when present, with the
// engine's result.
func (r *Replayer) check(ctx context.Context, e Event, out service.MatchOutcome) bool {
	if e.WinnerAfter == 0 && e.LoserAfter == 0 {
		return false
	}
	if e.WinnerAfter == out.WinnerAfter && e.LoserAfter == out.LoserAfter {
		return false
	}
	r.logger.Warn(ctx, "rating mismatch",
		logger.String("reportId", e.ReportID),
		logger.String("winner", e.Winner),
		logger.String("loser", e.Loser),
		logger.Int("loggedWinner", e.WinnerAfter),
		logger.Int("gotWinner", out.WinnerAfter),
		logger.Int("loggedLoser", e.LoserAfter),
		logger.Int("gotLoser", out.LoserAfter))
	return true
}

// LogStats writes the final statistics of a replay.
func LogStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var successRate, eventsPerSecond float64
	if stats.Events > 0 {
		successRate = float64(stats.Applied+stats.Duplicates) / float64(stats.Events) * percentageMultiplier
	}
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.Events) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("events", stats.Events),
		logger.Int("applied", stats.Applied),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("failed", stats.Failed),
		logger.Int("mismatches", stats.Mismatches),
		logger.Any("perKind", stats.PerKind),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("eventsPerSecond", eventsPerSecond))

	for _, e := range stats.Leaderboard {
		log.Info(ctx, "leaderboard",
			logger.Int("rank", e.Rank),
			logger.String("player", e.PlayerID),
			logger.Int("rating", e.Rating))
	}
}

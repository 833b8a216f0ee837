// Package rating implements the singles and doubles rating engines.
//
// The delta pipeline is a logistic Elo expectation with a K factor, rounded
// up so every decided match moves both ratings, followed by an asymmetric
// disparity scaling that swings upsets harder than expected results.
package rating

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/okian/rally/internal/domain/history"
	"github.com/okian/rally/internal/domain/model"
)

// Default engine parameters.
const (
	DefaultKFactor        = 32
	DefaultFloor          = 0
	DefaultStartingRating = 100
	DefaultDisparityMin   = 50
	DefaultDisparityMax   = 400
	DefaultNewPlayerWins  = 5
	DefaultNewPlayerBonus = 5

	deviation = 400.0
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithKFactor sets the K factor.
func WithKFactor(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.k = k
		}
	}
}

// WithFloor sets the minimum rating.
func WithFloor(floor int) Option {
	return func(e *Engine) {
		if floor >= 0 {
			e.floor = floor
		}
	}
}

// WithStartingRating sets the rating given to newly registered players.
func WithStartingRating(r int) Option {
	return func(e *Engine) {
		if r >= 0 {
			e.starting = r
		}
	}
}

// WithDisparityBounds sets the rating-gap range over which scaling grows
// from 0 to 1. Ignored unless 0 <= minGap < maxGap.
func WithDisparityBounds(minGap, maxGap int) Option {
	return func(e *Engine) {
		if minGap >= 0 && maxGap > minGap {
			e.disparityMin = minGap
			e.disparityMax = maxGap
		}
	}
}

// WithNewPlayerBonus sets the flat bonus awarded to winners with fewer than
// wins prior wins.
func WithNewPlayerBonus(wins, bonus int) Option {
	return func(e *Engine) {
		if wins >= 0 && bonus >= 0 {
			e.bonusWins = wins
			e.bonus = bonus
		}
	}
}

// WithHistoryLimit sets the per-player history bound.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.historyLimit = n
		}
	}
}

// WithClock overrides the time source used to stamp history entries.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithMatchIDs overrides the match id generator.
func WithMatchIDs(next func() string) Option {
	return func(e *Engine) {
		if next != nil {
			e.newID = next
		}
	}
}

// Engine computes and applies rating changes. It holds no roster state and
// is safe for concurrent use.
type Engine struct {
	k            int
	floor        int
	starting     int
	disparityMin int
	disparityMax int
	bonusWins    int
	bonus        int
	historyLimit int

	now   func() time.Time
	newID func() string
}

// NewEngine creates an engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		k:            DefaultKFactor,
		floor:        DefaultFloor,
		starting:     DefaultStartingRating,
		disparityMin: DefaultDisparityMin,
		disparityMax: DefaultDisparityMax,
		bonusWins:    DefaultNewPlayerWins,
		bonus:        DefaultNewPlayerBonus,
		historyLimit: history.DefaultLimit,
		now:          func() time.Time { return time.Now().UTC() },
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Floor returns the minimum rating.
func (e *Engine) Floor() int { return e.floor }

// StartingRating returns the rating of a freshly registered player.
func (e *Engine) StartingRating() int { return e.starting }

// HistoryLimit returns the per-player history bound.
func (e *Engine) HistoryLimit() int { return e.historyLimit }

// NewMatchID returns a fresh match id from the configured generator.
func (e *Engine) NewMatchID() string { return e.newID() }

// Register creates a default record for id if absent. Calling it again for
// the same id never resets existing stats.
func (e *Engine) Register(roster model.Roster, id string) *model.Player {
	return roster.Register(id, e.starting)
}

// Expected returns the logistic win expectation of a rated player against b.
func Expected(a, b float64) float64 {
	return 1 / (1 + math.Pow(10, (b-a)/deviation))
}

// Delta is the outcome of the shared delta pipeline.
type Delta struct {
	Expected float64 // winner's expectation
	Base     int     // ceil(K * (1 - Expected))
	Factor   float64 // disparity factor in [0,1]
	Gain     int     // winner's gain, bonus excluded
	Loss     int     // loser's loss
}

// Delta runs the expectation, base change and disparity scaling for a
// winner rated w against a loser rated l.
func (e *Engine) Delta(w, l float64) Delta {
	expected := Expected(w, l)
	base := math.Ceil(float64(e.k) * (1 - expected))

	gap := math.Abs(w - l)
	lo, hi := float64(e.disparityMin), float64(e.disparityMax)
	clamped := math.Max(lo, math.Min(gap, hi))
	factor := (clamped - lo) / (hi - lo)

	winScale, lossScale := 1.0, 1.0
	if w < l {
		winScale = 1 + factor
	} else {
		lossScale = 1 - factor
	}

	return Delta{
		Expected: expected,
		Base:     int(base),
		Factor:   factor,
		Gain:     int(math.Ceil(base * winScale)),
		Loss:     int(math.Ceil(base * lossScale)),
	}
}

// clamp applies the rating floor.
func (e *Engine) clamp(r int) int {
	if r < e.floor {
		return e.floor
	}
	return r
}

func (e *Engine) bonusFor(winsBefore int) int {
	if winsBefore < e.bonusWins {
		return e.bonus
	}
	return 0
}

func winStreak(s int) int {
	if s <= 0 {
		return 1
	}
	return s + 1
}

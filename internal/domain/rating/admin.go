package rating

import (
	"fmt"
	"strings"

	"github.com/okian/rally/internal/domain/model"
)

// Field selects a single counter of a player record for admin overrides.
type Field int

const (
	FieldRating Field = iota + 1
	FieldPeakRating
	FieldWins
	FieldLosses
	FieldStreak
	FieldAllTimeGain
	FieldAllTimeLoss
)

var fieldNames = map[Field]string{
	FieldRating:      "rating",
	FieldPeakRating:  "peak_rating",
	FieldWins:        "wins",
	FieldLosses:      "losses",
	FieldStreak:      "streak",
	FieldAllTimeGain: "all_time_gain",
	FieldAllTimeLoss: "all_time_loss",
}

// fieldAliases keeps the names the league admins already type.
var fieldAliases = map[string]Field{
	"elo":         FieldRating,
	"current":     FieldRating,
	"peak":        FieldPeakRating,
	"peak_elo":    FieldPeakRating,
	"alltimegain": FieldAllTimeGain,
	"alltimeloss": FieldAllTimeLoss,
}

func (f Field) String() string {
	if n, ok := fieldNames[f]; ok {
		return n
	}
	return "unknown"
}

// ParseField maps a field name to a Field.
func ParseField(s string) (Field, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for f, n := range fieldNames {
		if n == s {
			return f, nil
		}
	}
	if f, ok := fieldAliases[s]; ok {
		return f, nil
	}
	return 0, fmt.Errorf("field %q: %w", s, ErrInvalidInput)
}

// Op is an admin arithmetic operation.
type Op int

const (
	OpSet Op = iota + 1
	OpAdd
	OpSubtract
)

// ParseOp maps "set", "add" or "subtract" to an Op.
func ParseOp(s string) (Op, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "set":
		return OpSet, nil
	case "add":
		return OpAdd, nil
	case "subtract", "sub":
		return OpSubtract, nil
	}
	return 0, fmt.Errorf("operation %q: %w", s, ErrInvalidInput)
}

func (op Op) String() string {
	switch op {
	case OpSet:
		return "set"
	case OpAdd:
		return "add"
	case OpSubtract:
		return "subtract"
	}
	return "unknown"
}

func (op Op) apply(old, amount int) int {
	switch op {
	case OpAdd:
		return old + amount
	case OpSubtract:
		return old - amount
	default:
		return amount
	}
}

// StatChange reports an applied override.
type StatChange struct {
	PlayerID string
	Field    Field
	Old      int
	New      int
}

// setter reads and writes one field, applying its clamping rule.
type setter struct {
	get func(*model.Player) int
	set func(e *Engine, p *model.Player, v int) error
}

func nonNegative(v int) int { return max(v, 0) }

var setters = map[Field]setter{
	FieldRating: {
		get: func(p *model.Player) int { return p.Rating },
		set: func(e *Engine, p *model.Player, v int) error {
			p.Rating = e.clamp(v)
			p.ObservePeak()
			return nil
		},
	},
	FieldPeakRating: {
		get: func(p *model.Player) int { return p.PeakRating },
		set: func(_ *Engine, p *model.Player, v int) error {
			if v < 0 {
				return fmt.Errorf("peak rating %d: %w", v, ErrInvalidInput)
			}
			p.PeakRating = max(v, p.Rating)
			return nil
		},
	},
	FieldWins: {
		get: func(p *model.Player) int { return p.Wins },
		set: func(_ *Engine, p *model.Player, v int) error { p.Wins = nonNegative(v); return nil },
	},
	FieldLosses: {
		get: func(p *model.Player) int { return p.Losses },
		set: func(_ *Engine, p *model.Player, v int) error { p.Losses = nonNegative(v); return nil },
	},
	FieldStreak: {
		get: func(p *model.Player) int { return p.Streak },
		set: func(_ *Engine, p *model.Player, v int) error { p.Streak = v; return nil },
	},
	FieldAllTimeGain: {
		get: func(p *model.Player) int { return p.AllTimeGain },
		set: func(_ *Engine, p *model.Player, v int) error { p.AllTimeGain = nonNegative(v); return nil },
	},
	FieldAllTimeLoss: {
		get: func(p *model.Player) int { return p.AllTimeLoss },
		set: func(_ *Engine, p *model.Player, v int) error { p.AllTimeLoss = nonNegative(v); return nil },
	},
}

// SetStat overrides a single counter of a registered player. Rating clamps
// to the floor and lifts the peak; counters clamp to zero; the streak is
// signed; a negative peak is rejected and a peak below the current rating is
// raised to it.
func (e *Engine) SetStat(roster model.Roster, id string, field Field, op Op, amount int) (StatChange, error) {
	s, ok := setters[field]
	if !ok {
		return StatChange{}, fmt.Errorf("field %d: %w", field, ErrInvalidInput)
	}
	p, ok := roster[id]
	if !ok {
		return StatChange{}, fmt.Errorf("%s: %w", id, ErrUnregistered)
	}
	old := s.get(p)
	if err := s.set(e, p, op.apply(old, amount)); err != nil {
		return StatChange{}, err
	}
	return StatChange{PlayerID: id, Field: field, Old: old, New: s.get(p)}, nil
}

// ModifyHeadToHead edits a's wins or losses against b and mirrors the value
// onto b's record so the pair stays symmetric.
func (e *Engine) ModifyHeadToHead(roster model.Roster, a, b string, field Field, op Op, amount int) (model.Record, error) {
	if field != FieldWins && field != FieldLosses {
		return model.Record{}, fmt.Errorf("head-to-head field %s: %w", field, ErrInvalidInput)
	}
	pa, pb, err := e.pair(roster, a, b)
	if err != nil {
		return model.Record{}, err
	}
	ra, rb := pa.HeadToHead[b], pb.HeadToHead[a]
	if field == FieldWins {
		ra.Wins = nonNegative(op.apply(ra.Wins, amount))
		rb.Losses = ra.Wins
	} else {
		ra.Losses = nonNegative(op.apply(ra.Losses, amount))
		rb.Wins = ra.Losses
	}
	pa.HeadToHead[b] = ra
	pb.HeadToHead[a] = rb
	return ra, nil
}

// AwardMedal appends a medal to a registered player.
func (e *Engine) AwardMedal(roster model.Roster, id string, tier model.MedalTier, title string) (model.Medal, error) {
	tier = model.MedalTier(strings.ToLower(string(tier)))
	if !tier.Valid() {
		return model.Medal{}, fmt.Errorf("medal tier %q: %w", tier, ErrInvalidInput)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Medal{}, fmt.Errorf("medal title: %w", ErrInvalidInput)
	}
	p, ok := roster[id]
	if !ok {
		return model.Medal{}, fmt.Errorf("%s: %w", id, ErrUnregistered)
	}
	m := model.Medal{Tier: tier, Title: title}
	p.Medals = append(p.Medals, m)
	return m, nil
}

// Package model contains domain models passed between layers.
package model

// Ladder identifies an independent rating pool.
type Ladder int

const (
	Singles Ladder = iota
	Doubles
)

func (l Ladder) String() string {
	switch l {
	case Singles:
		return "singles"
	case Doubles:
		return "doubles"
	default:
		return "unknown"
	}
}

// ParseLadder maps "singles"/"doubles" to a Ladder. Empty input means singles.
func ParseLadder(s string) (Ladder, bool) {
	switch s {
	case "", "singles":
		return Singles, true
	case "doubles":
		return Doubles, true
	default:
		return Singles, false
	}
}

// MedalTier is a tournament placing.
type MedalTier string

const (
	Gold   MedalTier = "gold"
	Silver MedalTier = "silver"
	Third  MedalTier = "third"
)

// Valid reports whether t is one of the known tiers.
func (t MedalTier) Valid() bool {
	return t == Gold || t == Silver || t == Third
}

// Medal is a tournament award held by a player.
type Medal struct {
	Tier  MedalTier
	Title string
}

// Record is a head-to-head tally from one player's point of view.
type Record struct {
	Wins   int
	Losses int
}

// Games returns the number of games the tally covers.
func (r Record) Games() int { return r.Wins + r.Losses }

// Player is the per-identity state of a ladder.
type Player struct {
	ID          string
	Rating      int
	PeakRating  int
	Wins        int
	Losses      int
	Streak      int // positive = consecutive wins; reset to 0 on a loss
	AllTimeGain int
	AllTimeLoss int

	HeadToHead map[string]Record
	Medals     []Medal
	History    []HistoryEntry // most recent first

	// Doubles only.
	Partners      map[string]int
	PartnerLosses map[string]int
}

// NewPlayer returns a freshly registered record.
func NewPlayer(id string, startingRating int) *Player {
	return &Player{
		ID:            id,
		Rating:        startingRating,
		PeakRating:    startingRating,
		HeadToHead:    make(map[string]Record),
		Partners:      make(map[string]int),
		PartnerLosses: make(map[string]int),
	}
}

// EnsureMaps allocates nil mappings, e.g. on records built outside NewPlayer.
func (p *Player) EnsureMaps() {
	if p.HeadToHead == nil {
		p.HeadToHead = make(map[string]Record)
	}
	if p.Partners == nil {
		p.Partners = make(map[string]int)
	}
	if p.PartnerLosses == nil {
		p.PartnerLosses = make(map[string]int)
	}
}

// ObservePeak raises PeakRating to Rating when exceeded.
func (p *Player) ObservePeak() {
	if p.Rating > p.PeakRating {
		p.PeakRating = p.Rating
	}
}

// Clone returns a deep copy of p.
func (p *Player) Clone() *Player {
	c := *p
	c.HeadToHead = make(map[string]Record, len(p.HeadToHead))
	for k, v := range p.HeadToHead {
		c.HeadToHead[k] = v
	}
	c.Partners = make(map[string]int, len(p.Partners))
	for k, v := range p.Partners {
		c.Partners[k] = v
	}
	c.PartnerLosses = make(map[string]int, len(p.PartnerLosses))
	for k, v := range p.PartnerLosses {
		c.PartnerLosses[k] = v
	}
	c.Medals = append([]Medal(nil), p.Medals...)
	c.History = append([]HistoryEntry(nil), p.History...)
	return &c
}

package repository

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/okian/rally/internal/domain/model"
)

// rosterFormat is the version of the file envelope.
const rosterFormat = 1

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() { //nolint:gochecknoinits // codec modes are fixed at startup
	var err error
	encMode, err = cbor.EncOptions{
		Sort: cbor.SortCanonical,
		Time: cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor enc mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("cbor dec mode: %v", err))
	}
}

type recordDoc struct {
	Wins   int `cbor:"wins"`
	Losses int `cbor:"losses"`
}

type medalDoc struct {
	Tier  string `cbor:"tier"`
	Title string `cbor:"title"`
}

// historyDoc uses pointers for the required fields so a record written by
// an older layout is told apart from a zero value.
type historyDoc struct {
	Version             int       `cbor:"v"`
	MatchID             string    `cbor:"match_id,omitempty"`
	Result              *string   `cbor:"result"`
	RatingAfter         *int      `cbor:"rating_after"`
	OpponentID          *string   `cbor:"opponent_id"`
	OpponentRatingAfter *int      `cbor:"opponent_rating_after"`
	Score               *int      `cbor:"score"`
	OpponentScore       *int      `cbor:"opponent_score"`
	RecordedAt          time.Time `cbor:"recorded_at"`
}

type playerDoc struct {
	Rating        int                  `cbor:"rating"`
	PeakRating    *int                 `cbor:"peak_rating,omitempty"`
	Wins          int                  `cbor:"wins"`
	Losses        int                  `cbor:"losses"`
	Streak        int                  `cbor:"streak"`
	AllTimeGain   int                  `cbor:"all_time_gain"`
	AllTimeLoss   int                  `cbor:"all_time_loss"`
	HeadToHead    map[string]recordDoc `cbor:"head_to_head,omitempty"`
	Medals        []medalDoc           `cbor:"medals,omitempty"`
	History       []historyDoc         `cbor:"history,omitempty"`
	Partners      map[string]int       `cbor:"partners,omitempty"`
	PartnerLosses map[string]int       `cbor:"partner_losses,omitempty"`
}

type rosterDoc struct {
	Format  int                  `cbor:"format"`
	Players map[string]playerDoc `cbor:"players"`
}

func toDoc(p *model.Player) playerDoc {
	peak := p.PeakRating
	d := playerDoc{
		Rating:        p.Rating,
		PeakRating:    &peak,
		Wins:          p.Wins,
		Losses:        p.Losses,
		Streak:        p.Streak,
		AllTimeGain:   p.AllTimeGain,
		AllTimeLoss:   p.AllTimeLoss,
		Partners:      p.Partners,
		PartnerLosses: p.PartnerLosses,
	}
	if len(p.HeadToHead) > 0 {
		d.HeadToHead = make(map[string]recordDoc, len(p.HeadToHead))
		for opp, r := range p.HeadToHead {
			d.HeadToHead[opp] = recordDoc{Wins: r.Wins, Losses: r.Losses}
		}
	}
	for _, m := range p.Medals {
		d.Medals = append(d.Medals, medalDoc{Tier: string(m.Tier), Title: m.Title})
	}
	for _, e := range p.History {
		result := string(e.Result)
		opp := e.OpponentID
		rating, oppRating := e.RatingAfter, e.OpponentRatingAfter
		score, oppScore := e.Score, e.OpponentScore
		d.History = append(d.History, historyDoc{
			Version:             e.Version,
			MatchID:             e.MatchID,
			Result:              &result,
			RatingAfter:         &rating,
			OpponentID:          &opp,
			OpponentRatingAfter: &oppRating,
			Score:               &score,
			OpponentScore:       &oppScore,
			RecordedAt:          e.RecordedAt,
		})
	}
	return d
}

func fromDoc(id string, d playerDoc) *model.Player {
	p := &model.Player{
		ID:            id,
		Rating:        d.Rating,
		PeakRating:    d.Rating,
		Wins:          d.Wins,
		Losses:        d.Losses,
		Streak:        d.Streak,
		AllTimeGain:   d.AllTimeGain,
		AllTimeLoss:   d.AllTimeLoss,
		Partners:      d.Partners,
		PartnerLosses: d.PartnerLosses,
	}
	if d.PeakRating != nil {
		p.PeakRating = *d.PeakRating
	}
	p.ObservePeak()
	p.EnsureMaps()
	for opp, r := range d.HeadToHead {
		p.HeadToHead[opp] = model.Record{Wins: r.Wins, Losses: r.Losses}
	}
	for _, m := range d.Medals {
		p.Medals = append(p.Medals, model.Medal{Tier: model.MedalTier(m.Tier), Title: m.Title})
	}
	for _, h := range d.History {
		p.History = append(p.History, h.entry())
	}
	return p
}

// entry converts a stored record to the current schema. A record missing
// any required field, written by a newer layout or otherwise invalid is
// kept as model.IncompatibleHistoryVersion so history queries reject it
// while ratings, rankings and new matches keep working.
func (h historyDoc) entry() model.HistoryEntry {
	e := model.HistoryEntry{
		Version:    model.HistorySchemaVersion,
		MatchID:    h.MatchID,
		RecordedAt: h.RecordedAt,
	}
	complete := h.Result != nil && h.RatingAfter != nil && h.OpponentID != nil &&
		h.OpponentRatingAfter != nil && h.Score != nil && h.OpponentScore != nil
	if h.Result != nil {
		e.Result = model.Result(*h.Result)
	}
	if h.RatingAfter != nil {
		e.RatingAfter = *h.RatingAfter
	}
	if h.OpponentID != nil {
		e.OpponentID = *h.OpponentID
	}
	if h.OpponentRatingAfter != nil {
		e.OpponentRatingAfter = *h.OpponentRatingAfter
	}
	if h.Score != nil {
		e.Score = *h.Score
	}
	if h.OpponentScore != nil {
		e.OpponentScore = *h.OpponentScore
	}
	if !complete || h.Version > model.HistorySchemaVersion || h.Version == model.IncompatibleHistoryVersion {
		e.Version = model.IncompatibleHistoryVersion
		return e
	}
	if e.Validate() != nil {
		e.Version = model.IncompatibleHistoryVersion
	}
	return e
}

func marshalPlayer(p *model.Player) ([]byte, error) {
	return encMode.Marshal(toDoc(p))
}

func unmarshalPlayer(id string, data []byte) (*model.Player, error) {
	var d playerDoc
	if err := decMode.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode player %s: %w", id, err)
	}
	return fromDoc(id, d), nil
}

func marshalRoster(r model.Roster) ([]byte, error) {
	doc := rosterDoc{Format: rosterFormat, Players: make(map[string]playerDoc, len(r))}
	for id, p := range r {
		doc.Players[id] = toDoc(p)
	}
	return encMode.Marshal(doc)
}

func unmarshalRoster(data []byte) (model.Roster, error) {
	var doc rosterDoc
	if err := decMode.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	if doc.Format > rosterFormat {
		return nil, fmt.Errorf("roster format %d is newer than %d", doc.Format, rosterFormat)
	}
	r := make(model.Roster, len(doc.Players))
	for id, d := range doc.Players {
		r[id] = fromDoc(id, d)
	}
	return r, nil
}

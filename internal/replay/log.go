// Package replay decodes a YAML match log and applies it to a ladder
// service in order. It is used to rebuild a ladder from an exported season
// and to check engine changes against recorded results.
package replay

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.yaml.in/yaml/v3"
)

// Kind is the type of a logged event.
type Kind string

const (
	KindRegister Kind = "register"
	KindMatch    Kind = "match"
	KindDoubles  Kind = "doubles"
	KindHistory  Kind = "history"
	KindMedal    Kind = "medal"
	KindStat     Kind = "stat"
	KindPeak     Kind = "peak"
	KindH2H      Kind = "h2h"
)

// Sets is the optional per-set breakdown of a match.
type Sets struct {
	Count  int    `yaml:"count"`
	Winner string `yaml:"winner"`
	Loser  string `yaml:"loser"`
}

// Event is one entry of a match log. Which fields apply depends on Kind.
type Event struct {
	Kind     Kind   `yaml:"kind"`
	ReportID string `yaml:"report_id,omitempty"`
	Ladder   string `yaml:"ladder,omitempty"`

	// match, history; scores and sets also apply to doubles
	Winner      string    `yaml:"winner,omitempty"`
	Loser       string    `yaml:"loser,omitempty"`
	WinnerScore int       `yaml:"winner_score,omitempty"`
	LoserScore  int       `yaml:"loser_score,omitempty"`
	Sets        *Sets     `yaml:"sets,omitempty"`
	WinnerAfter int       `yaml:"winner_rating_after,omitempty"`
	LoserAfter  int       `yaml:"loser_rating_after,omitempty"`
	At          time.Time `yaml:"at,omitempty"`

	// doubles
	Winners [2]string `yaml:"winners,omitempty"`
	Losers  [2]string `yaml:"losers,omitempty"`

	// register, medal, stat, peak, h2h
	Player   string `yaml:"player,omitempty"`
	Opponent string `yaml:"opponent,omitempty"`
	Tier     string `yaml:"tier,omitempty"`
	Title    string `yaml:"title,omitempty"`
	Field    string `yaml:"field,omitempty"`
	Op       string `yaml:"op,omitempty"`
	Amount   int    `yaml:"amount,omitempty"`
}

// Log is a decoded match log.
type Log struct {
	Season string  `yaml:"season"`
	Events []Event `yaml:"events"`
}

// Decode reads a match log. Unknown keys are rejected so typos in a
// hand-edited log do not silently drop data.
func Decode(r io.Reader) (*Log, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var l Log
	if err := dec.Decode(&l); err != nil {
		if errors.Is(err, io.EOF) {
			return &l, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	for i, e := range l.Events {
		if !e.Kind.valid() {
			return nil, fmt.Errorf("%w: event %d: %q", ErrUnknownKind, i, e.Kind)
		}
	}
	return &l, nil
}

// DecodeFile reads the match log at path.
func DecodeFile(path string) (*Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	defer f.Close()
	return Decode(f)
}

func (k Kind) valid() bool {
	switch k {
	case KindRegister, KindMatch, KindDoubles, KindHistory, KindMedal, KindStat, KindPeak, KindH2H:
		return true
	}
	return false
}

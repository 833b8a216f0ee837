package model

import (
	"fmt"
	"time"
)

// HistorySchemaVersion is the current layout of HistoryEntry. Version 1
// entries usually predate scores and opponent ratings; those cannot be
// migrated.
const HistorySchemaVersion = 2

// IncompatibleHistoryVersion marks a stored entry that could not be read
// as the current layout. It survives a save so the entry keeps failing
// history queries until the player's history is cleared.
const IncompatibleHistoryVersion = -1

// Result is the outcome of a match from one player's perspective.
type Result string

const (
	Win  Result = "W"
	Loss Result = "L"
)

// HistoryEntry is one completed match seen from one player.
type HistoryEntry struct {
	Version             int
	MatchID             string
	Result              Result
	RatingAfter         int
	OpponentID          string
	OpponentRatingAfter int
	Score               int
	OpponentScore       int
	RecordedAt          time.Time
}

// Won reports whether the entry's owner won the match.
func (e HistoryEntry) Won() bool { return e.Result == Win }

// Validate checks the required field set of the current schema.
func (e HistoryEntry) Validate() error {
	switch {
	case e.Version != HistorySchemaVersion:
		return fmt.Errorf("%w: schema version %d, want %d", ErrIncompatibleHistory, e.Version, HistorySchemaVersion)
	case e.Result != Win && e.Result != Loss:
		return fmt.Errorf("%w: result %q", ErrIncompatibleHistory, e.Result)
	case e.OpponentID == "":
		return fmt.Errorf("%w: missing opponent id", ErrIncompatibleHistory)
	}
	return nil
}

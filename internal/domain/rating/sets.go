package rating

import (
	"fmt"
	"strconv"
	"strings"
)

// SetScore is the score of one set, winner first.
type SetScore struct {
	Winner int
	Loser  int
}

// ParseSetScores validates the optional per-set breakdown of a match.
// All three inputs are absent, or count is positive and both lists are
// comma separated with exactly count non-negative integers.
func ParseSetScores(count int, winnerSets, loserSets string) ([]SetScore, error) {
	winnerSets, loserSets = strings.TrimSpace(winnerSets), strings.TrimSpace(loserSets)
	if count == 0 && winnerSets == "" && loserSets == "" {
		return nil, nil
	}
	if count <= 0 || winnerSets == "" || loserSets == "" {
		return nil, fmt.Errorf("set count %d with lists %q/%q: %w", count, winnerSets, loserSets, ErrInvalidInput)
	}
	w, err := splitScores(winnerSets)
	if err != nil {
		return nil, err
	}
	l, err := splitScores(loserSets)
	if err != nil {
		return nil, err
	}
	if len(w) != count || len(l) != count {
		return nil, fmt.Errorf("set count %d does not match %d/%d set scores: %w", count, len(w), len(l), ErrInvalidInput)
	}
	sets := make([]SetScore, count)
	for i := range sets {
		sets[i] = SetScore{Winner: w[i], Loser: l[i]}
	}
	return sets, nil
}

func splitScores(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("set score %q: %w", part, ErrInvalidInput)
		}
		out[i] = n
	}
	return out, nil
}

package tui

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/claude/coachtrack/internal/workout"
)

var errSetFormat = errors.New("enter a set as: weight reps [rpe]")

// parseSet reads "weight reps [rpe]", for example "82.5 8" or "100 5 8.5".
// A trailing "x" on the weight is accepted, as in "82.5x8".
func parseSet(s string) (workout.CompletedSet, error) {
	s = strings.ReplaceAll(strings.ToLower(s), "x", " ")
	fields := strings.Fields(s)
	if len(fields) < 2 || len(fields) > 3 {
		return workout.CompletedSet{}, errSetFormat
	}

	weight, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return workout.CompletedSet{}, fmt.Errorf("weight %q: %w", fields[0], errSetFormat)
	}
	reps, err := strconv.Atoi(fields[1])
	if err != nil {
		return workout.CompletedSet{}, fmt.Errorf("reps %q: %w", fields[1], errSetFormat)
	}
	set := workout.CompletedSet{Weight: weight, Reps: reps}
	if len(fields) == 3 {
		rpe, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return workout.CompletedSet{}, fmt.Errorf("rpe %q: %w", fields[2], errSetFormat)
		}
		set.RPE = &rpe
	}
	if !set.Valid() {
		return workout.CompletedSet{}, errors.New("weight and reps must be positive, rpe between 1 and 10")
	}
	return set, nil
}

// formatSet renders a set the way parseSet reads it back.
func formatSet(set workout.CompletedSet) string {
	out := strconv.FormatFloat(set.Weight, 'f', -1, 64) + " " + strconv.Itoa(set.Reps)
	if set.RPE != nil {
		out += " " + strconv.FormatFloat(*set.RPE, 'f', -1, 64)
	}
	return out
}

// Bell rings the terminal bell when a rest period ends.
type Bell struct {
	W io.Writer
}

func (b Bell) RestFinished() {
	if b.W != nil {
		_, _ = io.WriteString(b.W, "\a")
	}
}

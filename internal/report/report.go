// Package report renders human-readable summaries of sweep results.
package report

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/HerbHall/rangeping/pkg/models"
)

// ErrEmptyResults is returned when no sweep results are available yet.
var ErrEmptyResults = errors.New("range has not been pinged yet")

// Counts tallies results by outcome.
func Counts(results models.SweepResult) map[models.Outcome]int {
	counts := make(map[models.Outcome]int)
	for _, r := range results.Results {
		counts[r.Outcome]++
	}
	return counts
}

// Summarize returns a count line followed by one line per outcome present:
//
//	6 IPs were pinged.
//	There were 5 results for "yes".
//	There was 1 result for "no".
func Summarize(results models.SweepResult) (string, error) {
	if results.Empty() {
		return "", ErrEmptyResults
	}

	counts := Counts(results)
	var b strings.Builder
	fmt.Fprintf(&b, "%d IPs were pinged.\n", results.Len())
	for _, o := range orderedOutcomes(counts) {
		n := counts[o]
		if n == 1 {
			fmt.Fprintf(&b, "There was 1 result for %q.\n", string(o))
			continue
		}
		fmt.Fprintf(&b, "There were %d results for %q.\n", n, string(o))
	}
	return b.String(), nil
}

// orderedOutcomes lists the outcomes present in counts, known outcomes
// first in their reporting order.
func orderedOutcomes(counts map[models.Outcome]int) []models.Outcome {
	out := make([]models.Outcome, 0, len(counts))
	seen := make(map[models.Outcome]bool, len(counts))
	for _, o := range models.Outcomes() {
		if counts[o] > 0 {
			out = append(out, o)
			seen[o] = true
		}
	}
	var unknown []models.Outcome
	for o := range counts {
		if !seen[o] {
			unknown = append(unknown, o)
		}
	}
	slices.Sort(unknown)
	return append(out, unknown...)
}

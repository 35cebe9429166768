package models

import "time"

// Outcome classifies the reply of a single reachability probe.
// The string values are what gets written to history files.
type Outcome string

const (
	OutcomeReachable              Outcome = "yes"
	OutcomePartialLoss            Outcome = "partial"
	OutcomeUnreachable            Outcome = "no"
	OutcomeDestinationUnreachable Outcome = "unreachable"
	OutcomeProbeError             Outcome = "error"
)

// Outcomes lists every outcome in reporting order.
func Outcomes() []Outcome {
	return []Outcome{
		OutcomeReachable,
		OutcomePartialLoss,
		OutcomeUnreachable,
		OutcomeDestinationUnreachable,
		OutcomeProbeError,
	}
}

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	for _, known := range Outcomes() {
		if o == known {
			return true
		}
	}
	return false
}

// ProbeResult is the classified reply for one host address.
type ProbeResult struct {
	Address  string        `json:"address"`
	Outcome  Outcome       `json:"outcome"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// SweepResult holds every probe result of one sweep, in enumeration order.
type SweepResult struct {
	ID         string        `json:"id"`
	Identifier string        `json:"identifier,omitempty"`
	Range      string        `json:"range"`
	StartedAt  time.Time     `json:"started_at"`
	EndedAt    time.Time     `json:"ended_at,omitempty"`
	Results    []ProbeResult `json:"results"`
}

// Len returns the number of probed addresses.
func (s SweepResult) Len() int {
	return len(s.Results)
}

// Empty reports whether no address has been probed yet.
func (s SweepResult) Empty() bool {
	return len(s.Results) == 0
}

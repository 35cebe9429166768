package models

import "testing"

func TestOutcomeCoverage(t *testing.T) {
	for _, o := range Outcomes() {
		if !o.Valid() {
			t.Errorf("Outcome %q reported invalid", o)
		}
		if o == "" {
			t.Error("Outcomes() contains an empty value")
		}
	}
}

func TestOutcomeUnknown(t *testing.T) {
	if Outcome("maybe").Valid() {
		t.Error(`Outcome("maybe").Valid() = true, want false`)
	}
}

func TestSweepResultEmpty(t *testing.T) {
	var s SweepResult
	if !s.Empty() {
		t.Error("zero SweepResult should be empty")
	}
	s.Results = append(s.Results, ProbeResult{Address: "10.0.0.1", Outcome: OutcomeReachable})
	if s.Empty() || s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

package sweep_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/rangeping/internal/sweep"
	"github.com/HerbHall/rangeping/internal/testutil"
	"github.com/HerbHall/rangeping/pkg/models"
)

func TestOutcomes_OrderAndClassification(t *testing.T) {
	p := testutil.NewFakeProber().
		Reply("10.0.0.2", testutil.ReplyPartial).
		Reply("10.0.0.3", testutil.ReplyNoAnswer).
		Reply("10.0.0.4", testutil.ReplyUnreachable)
	e := sweep.NewExecutor(p, testutil.Logger(t))

	run := e.Sweep(context.Background(), "lab", testutil.MustRange(t, "10.0.0.0/29"))

	var seen []models.ProbeResult
	for res := range run.Outcomes() {
		// Each result is recorded before the caller sees it.
		assert.Equal(t, len(seen)+1, run.Len())
		seen = append(seen, res)
	}

	want := []struct {
		addr    string
		outcome models.Outcome
	}{
		{"10.0.0.1", models.OutcomeReachable},
		{"10.0.0.2", models.OutcomePartialLoss},
		{"10.0.0.3", models.OutcomeUnreachable},
		{"10.0.0.4", models.OutcomeDestinationUnreachable},
		{"10.0.0.5", models.OutcomeReachable},
		{"10.0.0.6", models.OutcomeReachable},
	}
	require.Len(t, seen, len(want))
	for i, w := range want {
		assert.Equal(t, w.addr, seen[i].Address)
		assert.Equal(t, w.outcome, seen[i].Outcome, w.addr)
	}

	res := run.Results()
	assert.Equal(t, seen, res.Results)
	assert.Equal(t, "lab", res.Identifier)
	assert.Equal(t, "10.0.0.0/29", res.Range)
	assert.NotEmpty(t, res.ID)
	assert.True(t, run.Done())
	assert.NoError(t, run.Err())
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4", "10.0.0.5", "10.0.0.6"}, p.Calls())
}

func TestOutcomes_LazyAndSingleUse(t *testing.T) {
	p := testutil.NewFakeProber()
	e := sweep.NewExecutor(p, nil)
	run := e.Sweep(context.Background(), "", testutil.MustRange(t, "10.0.0.0/30"))

	assert.Empty(t, p.Calls(), "nothing probed before consumption")

	n := 0
	for range run.Outcomes() {
		n++
	}
	assert.Equal(t, 2, n)

	for range run.Outcomes() {
		t.Fatal("second consumption must yield nothing")
	}
	assert.Len(t, p.Calls(), 2)
}

func TestOutcomes_BreakKeepsPartialResults(t *testing.T) {
	p := testutil.NewFakeProber()
	e := sweep.NewExecutor(p, nil)
	run := e.Sweep(context.Background(), "", testutil.MustRange(t, "10.0.0.0/24"))

	for res := range run.Outcomes() {
		if res.Address == "10.0.0.3" {
			break
		}
	}

	res := run.Results()
	require.Len(t, res.Results, 3)
	assert.Equal(t, "10.0.0.3", res.Results[2].Address)
	assert.Len(t, p.Calls(), 3, "remaining probes abandoned")
	assert.False(t, run.Done())
	assert.NoError(t, run.Err())
}

func TestOutcomes_ProbeFailureContinues(t *testing.T) {
	p := testutil.NewFakeProber().
		Fail("10.0.0.1", errors.New("exec: ping: not found")).
		Reply("10.0.0.2", "garbage without figures")
	e := sweep.NewExecutor(p, testutil.Logger(t))

	res, err := e.Run(context.Background(), "", testutil.MustRange(t, "10.0.0.0/29"), nil)
	require.NoError(t, err)
	require.Len(t, res.Results, 6)

	assert.Equal(t, models.OutcomeProbeError, res.Results[0].Outcome)
	assert.Contains(t, res.Results[0].Error, "not found")
	assert.Equal(t, models.OutcomeProbeError, res.Results[1].Outcome)
	assert.NotEmpty(t, res.Results[1].Error)
	assert.Equal(t, models.OutcomeReachable, res.Results[2].Outcome)
}

func TestRun_ObserverAndCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := testutil.NewFakeProber()
	e := sweep.NewExecutor(p, nil)

	var observed int
	res, err := e.Run(ctx, "", testutil.MustRange(t, "10.0.0.0/24"), func(r models.ProbeResult) {
		observed++
		if observed == 5 {
			cancel()
		}
	})

	assert.True(t, sweep.IsCancelled(err))
	assert.Equal(t, 5, observed)
	assert.Len(t, res.Results, 5)
	assert.False(t, res.EndedAt.IsZero())
}

func TestRun_CancelledMidProbeIsNotRecorded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := testutil.NewFakeProber()
	p.OnProbe = func(_ context.Context, addr string) {
		if addr == "10.0.0.3" {
			cancel()
		}
	}
	e := sweep.NewExecutor(p, nil)

	res, err := e.Run(ctx, "", testutil.MustRange(t, "10.0.0.0/24"), nil)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "10.0.0.2", res.Results[1].Address)
}

func TestExecutor_ClockAndDurations(t *testing.T) {
	clock := testutil.NewTickingClock(time.Second)
	e := sweep.NewExecutor(testutil.NewFakeProber(), nil, sweep.WithClock(clock.Now))

	res, err := e.Run(context.Background(), "", testutil.MustRange(t, "10.0.0.0/30"), nil)
	require.NoError(t, err)

	assert.Equal(t, testutil.Epoch, res.StartedAt)
	for _, r := range res.Results {
		assert.Equal(t, time.Second, r.Duration)
	}
	assert.True(t, res.EndedAt.After(res.StartedAt))
}

func TestExecutor_RateLimit(t *testing.T) {
	e := sweep.NewExecutor(testutil.NewFakeProber(), nil, sweep.WithRateLimit(20))

	start := time.Now()
	res, err := e.Run(context.Background(), "", testutil.MustRange(t, "10.0.0.0/29"), nil)
	require.NoError(t, err)
	require.Len(t, res.Results, 6)

	// Burst of one, then 5 waits of 50ms.
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}

func TestExecutor_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := sweep.NewMetrics(reg)
	p := testutil.NewFakeProber().Reply("10.0.0.1", testutil.ReplyNoAnswer)
	e := sweep.NewExecutor(p, nil, sweep.WithMetrics(m))

	_, err := e.Run(context.Background(), "", testutil.MustRange(t, "10.0.0.0/30"), nil)
	require.NoError(t, err)

	count, err := promtest.GatherAndCount(reg, "rangeping_probes_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per outcome seen")

	count, err = promtest.GatherAndCount(reg, "rangeping_sweeps_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = promtest.GatherAndCount(reg, "rangeping_probe_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

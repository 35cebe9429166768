package rangeping_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/rangeping/internal/history"
	"github.com/HerbHall/rangeping/internal/probe"
	"github.com/HerbHall/rangeping/internal/rangecache"
	"github.com/HerbHall/rangeping/internal/rangeping"
	"github.com/HerbHall/rangeping/internal/report"
	"github.com/HerbHall/rangeping/internal/testutil"
)

type fixture struct {
	engine *rangeping.Engine
	prober *testutil.FakeProber
	args   []string
	dir    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	kv, err := rangecache.NewSQLiteKV(context.Background(), testutil.NewStore(t))
	require.NoError(t, err)

	f := &fixture{prober: testutil.NewFakeProber(), dir: t.TempDir()}
	logger := testutil.Logger(t)
	f.engine = rangeping.NewEngine(
		rangecache.New(kv, logger),
		history.NewStore(f.dir, logger),
		func(args string) probe.Prober {
			f.args = append(f.args, args)
			return f.prober
		},
		logger,
		rangeping.WithClock(testutil.NewClock().Now),
	)
	return f
}

func drain(t *testing.T, s *rangeping.Session, args string) {
	t.Helper()
	run, err := s.Sweep(context.Background(), args)
	require.NoError(t, err)
	for range run.Outcomes() {
	}
	require.NoError(t, run.Err())
}

func TestSession_SweepSummarizePersist(t *testing.T) {
	f := newFixture(t)
	f.prober.Reply("10.0.0.2", testutil.ReplyNoAnswer)
	s := f.engine.NewSession()

	e, err := s.ResolveRange(context.Background(), "lab", "10.0.0.0/29", "")
	require.NoError(t, err)
	assert.Equal(t, 6, e.HostCount)

	drain(t, s, "-c 1 {addr}")
	assert.Equal(t, []string{"-c 1 {addr}"}, f.args)

	summary, err := s.Summarize()
	require.NoError(t, err)
	assert.Equal(t, "6 IPs were pinged.\n"+
		"There were 5 results for \"yes\".\n"+
		"There was 1 result for \"no\".\n", summary)

	ok, err := s.PersistResults(true)
	require.NoError(t, err)
	assert.True(t, ok)

	raw, err := os.ReadFile(filepath.Join(f.dir, "lab.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "10.0.0.2,no\n")
	assert.Contains(t, string(raw), "Date,Wed Jan  1 00:00:00 2025\n")
}

func TestSession_AppendKeepsEarlierRuns(t *testing.T) {
	f := newFixture(t)
	s := f.engine.NewSession()
	_, err := s.ResolveRange(context.Background(), "lab", "10.0.0.0/30", "")
	require.NoError(t, err)

	drain(t, s, "")
	_, err = s.PersistResults(true)
	require.NoError(t, err)

	f.prober.Reply("10.0.0.1", testutil.ReplyPartial)
	drain(t, s, "")
	_, err = s.PersistResults(false)
	require.NoError(t, err)

	tbl, err := f.engine.History().Load("lab")
	require.NoError(t, err)
	require.Len(t, tbl.Runs(), 2)

	row, ok := tbl.Lookup("10.0.0.1")
	require.True(t, ok)
	assert.Equal(t, []string{"yes", "partial"}, row)
}

func TestSession_CachedRangeReused(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.NewSession().ResolveRange(context.Background(), "annex", "172.16.4.0", "255.255.255.252")
	require.NoError(t, err)

	e, err := f.engine.NewSession().ResolveRange(context.Background(), "annex", "", "")
	require.NoError(t, err)
	assert.Equal(t, "172.16.4.0/30", e.Range.CIDR())
}

func TestSession_Preconditions(t *testing.T) {
	f := newFixture(t)
	s := f.engine.NewSession()

	_, err := s.Sweep(context.Background(), "")
	assert.ErrorIs(t, err, rangeping.ErrNoRange)

	_, err = s.Summarize()
	assert.ErrorIs(t, err, report.ErrEmptyResults)

	_, err = s.PersistResults(false)
	assert.ErrorIs(t, err, history.ErrEmptyResults)
}

func TestSession_AnonymousRangeNotPersisted(t *testing.T) {
	f := newFixture(t)
	s := f.engine.NewSession()
	_, err := s.ResolveRange(context.Background(), "", "10.0.0.0/30", "")
	require.NoError(t, err)
	drain(t, s, "")

	ok, err := s.PersistResults(false)
	require.NoError(t, err)
	assert.False(t, ok)

	ids, err := f.engine.History().List()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

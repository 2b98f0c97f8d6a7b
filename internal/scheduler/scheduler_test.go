package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"networth-tracker/internal/models"
	"networth-tracker/internal/prices"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("@every 15m", &countingJob{}))
	require.NoError(t, s.AddJob("*/5 * * * *", &countingJob{}))
	assert.Error(t, s.AddJob("not a schedule", &countingJob{}))
	assert.Equal(t, 2, s.Jobs())
}

func TestScheduler_RunsJobOnSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{err: errors.New("boom")}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return job.runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{}
	require.NoError(t, s.RunNow(job))
	assert.EqualValues(t, 1, job.runs.Load())
}

type fakeRefresher struct {
	userID  string
	opts    prices.FetchOptions
	results map[string]models.PriceResult
	err     error
	started chan struct{}
	block   chan struct{}
}

func (f *fakeRefresher) RefreshUser(_ context.Context, _ prices.HoldingLister, userID string, opts prices.FetchOptions) (map[string]models.PriceResult, error) {
	if f.block != nil {
		close(f.started)
		<-f.block
	}
	f.userID = userID
	f.opts = opts
	return f.results, f.err
}

func TestRefreshPricesJob_RefreshesEveryone(t *testing.T) {
	r := &fakeRefresher{results: map[string]models.PriceResult{
		"h1": {Symbol: "CBA.AX"},
		"h2": {Symbol: "bitcoin", IsStale: true},
	}}
	job := NewRefreshPricesJob(RefreshPricesConfig{Refresher: r, Log: zerolog.Nop()})

	assert.Equal(t, RefreshPricesJobName, job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, "", r.userID)
	assert.False(t, r.opts.ForceRefresh, "scheduled refresh respects the cache TTL")
}

func TestRefreshPricesJob_PropagatesListingErrors(t *testing.T) {
	r := &fakeRefresher{err: errors.New("database is locked")}
	job := NewRefreshPricesJob(RefreshPricesConfig{Refresher: r, Log: zerolog.Nop()})
	assert.Error(t, job.Run())
}

func TestRefreshPricesJob_SkipsOverlappingRuns(t *testing.T) {
	r := &fakeRefresher{started: make(chan struct{}), block: make(chan struct{})}
	job := NewRefreshPricesJob(RefreshPricesConfig{Refresher: r, Log: zerolog.Nop()})

	done := make(chan error, 1)
	go func() { done <- job.Run() }()

	<-r.started

	assert.NoError(t, job.Run())
	close(r.block)
	assert.NoError(t, <-done)
}

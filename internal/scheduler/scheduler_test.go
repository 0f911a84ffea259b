package scheduler

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsegen/internal/config"
	"pulsegen/internal/logger"
)

type dispatchRecorder struct {
	mu      sync.Mutex
	byTeam  map[string]int
	total   int
	delay   map[string]time.Duration
	firstID map[string]int64
}

func newDispatchRecorder() *dispatchRecorder {
	return &dispatchRecorder{
		byTeam:  make(map[string]int),
		delay:   make(map[string]time.Duration),
		firstID: make(map[string]int64),
	}
}

func (d *dispatchRecorder) dispatch(rng *rand.Rand, teamID string) error {
	d.mu.Lock()
	if _, ok := d.firstID[teamID]; !ok {
		d.firstID[teamID] = rng.Int63()
	}
	d.byTeam[teamID]++
	d.total++
	delay := d.delay[teamID]
	d.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	return nil
}

func (d *dispatchRecorder) counts() (map[string]int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	byTeam := make(map[string]int, len(d.byTeam))
	for team, n := range d.byTeam {
		byTeam[team] = n
	}
	return byTeam, d.total
}

func runFor(t *testing.T, s *Scheduler, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	err := s.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSchedulerGlobalRate(t *testing.T) {
	recorder := newDispatchRecorder()
	cfg := config.GeneratorConfig{RatePerSec: 100, Seed: 1, SeedSet: true}
	s := New(cfg, []string{"shared"}, recorder.dispatch, logger.NopLogger())

	runFor(t, s, 500*time.Millisecond)

	_, total := recorder.counts()
	// 100/s over 0.5s; generous tolerance for timer jitter.
	assert.GreaterOrEqual(t, total, 30)
	assert.LessOrEqual(t, total, 60)
}

func TestSchedulerGlobalRoundRobin(t *testing.T) {
	recorder := newDispatchRecorder()
	cfg := config.GeneratorConfig{RatePerSec: 200, Seed: 1, SeedSet: true}
	teams := []string{"team01", "team02", "team03"}
	s := New(cfg, teams, recorder.dispatch, logger.NopLogger())

	runFor(t, s, 300*time.Millisecond)

	byTeam, total := recorder.counts()
	require.Greater(t, total, 0)
	// Round-robin keeps per-team counts within one tick of each other.
	for _, team := range teams {
		assert.InDelta(t, total/len(teams), byTeam[team], 1)
	}
}

func TestSchedulerPerTeamIsolation(t *testing.T) {
	recorder := newDispatchRecorder()
	// team02's dispatch stalls; team01's stream must keep its rate.
	recorder.delay["team02"] = 100 * time.Millisecond

	cfg := config.GeneratorConfig{RatePerSec: 100, RatePerTeam: true, Seed: 1, SeedSet: true}
	s := New(cfg, []string{"team01", "team02"}, recorder.dispatch, logger.NopLogger())

	runFor(t, s, 500*time.Millisecond)

	byTeam, _ := recorder.counts()
	assert.GreaterOrEqual(t, byTeam["team01"], 30)
	assert.LessOrEqual(t, byTeam["team02"], 7)
}

func TestSchedulerPerTeamIndependentSequences(t *testing.T) {
	recorder := newDispatchRecorder()
	cfg := config.GeneratorConfig{RatePerSec: 50, RatePerTeam: true, Seed: 42, SeedSet: true}
	s := New(cfg, []string{"team01", "team02"}, recorder.dispatch, logger.NopLogger())

	runFor(t, s, 200*time.Millisecond)

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	require.Len(t, recorder.firstID, 2)
	// Same base seed, distinct per-team fold: streams must not mirror
	// each other.
	assert.NotEqual(t, recorder.firstID["team01"], recorder.firstID["team02"])
}

func TestSchedulerSeededSequencesReproduce(t *testing.T) {
	run := func() int64 {
		recorder := newDispatchRecorder()
		cfg := config.GeneratorConfig{RatePerSec: 50, Seed: 42, SeedSet: true}
		s := New(cfg, []string{"shared"}, recorder.dispatch, logger.NopLogger())
		runFor(t, s, 100*time.Millisecond)

		recorder.mu.Lock()
		defer recorder.mu.Unlock()
		return recorder.firstID["shared"]
	}

	assert.Equal(t, run(), run())
}

func TestSchedulerTickingFlag(t *testing.T) {
	recorder := newDispatchRecorder()
	cfg := config.GeneratorConfig{RatePerSec: 10, Seed: 1, SeedSet: true}
	s := New(cfg, []string{"shared"}, recorder.dispatch, logger.NopLogger())

	assert.False(t, s.Ticking())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, s.Ticking, time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	assert.False(t, s.Ticking())
}

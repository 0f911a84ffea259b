package scheduler

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"pulsegen/internal/config"
	"pulsegen/internal/logger"
	"pulsegen/pkg/metrics"
)

// DispatchFunc receives one produce-now tick. The rng is owned by the
// calling token stream; implementations draw all randomness from it.
type DispatchFunc func(rng *rand.Rand, teamID string) error

// Scheduler issues produce-now ticks at the configured rate. Global mode
// runs one token stream shared by all teams (round-robin selection);
// per-team mode runs one independent stream per team, so a slow team
// cannot starve another's throughput. The scheduler blocks only on its
// own timer, never on delivery I/O.
type Scheduler struct {
	cfg      config.GeneratorConfig
	teams    []string
	dispatch DispatchFunc
	logger   logger.Logger
	ticking  atomic.Bool
}

func New(cfg config.GeneratorConfig, teams []string, dispatch DispatchFunc, log logger.Logger) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		teams:    teams,
		dispatch: dispatch,
		logger:   log,
	}
}

// Ticking reports whether the scheduler has begun issuing ticks. The
// health reporter gates readiness on it.
func (s *Scheduler) Ticking() bool {
	return s.ticking.Load()
}

// Run blocks until ctx is cancelled. Cancellation stops new ticks;
// draining in-flight deliveries is the pipeline's concern.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ticking.Store(true)
	defer s.ticking.Store(false)

	if s.cfg.RatePerTeam && len(s.teams) > 1 {
		return s.runPerTeam(ctx)
	}
	return s.runGlobal(ctx)
}

func (s *Scheduler) runGlobal(ctx context.Context) error {
	s.logger.Infow("Scheduler started",
		"mode", "global",
		"rate_per_sec", s.cfg.RatePerSec,
		"teams", len(s.teams),
	)

	rng := s.newRand("")
	limiter := rate.NewLimiter(rate.Limit(s.cfg.RatePerSec), 1)

	idx := 0
	for {
		if err := limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}

		teamID := s.teams[idx%len(s.teams)]
		idx++

		s.tick(ctx, rng, teamID)
	}
}

func (s *Scheduler) runPerTeam(ctx context.Context) error {
	s.logger.Infow("Scheduler started",
		"mode", "per_team",
		"rate_per_sec", s.cfg.RatePerSec,
		"teams", len(s.teams),
	)

	g, gCtx := errgroup.WithContext(ctx)
	for _, teamID := range s.teams {
		teamID := teamID
		g.Go(func() error {
			rng := s.newRand(teamID)
			limiter := rate.NewLimiter(rate.Limit(s.cfg.RatePerSec), 1)
			for {
				if err := limiter.Wait(gCtx); err != nil {
					return gCtx.Err()
				}
				s.tick(gCtx, rng, teamID)
			}
		})
	}
	return g.Wait()
}

func (s *Scheduler) tick(ctx context.Context, rng *rand.Rand, teamID string) {
	metrics.SchedulerTicksTotal.WithLabelValues(teamID).Inc()
	if err := s.dispatch(rng, teamID); err != nil {
		// Dispatch errors are invariant violations (validated away at
		// startup), not a runtime path.
		s.logger.ErrorwCtx(ctx, "Dispatch failed",
			"team_id", teamID,
			"error", err,
		)
	}
}

// newRand builds the token stream's random source. With RANDOM_SEED set
// the sequence is fully deterministic; per-team streams fold the team id
// into the seed so teams draw independent sequences.
func (s *Scheduler) newRand(teamID string) *rand.Rand {
	if !s.cfg.SeedSet {
		return rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	seed := s.cfg.Seed
	if teamID != "" {
		h := fnv.New64a()
		h.Write([]byte(teamID))
		seed ^= int64(h.Sum64())
	}
	return rand.New(rand.NewSource(seed))
}

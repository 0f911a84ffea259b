package health

import (
	"context"
	"sync"
	"time"

	"pulsegen/internal/config"
	"pulsegen/internal/logger"
	"pulsegen/pkg/metrics"
)

type Phase string

const (
	PhaseStarting   Phase = "starting"
	PhaseReady      Phase = "ready"
	PhaseDegraded   Phase = "degraded"
	PhaseTerminated Phase = "terminated"
)

// CounterSource is the narrow read interface the reporter has into the
// pipeline: aggregate counters and a last-error summary, nothing else.
type CounterSource interface {
	Totals() (success, failure uint64)
	LastError() string
}

// TickSource reports whether the scheduler has begun ticking.
type TickSource interface {
	Ticking() bool
}

type sample struct {
	success uint64
	failure uint64
	at      time.Time
}

// Reporter projects pipeline counters and scheduler state into the
// process lifecycle phase. It owns no delivery state itself.
//
// starting --(team resolved AND scheduler ticking)--> ready
// ready    --(window failure ratio > threshold)-----> degraded
// degraded --(window failure ratio recovers)--------> ready
// ready/degraded --(shutdown)-----------------------> terminated
type Reporter struct {
	cfg            config.HealthConfig
	teams          int
	configuredRate float64
	counters       CounterSource
	scheduler      TickSource
	logger         logger.Logger

	mu           sync.RWMutex
	phase        Phase
	lastError    string
	observedRate float64
	window       []sample
}

func NewReporter(cfg config.HealthConfig, teams int, configuredRate float64, counters CounterSource, scheduler TickSource, log logger.Logger) *Reporter {
	r := &Reporter{
		cfg:            cfg,
		teams:          teams,
		configuredRate: configuredRate,
		counters:       counters,
		scheduler:      scheduler,
		logger:         log,
		phase:          PhaseStarting,
		observedRate:   configuredRate,
	}
	metrics.HealthPhase.Set(phaseValue(PhaseStarting))
	return r
}

// Run samples counters on a fixed interval until ctx is cancelled, then
// marks the process terminated.
func (r *Reporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.setPhase(PhaseTerminated)
			return ctx.Err()
		case now := <-ticker.C:
			r.sample(now)
		}
	}
}

func (r *Reporter) sample(now time.Time) {
	success, failure := r.counters.Totals()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.window = append(r.window, sample{success: success, failure: failure, at: now})
	if len(r.window) > r.cfg.WindowSamples+1 {
		r.window = r.window[1:]
	}
	r.lastError = r.counters.LastError()

	r.updateRate()
	r.transition()
}

// updateRate computes the realized publish rate over the trailing
// window. Until the window holds two samples the configured rate stands
// in.
func (r *Reporter) updateRate() {
	if len(r.window) < 2 {
		r.observedRate = r.configuredRate
		return
	}
	first, last := r.window[0], r.window[len(r.window)-1]
	elapsed := last.at.Sub(first.at).Seconds()
	if elapsed <= 0 {
		return
	}
	r.observedRate = float64(last.success-first.success) / elapsed
	metrics.EffectiveRate.Set(r.observedRate)
}

func (r *Reporter) transition() {
	switch r.phase {
	case PhaseStarting:
		if r.teams > 0 && r.scheduler.Ticking() {
			r.phase = PhaseReady
			metrics.HealthPhase.Set(phaseValue(PhaseReady))
			r.logger.Infow("Generator ready",
				"teams", r.teams,
				"rate_per_sec", r.configuredRate,
			)
		}
	case PhaseReady:
		if ratio, ok := r.windowFailureRatio(); ok && ratio > r.cfg.DegradedRatio {
			r.phase = PhaseDegraded
			metrics.HealthPhase.Set(phaseValue(PhaseDegraded))
			r.logger.Warnw("Generator degraded",
				"failure_ratio", ratio,
				"threshold", r.cfg.DegradedRatio,
				"last_error", r.lastError,
			)
		}
	case PhaseDegraded:
		ratio, ok := r.windowFailureRatio()
		if !ok || ratio <= r.cfg.DegradedRatio {
			r.phase = PhaseReady
			metrics.HealthPhase.Set(phaseValue(PhaseReady))
			r.logger.Infow("Generator recovered")
		}
	}
}

// windowFailureRatio reports failed deliveries as a fraction of all
// delivery outcomes across the trailing window. ok is false while the
// window has seen no outcomes.
func (r *Reporter) windowFailureRatio() (float64, bool) {
	if len(r.window) < 2 {
		return 0, false
	}
	first, last := r.window[0], r.window[len(r.window)-1]
	successes := last.success - first.success
	failures := last.failure - first.failure
	total := successes + failures
	if total == 0 {
		return 0, false
	}
	return float64(failures) / float64(total), true
}

func (r *Reporter) setPhase(p Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phase = p
	metrics.HealthPhase.Set(phaseValue(p))
}

func (r *Reporter) Phase() Phase {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.phase
}

// Readiness is the body of GET /ready.
type Readiness struct {
	Status string  `json:"status"`
	Teams  int     `json:"teams"`
	Rate   float64 `json:"rate"`
}

func (r *Reporter) Readiness() Readiness {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Readiness{
		Status: string(r.phase),
		Teams:  r.teams,
		Rate:   r.observedRate,
	}
}

func (r *Reporter) LastError() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastError
}

func phaseValue(p Phase) float64 {
	switch p {
	case PhaseReady:
		return 1
	case PhaseDegraded:
		return 2
	case PhaseTerminated:
		return 3
	default:
		return 0
	}
}

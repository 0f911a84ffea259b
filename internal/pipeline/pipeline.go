package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"

	"pulsegen/internal/broker"
	"pulsegen/internal/config"
	"pulsegen/internal/constants"
	"pulsegen/internal/events"
	"pulsegen/internal/logger"
	"pulsegen/internal/routing"
	"pulsegen/pkg/circuitbreaker"
	"pulsegen/pkg/logging"
	"pulsegen/pkg/metrics"
	"pulsegen/pkg/retry"
)

// DeliveryError classifies a failed delivery attempt for one team.
type DeliveryError struct {
	TeamID string
	Cause  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to team %q failed: %v", e.TeamID, e.Cause)
}

func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

type job struct {
	target routing.Target
	stream string
	key    []byte
	value  []byte
}

// worker owns one team's delivery path: a bounded queue, a lazily
// created long-lived producer and that team's counters. At most one
// delivery is in flight per team, which preserves per-team ordering.
type worker struct {
	teamID     string
	jobs       chan job
	producer   broker.Producer
	breaker    *circuitbreaker.Wrapper
	counters   *TeamCounters
	failStreak uint64
}

// Pipeline composes envelopes and fans them out to per-team delivery
// workers. A slow or failing team never blocks another team's path.
type Pipeline struct {
	cfg      *config.Config
	registry *events.Registry
	router   *routing.Router
	factory  broker.Factory
	logger   logger.Logger

	streams     []string
	cumWeights  []float64
	totalWeight float64

	workers  map[string]*worker
	produced atomic.Uint64
	lastErr  atomic.Value
	wg       sync.WaitGroup
}

// New builds one worker per routable team. Producers are not created
// here; each is established on its team's first delivery.
func New(cfg *config.Config, registry *events.Registry, router *routing.Router, factory broker.Factory, log logger.Logger) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		registry: registry,
		router:   router,
		factory:  factory,
		logger:   log,
		streams:  cfg.Generator.Streams,
		workers:  make(map[string]*worker),
	}

	p.cumWeights, p.totalWeight = cumulativeWeights(cfg.Generator.Streams, cfg.Generator.StreamWeights)

	for _, teamID := range router.Teams() {
		w := &worker{
			teamID:   teamID,
			jobs:     make(chan job, cfg.Generator.QueueCapacity),
			counters: &TeamCounters{},
		}
		if cfg.CircuitBreaker.Enabled {
			w.breaker = circuitbreaker.NewWrapper(circuitbreaker.Config{
				Name:        "publish-" + teamID,
				MaxRequests: cfg.CircuitBreaker.MaxRequests,
				Interval:    cfg.CircuitBreaker.Interval,
				Timeout:     cfg.CircuitBreaker.Timeout,
				ReadyToTrip: readyToTrip(cfg.CircuitBreaker),
			})
		}
		p.workers[teamID] = w
	}

	return p
}

func cumulativeWeights(streams []string, weights []float64) ([]float64, float64) {
	cum := make([]float64, len(streams))
	var total float64
	for i := range streams {
		w := 1.0
		if len(weights) == len(streams) {
			w = weights[i]
		}
		total += w
		cum[i] = total
	}
	return cum, total
}

func readyToTrip(cfg config.CircuitBreakerConfig) func(counts gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureRatio
	}
}

// Start launches the delivery workers. ctx bounds in-flight attempts
// during drain: cancel it to force-stop workers that have not finished
// within the grace period.
func (p *Pipeline) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *worker) {
			defer p.wg.Done()
			p.runWorker(ctx, w)
		}(w)
	}
}

// Dispatch draws a stream, synthesizes one envelope and enqueues it on
// the team's delivery queue. It never blocks: a full queue drops the
// envelope and counts it. Callers own rng; all randomness for one token
// stream flows through a single rng on a single goroutine, which keeps
// seeded runs reproducible.
func (p *Pipeline) Dispatch(rng *rand.Rand, teamID string) error {
	stream := p.pickStream(rng)

	event, err := p.registry.Synthesize(stream, rng)
	if err != nil {
		return err
	}

	value, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal %s envelope: %w", stream, err)
	}

	target, err := p.router.Resolve(teamID)
	if err != nil {
		return err
	}

	metrics.EventsSynthesizedTotal.WithLabelValues(stream).Inc()

	w := p.workers[teamID]
	select {
	case w.jobs <- job{target: target, stream: stream, key: []byte(event.Key), value: value}:
	default:
		w.counters.dropped.Add(1)
		metrics.EventsDroppedTotal.WithLabelValues(teamID, "queue_full").Inc()
	}

	if n := p.produced.Add(1); n%constants.ProgressLogInterval == 0 {
		p.logger.Infow("Produced events",
			"count", n,
			"teams", len(p.workers),
		)
	}

	return nil
}

func (p *Pipeline) pickStream(rng *rand.Rand) string {
	if len(p.streams) == 1 {
		return p.streams[0]
	}
	v := rng.Float64() * p.totalWeight
	for i, cum := range p.cumWeights {
		if v < cum {
			return p.streams[i]
		}
	}
	return p.streams[len(p.streams)-1]
}

func (p *Pipeline) runWorker(ctx context.Context, w *worker) {
	workerCtx := logging.WithTeamID(ctx, w.teamID)
	for j := range w.jobs {
		if ctx.Err() != nil {
			// Forced shutdown: drain the queue without delivering.
			w.counters.dropped.Add(1)
			metrics.EventsDroppedTotal.WithLabelValues(w.teamID, "shutdown").Inc()
			continue
		}
		p.deliver(workerCtx, w, j)
	}

	if w.producer != nil {
		if err := w.producer.Close(); err != nil {
			p.logger.ErrorwCtx(workerCtx, "Error closing producer", "error", err)
		}
	}
}

// deliver makes up to MaxAttempts delivery attempts with exponential
// backoff, then drops the envelope. At-most-once: a dropped envelope is
// never requeued.
func (p *Pipeline) deliver(ctx context.Context, w *worker, j job) {
	policy := retry.Policy{
		MaxAttempts:     p.cfg.Retry.MaxAttempts,
		InitialInterval: p.cfg.Retry.InitialInterval,
		MaxInterval:     p.cfg.Retry.MaxInterval,
		Multiplier:      p.cfg.Retry.Multiplier,
	}

	start := time.Now()
	err := retry.RetryWithCallback(ctx, policy, func() error {
		return p.attempt(ctx, w, j)
	}, func(attempt int, attemptErr error, nextDelay time.Duration) {
		metrics.PublishRetryAttemptsTotal.WithLabelValues(w.teamID).Inc()
		p.logger.WarnwCtx(ctx, "Retrying delivery",
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"next_delay", nextDelay,
			"error", attemptErr,
		)
	})
	metrics.ObservePublishDuration(w.teamID, time.Since(start))

	if err != nil {
		deliveryErr := &DeliveryError{TeamID: w.teamID, Cause: err}
		w.counters.failure.Add(1)
		w.failStreak++
		p.lastErr.Store(deliveryErr.Error())
		metrics.PublishAttemptsTotal.WithLabelValues(w.teamID, "failure").Inc()
		metrics.EventsDroppedTotal.WithLabelValues(w.teamID, "retries_exhausted").Inc()

		// Log every Nth consecutive failure to avoid spam.
		if w.failStreak%constants.FailureLogInterval == 1 {
			p.logger.ErrorwCtx(ctx, "Delivery failed, dropping event",
				"stream", j.stream,
				"topic", j.target.Topic,
				"consecutive_failures", w.failStreak,
				"error", deliveryErr,
			)
		}
		return
	}

	w.counters.success.Add(1)
	w.failStreak = 0
	metrics.PublishAttemptsTotal.WithLabelValues(w.teamID, "success").Inc()
}

func (p *Pipeline) attempt(ctx context.Context, w *worker, j job) error {
	if w.producer == nil {
		w.producer = p.factory(j.target.Bootstrap)
		p.logger.InfowCtx(ctx, "Connected producer",
			"bootstrap", j.target.Bootstrap,
			"topic", j.target.Topic,
		)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.Retry.AttemptTimeout)
	defer cancel()

	var err error
	if w.breaker != nil {
		_, err = w.breaker.ExecuteWithContext(attemptCtx, func() (interface{}, error) {
			return nil, w.producer.Publish(attemptCtx, j.target.Topic, j.key, j.value)
		})
		w.breaker.RecordRequest(err == nil)
	} else {
		err = w.producer.Publish(attemptCtx, j.target.Topic, j.key, j.value)
	}

	if err != nil && ctx.Err() != nil {
		// Shutdown in progress: do not burn backoff waits on it.
		return retry.NewFatalError(err)
	}
	return err
}

// Close stops accepting work. Call only after all dispatchers have
// stopped; workers drain their queues and exit.
func (p *Pipeline) Close() {
	for _, w := range p.workers {
		close(w.jobs)
	}
}

// Wait blocks until every worker has drained and closed its producer.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Totals aggregates success/failure counts across teams for the health
// reporter.
func (p *Pipeline) Totals() (success, failure uint64) {
	for _, w := range p.workers {
		success += w.counters.success.Load()
		failure += w.counters.failure.Load()
	}
	return success, failure
}

// TeamSnapshot returns one team's counters.
func (p *Pipeline) TeamSnapshot(teamID string) (Snapshot, bool) {
	w, ok := p.workers[teamID]
	if !ok {
		return Snapshot{}, false
	}
	return w.counters.snapshot(), true
}

// LastError returns a summary of the most recent delivery failure.
func (p *Pipeline) LastError() string {
	if v := p.lastErr.Load(); v != nil {
		return v.(string)
	}
	return ""
}

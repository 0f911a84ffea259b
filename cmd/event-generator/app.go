package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"pulsegen/internal/broker"
	"pulsegen/internal/config"
	"pulsegen/internal/constants"
	"pulsegen/internal/events"
	"pulsegen/internal/health"
	"pulsegen/internal/logger"
	"pulsegen/internal/pipeline"
	"pulsegen/internal/routing"
	"pulsegen/internal/scheduler"
	"pulsegen/pkg/metrics"
	"pulsegen/pkg/middleware"
)

type App struct {
	config     *config.Config
	logger     logger.Logger
	instanceID string

	registry  *events.Registry
	router    *routing.Router
	pipeline  *pipeline.Pipeline
	scheduler *scheduler.Scheduler
	reporter  *health.Reporter
	server    *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("event-generator")
	}
	return &App{
		config:     cfg,
		logger:     log,
		instanceID: uuid.NewString(),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	a.registry = events.NewRegistry(a.config.Generator.Regions)
	if err := a.registry.Validate(a.config.Generator.Streams); err != nil {
		return fmt.Errorf("invalid event streams: %w", err)
	}

	router, err := routing.NewRouter(a.config)
	if err != nil {
		return fmt.Errorf("failed to build routing table: %w", err)
	}
	a.router = router

	metrics.RegisterGeneratorMetrics()
	if a.config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}
	metrics.TeamsResolved.Set(float64(router.TeamCount()))

	factory := broker.NewFactory(a.config.Kafka, a.logger)
	a.pipeline = pipeline.New(a.config, a.registry, router, factory, a.logger)

	a.scheduler = scheduler.New(a.config.Generator, router.Teams(), a.pipeline.Dispatch, a.logger)

	a.reporter = health.NewReporter(
		a.config.Health,
		router.TeamCount(),
		a.config.Generator.RatePerSec,
		a.pipeline,
		a.scheduler,
		a.logger,
	)

	a.initHTTPServer()

	a.logger.InfowCtx(ctx, "Generator initialized",
		"instance", a.instanceID,
		"mode", router.Mode().String(),
		"teams", router.Teams(),
		"streams", a.config.Generator.Streams,
		"rate_per_sec", a.config.Generator.RatePerSec,
		"rate_per_team", a.config.Generator.RatePerTeam,
	)

	return nil
}

func (a *App) initHTTPServer() {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(middleware.RecoveryMiddleware(a.logger))
	engine.Use(middleware.LoggerMiddleware(a.logger))

	health.NewHandler(a.reporter, a.instanceID).RegisterRoutes(engine)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.Server.Port),
		Handler:      engine,
		ReadTimeout:  a.config.Server.ReadTimeoutSeconds,
		WriteTimeout: a.config.Server.WriteTimeoutSeconds,
	}
}

// Run drives the generator until ctx is cancelled, then drains in-flight
// deliveries within the configured grace period.
func (a *App) Run(ctx context.Context) error {
	// Workers outlive ctx so queued deliveries can drain; drainCancel
	// force-stops them when the grace period expires.
	drainCtx, drainCancel := context.WithCancel(context.Background())
	defer drainCancel()

	a.pipeline.Start(drainCtx)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.InfowCtx(ctx, "HTTP server starting", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return a.scheduler.Run(gCtx)
	})

	g.Go(func() error {
		return a.reporter.Run(gCtx)
	})

	err := g.Wait()

	a.drain(drainCancel)

	return err
}

// drain lets workers flush their queues, forcing termination once the
// grace period is over. Ticks have already stopped by the time this runs.
func (a *App) drain(drainCancel context.CancelFunc) {
	a.logger.Infow("Draining delivery workers",
		"grace_period", a.config.Server.DrainGracePeriod,
	)

	a.pipeline.Close()

	done := make(chan struct{})
	go func() {
		a.pipeline.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.logger.Infow("Drain complete")
	case <-time.After(a.config.Server.DrainGracePeriod):
		a.logger.Warnw("Drain grace period expired, forcing shutdown")
		drainCancel()
		<-done
	}
}

// Package cleanup provides the background session expiry worker
package cleanup

import (
	"context"
	"time"

	"github.com/afritokeni/ussd-gateway/internal/infrastructure/caching/interfaces"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/logging"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/performance"
)

// IdleEvictor drops per-key state nobody has used recently
type IdleEvictor interface {
	EvictIdle(now time.Time) int
}

// Worker sweeps expired sessions on a fixed interval, independent of request traffic
type Worker struct {
	store    interfaces.SessionStore
	evictors []IdleEvictor
	config   *Config
	logger   *logging.ChanneledLogger
	tracker  *performance.Tracker
}

// NewWorker creates a sweep worker. tracker and evictors are optional.
func NewWorker(store interfaces.SessionStore, config *Config, logger *logging.ChanneledLogger, tracker *performance.Tracker, evictors ...IdleEvictor) *Worker {
	return &Worker{
		store:    store,
		evictors: evictors,
		config:   config,
		logger:   logger,
		tracker:  tracker,
	}
}

// Start runs the sweep loop until ctx is cancelled
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.SweepInterval)
	defer ticker.Stop()

	w.logger.Session().Info("Session sweep worker started",
		"interval", w.config.SweepInterval, "verbose", w.config.VerboseReporting)

	for {
		select {
		case <-ctx.Done():
			w.logger.Session().Info("Session sweep worker stopping")
			return
		case <-ticker.C:
			w.performSweep(ctx)
		}
	}
}

// performSweep removes expired sessions once and returns how many were removed
func (w *Worker) performSweep(ctx context.Context) int {
	start := time.Now()
	var marker *performance.Marker
	if w.tracker != nil {
		marker = w.tracker.StartOperation("session_sweep")
		defer marker.Complete()
	}

	removed, err := w.store.SweepExpired(ctx)
	if err != nil {
		w.logger.LogError(logging.ChannelSession, "sweep_expired", err, nil)
		if marker != nil {
			marker.SetError(err)
		}
		return removed
	}
	if marker != nil {
		marker.SetSuccess(true)
	}
	if w.tracker != nil {
		w.tracker.RecordSwept(removed)
	}

	evicted := 0
	for _, e := range w.evictors {
		evicted += e.EvictIdle(start)
	}

	duration := time.Since(start)
	if removed > 0 || evicted > 0 {
		w.logger.Session().Info("Session sweep finished",
			"removed", removed, "limiterEvicted", evicted, "duration", duration)
	}
	if w.config.VerboseReporting {
		remaining, _ := w.store.Count(ctx)
		NewReporter(w.logger).Report(SweepReport{
			Removed:        removed,
			Remaining:      remaining,
			LimiterEvicted: evicted,
			Duration:       duration,
		})
	}
	return removed
}

// Package tracking records per-translation experiment runs (parameters, metrics and
// text artifacts) to observability sinks. Sinks are best effort: callers go through
// Recorder, which logs and discards sink failures so tracking can never change the
// outcome of a translation.
package tracking

import (
	"context"
	"time"

	"github.com/ClareAI/astra-translation-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Run is one tracked translation attempt
type Run struct {
	Experiment string             `json:"experiment"`
	RunID      string             `json:"run_id"`
	StartedAt  time.Time          `json:"started_at"`
	Params     map[string]string  `json:"params"`
	Metrics    map[string]float64 `json:"metrics"`
	Artifacts  map[string]string  `json:"artifacts,omitempty"`
}

// NewRun starts a run for experiment with a fresh id
func NewRun(experiment string) *Run {
	return &Run{
		Experiment: experiment,
		RunID:      uuid.New().String(),
		StartedAt:  time.Now().UTC(),
		Params:     make(map[string]string),
		Metrics:    make(map[string]float64),
		Artifacts:  make(map[string]string),
	}
}

// LogParam records a run parameter
func (r *Run) LogParam(key, value string) {
	r.Params[key] = value
}

// LogMetric records a run metric
func (r *Run) LogMetric(key string, value float64) {
	r.Metrics[key] = value
}

// LogText records a text artifact under name
func (r *Run) LogText(text, name string) {
	r.Artifacts[name] = text
}

// Tracker persists runs to a sink
type Tracker interface {
	Track(ctx context.Context, run *Run) error
	Close() error
}

// Noop discards every run
type Noop struct{}

func (Noop) Track(context.Context, *Run) error { return nil }
func (Noop) Close() error                      { return nil }

// MultiTracker fans a run out to every sink and combines their errors
type MultiTracker struct {
	trackers []Tracker
}

// NewMultiTracker creates a tracker over the given sinks. Nil sinks are skipped.
func NewMultiTracker(trackers ...Tracker) *MultiTracker {
	m := &MultiTracker{}
	for _, t := range trackers {
		if t != nil {
			m.trackers = append(m.trackers, t)
		}
	}
	return m
}

func (m *MultiTracker) Track(ctx context.Context, run *Run) error {
	var err error
	for _, t := range m.trackers {
		err = multierr.Append(err, t.Track(ctx, run))
	}
	return err
}

func (m *MultiTracker) Close() error {
	var err error
	for _, t := range m.trackers {
		err = multierr.Append(err, t.Close())
	}
	return err
}

// Len returns the number of sinks
func (m *MultiTracker) Len() int {
	return len(m.trackers)
}

// Recorder submits runs to a Tracker and swallows its failures.
type Recorder struct {
	tracker Tracker
	timeout time.Duration
}

// NewRecorder wraps tracker. timeout bounds each submission; zero means no bound.
func NewRecorder(tracker Tracker, timeout time.Duration) *Recorder {
	if tracker == nil {
		tracker = Noop{}
	}
	return &Recorder{tracker: tracker, timeout: timeout}
}

// Record submits run. It never fails: sink errors are logged at warn level.
// The submission is detached from ctx cancellation so a finished request still gets tracked.
func (r *Recorder) Record(ctx context.Context, run *Run) {
	tctx := context.WithoutCancel(ctx)
	if r.timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(tctx, r.timeout)
		defer cancel()
	}

	defer func() {
		if p := recover(); p != nil {
			logger.FromContext(ctx).Warn("tracking sink panicked", zap.Any("panic", p), zap.String("run_id", run.RunID))
		}
	}()

	if err := r.tracker.Track(tctx, run); err != nil {
		logger.FromContext(ctx).Warn("tracking failed, run discarded",
			zap.String("run_id", run.RunID),
			zap.String("experiment", run.Experiment),
			zap.Error(err),
		)
	}
}

// Close closes the underlying tracker
func (r *Recorder) Close() error {
	return r.tracker.Close()
}

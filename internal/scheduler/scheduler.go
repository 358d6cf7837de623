package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ORBSentinel/internal/metrics"
	"ORBSentinel/internal/model"
	"ORBSentinel/internal/notifier"
	"ORBSentinel/internal/recorder"
	"ORBSentinel/internal/state"
	"ORBSentinel/internal/strategy"
)

// DataCollector fetches the raw series for one cycle.
type DataCollector interface {
	Collect(ctx context.Context) (*model.MarketData, error)
}

// Evaluator turns raw series into today's evaluation.
type Evaluator interface {
	Evaluate(data *model.MarketData) (*model.Evaluation, error)
}

// Options controls when cycles run.
type Options struct {
	PollInterval time.Duration
	WindowStart  strategy.Clock
	WindowLength time.Duration
	Location     *time.Location
	FetchTimeout time.Duration
}

// Scheduler runs the fetch, evaluate, notify and record cycle on a cron tick.
type Scheduler struct {
	cron      *cron.Cron
	collector DataCollector
	engine    Evaluator
	notifier  notifier.Notifier
	recorder  recorder.Recorder
	tracker   *state.Tracker
	metrics   *metrics.Metrics
	opts      Options

	mu  sync.Mutex // one cycle at a time, cron tick or /run
	now func() time.Time
}

// New creates a Scheduler. rec and m may be nil.
func New(col DataCollector, eng Evaluator, n notifier.Notifier, rec recorder.Recorder, tr *state.Tracker, m *metrics.Metrics, opts Options) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Minute
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = time.Minute
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if m == nil {
		m = metrics.New()
	}
	if n == nil {
		n = notifier.NoopNotifier{}
	}

	logger := cronLogger{log.With().Str("component", "cron").Logger()}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(opts.Location),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		collector: col,
		engine:    eng,
		notifier:  n,
		recorder:  rec,
		tracker:   tr,
		metrics:   m,
		opts:      opts,
		now:       time.Now,
	}
}

// Start registers the polling job and starts the cron scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %ds", int(s.opts.PollInterval.Seconds()))
	if _, err := s.cron.AddFunc(spec, func() { s.Tick(ctx) }); err != nil {
		return fmt.Errorf("register poll task: %w", err)
	}
	s.cron.Start()
	log.Info().
		Str("component", "scheduler").
		Str("spec", spec).
		Str("window_start", s.opts.WindowStart.String()).
		Dur("window_length", s.opts.WindowLength).
		Msg("scheduler started")
	return nil
}

// Stop stops the cron scheduler and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Str("component", "scheduler").Msg("scheduler stopped")
}

// NotifyStartup announces that the process is running.
func (s *Scheduler) NotifyStartup(ctx context.Context) {
	s.trySend(ctx, notifier.TitleStarted, notifier.StartedBody)
}

// InWindow reports whether t falls strictly inside the daily polling window
// on a weekday.
func (s *Scheduler) InWindow(t time.Time) bool {
	t = t.In(s.opts.Location)
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	open := s.opts.WindowStart.On(t, s.opts.Location)
	closeAt := open.Add(s.opts.WindowLength)
	return t.After(open) && t.Before(closeAt)
}

// Tick runs one cycle when the window is open.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now()
	if !s.InWindow(now) {
		log.Debug().Str("component", "scheduler").Msg("market closed, waiting")
		s.metrics.ObserveCycle(metrics.ResultSkipped, 0, now)
		return
	}
	if _, err := s.RunCycle(ctx); err != nil {
		log.Error().Str("component", "scheduler").Err(err).Msg("cycle failed")
	}
}

// RunCycle fetches, evaluates, notifies and records one cycle regardless of
// the window. The returned error is the fatal cycle error, if any; the
// summary is always filled in.
func (s *Scheduler) RunCycle(ctx context.Context) (summary model.CycleSummary, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()
	summary = model.CycleSummary{RunID: uuid.New().String(), At: start}
	logger := log.With().Str("component", "scheduler").Str("run_id", summary.RunID).Logger()
	logger.Info().Msg("running strategy")

	var eval *model.Evaluation
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in cycle: %v", r)
			logger.Error().Str("stack", string(debug.Stack())).Msg("recovered panic")
			eval = nil
		}
		if ferr := s.safeFinish(ctx, logger, &summary, eval, err, start); ferr != nil && err == nil {
			err = ferr
		}
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()
	data, err := s.collector.Collect(fetchCtx)
	if err != nil {
		s.metrics.FetchErrors.Inc()
		return summary, fmt.Errorf("collect: %w", err)
	}

	eval, err = s.engine.Evaluate(data)
	if err != nil {
		return summary, fmt.Errorf("evaluate: %w", err)
	}
	return summary, nil
}

// safeFinish runs finish and turns a panic in it into an error. Cycles
// triggered from the command poller have no cron.Recover around them.
func (s *Scheduler) safeFinish(ctx context.Context, logger zerolog.Logger, summary *model.CycleSummary, eval *model.Evaluation, cycleErr error, start time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic finishing cycle: %v", r)
			logger.Error().Str("stack", string(debug.Stack())).Msg("recovered panic")
		}
	}()
	s.finish(ctx, logger, summary, eval, cycleErr, start)
	return nil
}

// finish notifies, records and updates state and metrics for a cycle.
func (s *Scheduler) finish(ctx context.Context, logger zerolog.Logger, summary *model.CycleSummary, eval *model.Evaluation, cycleErr error, start time.Time) {
	took := s.now().Sub(start)
	summary.Duration = took.Seconds()
	result := metrics.ResultError

	today := model.DateKey(start.In(s.opts.Location))
	if cycleErr != nil {
		summary.Error = cycleErr.Error()
		summary.Date = today
		title, body := notifier.FormatCycleError(today, cycleErr)
		s.notifyOnce(ctx, logger, today, errorKey(cycleErr), title, body, nil)
	} else {
		o := eval.Outcome
		summary.Date = model.DateKey(eval.Date)
		summary.Outcome = o.Kind
		summary.Reason = o.Reason
		summary.Signal = o.Signal
		result = string(o.Kind)
		s.metrics.ObserveEvaluation(eval)

		logger.Info().
			Str("date", summary.Date).
			Str("outcome", string(o.Kind)).
			Str("reason", o.Reason).
			Msg("cycle evaluated")

		if title, body, ok := notifier.FormatOutcome(o); ok {
			s.notifyOnce(ctx, logger, summary.Date, outcomeKey(o), title, body, o.Signal)
		}
	}

	rec := &recorder.CycleRecord{RunID: summary.RunID, At: start, Duration: took, Err: cycleErr, Evaluation: eval}
	if err := s.recorder.RecordCycle(rec); err != nil {
		logger.Error().Err(err).Msg("record cycle")
	}
	if s.tracker != nil {
		if err := s.tracker.RecordCycle(*summary); err != nil {
			logger.Error().Err(err).Msg("save state")
		}
	}
	s.metrics.ObserveCycle(result, took, s.now())
}

// notifyOnce sends a notification unless key was already delivered for date.
// Failed deliveries are not marked and will be retried on the next cycle.
func (s *Scheduler) notifyOnce(ctx context.Context, logger zerolog.Logger, date, key, title, body string, sig *model.TradeSignal) {
	if s.tracker != nil && s.tracker.Notified(date, key) {
		logger.Debug().Str("key", key).Msg("already notified")
		return
	}
	if err := s.notifier.Notify(ctx, title, body); err != nil {
		s.metrics.NotifyFailures.Inc()
		logger.Error().Err(err).Str("title", title).Msg("send notification")
		return
	}
	if sig != nil {
		s.metrics.SignalNotified(sig.Direction)
	}
	if s.tracker != nil {
		if err := s.tracker.MarkNotified(date, key); err != nil {
			logger.Error().Err(err).Msg("save notification state")
		}
	}
}

func (s *Scheduler) trySend(ctx context.Context, title, body string) {
	if err := s.notifier.Notify(ctx, title, body); err != nil {
		s.metrics.NotifyFailures.Inc()
		log.Error().Str("component", "scheduler").Err(err).Msg("send notification")
	}
}

// outcomeKey identifies a notification so it is pushed once per session.
func outcomeKey(o model.Outcome) string {
	if o.Signal != nil {
		return fmt.Sprintf("%s:%s:%d", o.Kind, o.Signal.Direction, o.Signal.EntryTime.Unix())
	}
	return string(o.Kind)
}

func errorKey(err error) string {
	switch {
	case errors.Is(err, strategy.ErrInsufficientHistory):
		return "error:insufficient_history"
	case errors.Is(err, strategy.ErrEmptyToday):
		return "error:empty_today"
	case errors.Is(err, strategy.ErrInsufficientBars):
		return "error:insufficient_bars"
	case errors.Is(err, strategy.ErrInsufficientData):
		return "error:insufficient_data"
	default:
		return "error:other"
	}
}

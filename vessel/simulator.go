package vessel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Logger is the subset of a leveled logger the simulator writes to
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// Recorder receives run lifecycle events, typically for metrics
type Recorder interface {
	RunStarted(plan Plan)
	TickEmitted()
	RunFinished(phase Phase)
}

// Option customises a Simulator
type Option func(*Simulator)

// WithClock replaces the wall clock, mainly for tests
func WithClock(clock clockwork.Clock) Option {
	return func(s *Simulator) { s.clock = clock }
}

// WithLogger sets the logger for lifecycle messages
func WithLogger(logger Logger) Option {
	return func(s *Simulator) { s.logger = logger }
}

// WithRecorder sets the lifecycle event recorders. Events fan out in order.
func WithRecorder(recorders ...Recorder) Option {
	return func(s *Simulator) { s.recorder = Recorders(recorders) }
}

// Simulator is the single controller of a vessel run. It owns the engine,
// drives it from one ticker and fans updates out to the NMEA writer, the GPX
// track and registered callbacks.
//
// Callbacks and finish hooks run on the simulator goroutine, in step order.
// They must not call Start, Stop, Restart or UpdateConfig synchronously.
//
// A run is finished once its finish hooks and recorder have seen it. Done is
// closed at that point and no new run starts before it.
type Simulator struct {
	mu          sync.RWMutex
	config      Config
	plan        Plan
	clock       clockwork.Clock
	logger      Logger
	recorder    Recorder
	engine      *Engine
	startTime   time.Time
	nmeaWriter  io.Writer
	gpxWriter   *GPXWriter
	running     bool
	cancel      context.CancelFunc
	done        chan struct{}
	exited      chan struct{}
	callbacks   []func(Update)
	finishHooks []func(Outcome)
}

// NewSimulator creates a new vessel simulator instance
func NewSimulator(config Config, opts ...Option) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	close(done)

	sim := &Simulator{
		config:      config,
		plan:        NewPlan(config.Parameters()),
		clock:       clockwork.NewRealClock(),
		logger:      nopLogger{},
		recorder:    nopRecorder{},
		done:        done,
		callbacks:   make([]func(Update), 0),
		finishHooks: make([]func(Outcome), 0),
	}
	for _, opt := range opts {
		opt(sim)
	}

	return sim, nil
}

// SetNMEAWriter sets the writer for NMEA output
func (s *Simulator) SetNMEAWriter(writer io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nmeaWriter = writer
}

// AddCallback adds a callback function that will be called with each update
func (s *Simulator) AddCallback(callback func(Update)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, callback)
}

// OnFinish adds a hook called once whenever a run completes or is cancelled
func (s *Simulator) OnFinish(hook func(Outcome)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishHooks = append(s.finishHooks, hook)
}

// Start starts a new run from the configured start point
func (s *Simulator) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.awaitIdleLocked() {
		return ErrSimulatorAlreadyRunning
	}
	return s.startLocked()
}

// awaitIdleLocked waits until the previous run is finished. Called with s.mu
// held; it reports false if another run was started meanwhile.
func (s *Simulator) awaitIdleLocked() bool {
	for {
		if s.running {
			return false
		}
		done := s.done
		select {
		case <-done:
			return true
		default:
		}
		s.mu.Unlock()
		<-done
		s.mu.Lock()
	}
}

func (s *Simulator) startLocked() error {
	plan := NewPlan(s.config.Parameters())
	engine, err := NewEngine(plan, s.config.SnapToEnd)
	if err != nil {
		return err
	}
	if plan.Interval <= 0 {
		return ErrInvalidRefreshRate
	}

	s.gpxWriter = nil
	if s.config.GPXEnabled && s.config.GPXFile != "" {
		gpxWriter, err := NewGPXWriter(s.config.GPXFile)
		if err != nil {
			return fmt.Errorf("failed to create GPX writer: %w", err)
		}
		gpxWriter.SetRoute(plan.Start, plan.End)
		s.gpxWriter = gpxWriter
	}

	ctx, cancel := context.WithCancel(context.Background())
	ticker := s.clock.NewTicker(plan.Interval)
	exited := make(chan struct{})

	s.plan = plan
	s.engine = engine
	s.cancel = cancel
	s.done = make(chan struct{})
	s.exited = exited
	s.running = true
	s.startTime = s.clock.Now()

	s.recorder.RunStarted(plan)
	s.logger.Infof("vessel run started: %s -> %s at %.1f km/h, %.1f Hz, %d ticks, heading %.2f",
		plan.Start, plan.End, plan.SpeedKmH, plan.RefreshRateHz, engine.State().Ticks, plan.HeadingDegrees)

	go s.run(ctx, engine, ticker, exited)
	return nil
}

// Stop cancels the running simulation. When it returns the ticker is stopped
// and no further update of that run will be delivered.
func (s *Simulator) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSimulatorNotRunning
	}

	s.cancel()
	s.engine.Cancel()
	s.running = false
	done := s.done
	exited := s.exited
	engine := s.engine
	startTime := s.startTime
	gpxWriter := s.gpxWriter
	s.gpxWriter = nil
	hooks := append([]func(Outcome){}, s.finishHooks...)
	s.mu.Unlock()

	<-exited

	s.finish(s.outcomeOf(engine, startTime), gpxWriter, hooks, done)
	return nil
}

// Restart cancels any running simulation and starts a fresh run with config
func (s *Simulator) Restart(config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	if err := s.Stop(); err != nil && !errors.Is(err, ErrSimulatorNotRunning) {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.awaitIdleLocked() {
		return ErrSimulatorAlreadyRunning
	}
	s.config = config
	return s.startLocked()
}

// UpdateConfig updates the simulator configuration. A running simulation is
// restarted so no tick computed from the old parameters fires afterwards.
func (s *Simulator) UpdateConfig(newConfig Config) error {
	if err := newConfig.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if !s.running {
		s.config = newConfig
		s.plan = NewPlan(newConfig.Parameters())
		s.engine = nil
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	return s.Restart(newConfig)
}

// IsRunning returns whether the simulator is currently running
func (s *Simulator) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Done returns a channel closed when the current run has finished. It is
// already closed if nothing is running.
func (s *Simulator) Done() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.done
}

// Wait blocks until the current run finishes or ctx is done
func (s *Simulator) Wait(ctx context.Context) error {
	select {
	case <-s.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetStatus returns the current simulator status
func (s *Simulator) GetStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var elapsedTime time.Duration
	if s.running {
		elapsedTime = s.clock.Since(s.startTime)
	}

	state := State{
		Position:       s.plan.Start,
		HeadingDegrees: s.plan.HeadingDegrees,
		TotalSteps:     s.plan.TotalSteps,
		Ticks:          s.plan.Ticks,
		Phase:          PhaseIdle,
	}
	if s.engine != nil {
		state = s.engine.State()
	}

	return Status{
		Running:     s.running,
		StartTime:   s.startTime,
		ElapsedTime: elapsedTime,
		State:       state,
		Plan:        s.plan,
		Config:      s.config,
	}
}

// run is the main simulation loop
func (s *Simulator) run(ctx context.Context, engine *Engine, ticker clockwork.Ticker, exited chan struct{}) {
	defer close(exited)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.mu.Lock()
			if ctx.Err() != nil {
				s.mu.Unlock()
				return
			}

			update, ok := engine.Tick(s.clock.Now())
			if !ok {
				s.complete()
				return
			}

			writer := s.nmeaWriter
			gpxWriter := s.gpxWriter
			callbacks := append([]func(Update){}, s.callbacks...)
			s.mu.Unlock()

			s.emit(update, writer, gpxWriter, callbacks)
		}
	}
}

// complete finishes a run that reached its last step. Called with s.mu held;
// releases it.
func (s *Simulator) complete() {
	s.running = false
	s.cancel()
	outcome := s.outcomeOf(s.engine, s.startTime)
	gpxWriter := s.gpxWriter
	s.gpxWriter = nil
	hooks := append([]func(Outcome){}, s.finishHooks...)
	done := s.done
	s.mu.Unlock()

	s.finish(outcome, gpxWriter, hooks, done)
}

// finish delivers the end of a run and then closes its done channel
func (s *Simulator) finish(outcome Outcome, gpxWriter *GPXWriter, hooks []func(Outcome), done chan struct{}) {
	defer close(done)

	s.closeGPX(gpxWriter)
	s.recorder.RunFinished(outcome.Phase)
	s.logger.Infof("vessel run %s after %d ticks", outcome.Phase, outcome.Ticks)
	for _, hook := range hooks {
		hook(outcome)
	}
}

func (s *Simulator) outcomeOf(engine *Engine, startTime time.Time) Outcome {
	return Outcome{
		Phase:   engine.State().Phase,
		Ticks:   engine.Emitted(),
		Elapsed: s.clock.Since(startTime),
	}
}

// emit writes one update to every output
func (s *Simulator) emit(update Update, writer io.Writer, gpxWriter *GPXWriter, callbacks []func(Update)) {
	if writer != nil {
		for _, sentence := range GenerateSentences(update) {
			if _, err := fmt.Fprint(writer, sentence); err != nil {
				s.logger.Warnf("failed to write NMEA sentence: %v", err)
				break
			}
		}
	}

	if gpxWriter != nil {
		if err := gpxWriter.Record(update.Position, update.Timestamp); err != nil {
			s.logger.Warnf("failed to write GPX track: %v", err)
		}
	}

	for _, callback := range callbacks {
		callback(update)
	}

	s.recorder.TickEmitted()
	s.logger.Debugf("tick %d: %.6f, %.6f", update.Step, update.Position.Lat, update.Position.Lng)
}

func (s *Simulator) closeGPX(w *GPXWriter) {
	if w == nil {
		return
	}
	if err := w.Close(); err != nil {
		s.logger.Warnf("failed to close GPX track: %v", err)
	}
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}

type nopRecorder struct{}

func (nopRecorder) RunStarted(Plan)   {}
func (nopRecorder) TickEmitted()      {}
func (nopRecorder) RunFinished(Phase) {}

// Recorders fans lifecycle events out to several recorders
type Recorders []Recorder

func (rs Recorders) RunStarted(plan Plan) {
	for _, r := range rs {
		r.RunStarted(plan)
	}
}

func (rs Recorders) TickEmitted() {
	for _, r := range rs {
		r.TickEmitted()
	}
}

func (rs Recorders) RunFinished(phase Phase) {
	for _, r := range rs {
		r.RunFinished(phase)
	}
}

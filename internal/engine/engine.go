package engine

import (
	"errors"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/linehawk/linehawk/internal/backend"
	"github.com/linehawk/linehawk/internal/config"
	"github.com/linehawk/linehawk/internal/hardware"
	"github.com/linehawk/linehawk/internal/queue"
	"github.com/linehawk/linehawk/internal/task"
	"github.com/linehawk/linehawk/internal/telemetry"
	"github.com/linehawk/linehawk/internal/thermal"
)

// Engine owns the hardware profile, the work queues, the worker pool, the
// accelerator handle, the thermal monitor, and the telemetry aggregator.
// There is no package-level state: multiple engines may coexist, which the
// tests rely on.
type Engine struct {
	logger  *zap.Logger
	cfg     config.EngineConfig
	profile *hardware.Profile

	queues  []*queue.Queue
	vector  *backend.Vector
	accel   *backend.Accelerator
	telem   *telemetry.Telemetry
	thermal *thermal.Monitor
	workers []*worker

	running  atomic.Bool
	stopping atomic.Bool
	stop     chan struct{}
	wg       sync.WaitGroup
}

type options struct {
	profile       *hardware.Profile
	thermalCfg    config.ThermalConfig
	thermalSource thermal.Source
}

// Option customizes engine construction.
type Option func(*options)

// WithProfile supplies a hardware profile instead of probing the host.
func WithProfile(p *hardware.Profile) Option {
	return func(o *options) { o.profile = p }
}

// WithThermalConfig overrides the thermal monitor configuration.
func WithThermalConfig(cfg config.ThermalConfig) Option {
	return func(o *options) { o.thermalCfg = cfg }
}

// WithThermalSource supplies a temperature source, replacing the platform
// sensors. Tests use this to script thermal scenarios.
func WithThermalSource(s thermal.Source) Option {
	return func(o *options) { o.thermalSource = s }
}

// New builds an engine. The hardware probe never fails, so construction
// only errors on configuration problems.
func New(logger *zap.Logger, cfg config.EngineConfig, opts ...Option) (*Engine, error) {
	o := options{
		thermalCfg: config.ThermalConfig{Interval: time.Second},
	}
	for _, opt := range opts {
		opt(&o)
	}

	// Constructor defaulting, so partially filled configs behave.
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 64
	}
	if cfg.IdleBackoff <= 0 {
		cfg.IdleBackoff = time.Millisecond
	}
	if cfg.ThrottleBackoffFactor < 1 {
		cfg.ThrottleBackoffFactor = 8
	}
	if cfg.AcceleratorMinBytes <= 0 {
		cfg.AcceleratorMinBytes = 4096
	}

	profile := o.profile
	if profile == nil {
		profile = hardware.Detect(logger)
	}

	cores := profile.AllCores()
	if len(cores) == 0 {
		cores = []int{0}
	}
	numWorkers := cfg.Workers
	if numWorkers <= 0 {
		numWorkers = len(cores)
	}
	numQueues := cfg.NumQueues
	if numQueues <= 0 {
		numQueues = (numWorkers + 3) / 4
	}
	if numQueues > numWorkers {
		numQueues = numWorkers
	}

	e := &Engine{
		logger:  logger,
		cfg:     cfg,
		profile: profile,
		vector:  backend.NewVector(profile.Features),
		telem:   telemetry.New(),
		stop:    make(chan struct{}),
	}

	e.queues = make([]*queue.Queue, numQueues)
	for i := range e.queues {
		e.queues[i] = queue.New(cfg.QueueCapacity)
	}

	if cfg.AcceleratorEnabled && profile.AcceleratorPresent {
		e.accel = backend.NewAccelerator(logger, profile.AcceleratorName, cfg.AcceleratorTensorBytes)
	}

	ceiling := o.thermalCfg.CeilingCelsius
	if ceiling <= 0 {
		ceiling = profile.ThermalCeiling
	}
	e.thermal = thermal.New(logger, o.thermalSource, e.telem,
		o.thermalCfg.Interval, ceiling, o.thermalCfg.HysteresisCelsius)

	e.workers = make([]*worker, numWorkers)
	for i := range e.workers {
		core := cores[i%len(cores)]
		e.workers[i] = &worker{
			id:       i,
			core:     core,
			class:    profile.ClassOf(core),
			queueIdx: i % numQueues,
			engine:   e,
		}
	}

	return e, nil
}

// Start launches the workers and the thermal monitor. A shut-down engine
// cannot be restarted.
func (e *Engine) Start() error {
	if e.stopping.Load() {
		return ErrNotRunning
	}
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	e.logger.Info("Starting engine",
		zap.Int("workers", len(e.workers)),
		zap.Int("queues", len(e.queues)),
		zap.Bool("accelerator", e.accel != nil),
	)

	for _, w := range e.workers {
		e.wg.Add(1)
		go w.run()
	}
	e.thermal.Start()
	return nil
}

// Submit enqueues a task without blocking. ErrQueueFull signals
// backpressure; the task was not accepted and the caller owns it.
func (e *Engine) Submit(t *task.Task) (*task.Handle, error) {
	if !e.running.Load() || e.stopping.Load() {
		return nil, ErrNotRunning
	}
	q := e.queues[e.queueFor(t.ID)]
	if err := q.TryPush(t); err != nil {
		return nil, e.mapQueueErr(err)
	}
	return task.NewHandle(t), nil
}

// SubmitWait enqueues a task, blocking up to timeout for a free slot. A
// zero timeout blocks until space or shutdown.
func (e *Engine) SubmitWait(t *task.Task, timeout time.Duration) (*task.Handle, error) {
	if !e.running.Load() || e.stopping.Load() {
		return nil, ErrNotRunning
	}
	q := e.queues[e.queueFor(t.ID)]
	if err := q.Push(t, timeout); err != nil {
		return nil, e.mapQueueErr(err)
	}
	return task.NewHandle(t), nil
}

func (e *Engine) mapQueueErr(err error) error {
	switch {
	case errors.Is(err, queue.ErrFull):
		return ErrQueueFull
	case errors.Is(err, queue.ErrClosed):
		return ErrNotRunning
	default:
		return err
	}
}

// queueFor gives a task a soft home queue by id hash, so callers get rough
// locality without knowing the core topology.
func (e *Engine) queueFor(id string) int {
	h := fnv.New32a()
	h.Write([]byte(id))
	return int(h.Sum32() % uint32(len(e.queues)))
}

// Metrics returns a locked snapshot of the telemetry aggregates.
func (e *Engine) Metrics() telemetry.Metrics {
	return e.telem.Snapshot()
}

// Profile returns the immutable hardware profile.
func (e *Engine) Profile() *hardware.Profile {
	return e.profile
}

// Throttled reports the advisory thermal throttling state.
func (e *Engine) Throttled() bool {
	return e.thermal.Throttled()
}

// Shutdown stops intake, drains queued tasks, and joins the workers and
// the thermal monitor. It is idempotent and safe on an engine that was
// never started. ErrShutdownTimeout is a warning: the engine is stopped
// either way, but some worker did not join within the bound.
func (e *Engine) Shutdown(timeout time.Duration) error {
	if !e.running.CompareAndSwap(true, false) {
		return nil
	}
	e.stopping.Store(true)

	e.logger.Info("Engine shutting down")

	for _, q := range e.queues {
		q.Close()
	}
	close(e.stop)

	joined := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(joined)
	}()

	var err error
	if timeout > 0 {
		select {
		case <-joined:
		case <-time.After(timeout):
			err = ErrShutdownTimeout
			e.logger.Warn("Workers did not join within shutdown bound",
				zap.Duration("timeout", timeout))
		}
	} else {
		<-joined
	}

	e.thermal.Stop()
	if e.accel != nil {
		e.accel.Close()
	}

	m := e.telem.Snapshot()
	e.logger.Info("Engine stopped",
		zap.Uint64("ops", m.TotalOps),
		zap.Uint64("lines", m.TotalLines),
		zap.Uint64("steals", m.Steals),
		zap.Uint64("fallbacks", m.Fallbacks),
	)
	return err
}

// chooseBackend applies the selection policy: caller hint first, then the
// accelerator for payloads worth the dispatch overhead, else vector.
func (e *Engine) chooseBackend(t *task.Task) backend.Backend {
	switch t.Hint {
	case task.HintVectorOnly:
		return e.vector
	case task.HintAccelerator:
		if e.accel != nil {
			return e.accel
		}
		return e.vector
	default:
		if e.accel != nil && t.Size() >= e.cfg.AcceleratorMinBytes {
			return e.accel
		}
		return e.vector
	}
}

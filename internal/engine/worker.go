package engine

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/linehawk/linehawk/internal/hardware"
	"github.com/linehawk/linehawk/internal/queue"
	"github.com/linehawk/linehawk/internal/task"
)

// worker is one pinned execution loop. It pops its own queue in FIFO order
// and steals from the tails of the others when idle.
type worker struct {
	id       int
	core     int
	class    hardware.CoreClass
	queueIdx int
	engine   *Engine
}

func (w *worker) run() {
	e := w.engine
	defer e.wg.Done()

	if e.cfg.PinWorkers {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := pinToCore(w.core); err != nil {
			// Affinity is a throughput optimization, not a correctness
			// requirement. The worker runs unpinned.
			e.logger.Warn("Worker pinning failed",
				zap.Int("worker", w.id),
				zap.Int("core", w.core),
				zap.Error(err),
			)
		}
	}

	e.logger.Debug("Worker started",
		zap.Int("worker", w.id),
		zap.Int("core", w.core),
		zap.String("class", w.class.String()),
		zap.Int("queue", w.queueIdx),
	)

	for {
		t, err := e.queues[w.queueIdx].Pop()
		if err == nil {
			w.process(t)
			continue
		}
		ownClosed := errors.Is(err, queue.ErrClosed)

		if st, ok := w.stealOnce(&ownClosed); ok {
			e.telem.RecordSteal()
			w.process(st)
			continue
		}

		// ownClosed now means every queue reported closed-and-empty:
		// intake is shut and there is nothing left to drain.
		if ownClosed {
			e.logger.Debug("Worker exiting", zap.Int("worker", w.id))
			return
		}

		w.idle()
	}
}

// stealOnce sweeps the other queues once, starting past the worker's own.
// allClosed is cleared if any queue might still hold or receive work.
func (w *worker) stealOnce(allClosed *bool) (*task.Task, bool) {
	e := w.engine
	for i := 1; i < len(e.queues); i++ {
		idx := (w.queueIdx + i) % len(e.queues)
		t, err := e.queues[idx].Steal()
		if err == nil {
			return t, true
		}
		if !errors.Is(err, queue.ErrClosed) {
			*allClosed = false
		}
	}
	return nil, false
}

// idle sleeps the bounded backoff. While throttling is flagged, workers off
// the efficiency cores stretch their backoff so residual load migrates to
// the cooler cores.
func (w *worker) idle() {
	e := w.engine
	backoff := e.cfg.IdleBackoff
	if w.class != hardware.ClassEfficiency && e.thermal.Throttled() {
		backoff *= time.Duration(e.cfg.ThrottleBackoffFactor)
	}
	select {
	case <-e.stop:
	case <-time.After(backoff):
	}
}

func (w *worker) process(t *task.Task) {
	e := w.engine

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Worker recovered from panic",
				zap.Int("worker", w.id),
				zap.String("task", t.ID),
				zap.Any("panic", r),
			)
			e.telem.RecordError()
			t.Fail(fmt.Errorf("engine: task panicked: %v", r))
		}
	}()

	if err := t.Validate(); err != nil {
		e.telem.RecordError()
		t.Fail(err)
		return
	}

	b := e.chooseBackend(t)
	start := time.Now()
	res, err := b.Execute(t)
	if err != nil {
		// Only the accelerator path can fail. The fault is absorbed here:
		// the task reruns on the vector backend and the submitter never
		// sees the device error.
		e.telem.RecordFallback()
		e.logger.Debug("Accelerator fallback",
			zap.String("task", t.ID),
			zap.Error(err),
		)
		b = e.vector
		start = time.Now()
		res, _ = b.Execute(t)
	}
	res.Backend = b.Name()
	res.Duration = time.Since(start)
	res.Core = w.core

	e.telem.Record(res)
	t.Complete(res)
}

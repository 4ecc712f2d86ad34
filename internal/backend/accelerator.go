package backend

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/linehawk/linehawk/internal/task"
)

var (
	// ErrDeviceClosed means the accelerator handle has been released.
	ErrDeviceClosed = errors.New("accelerator: device closed")
	// ErrTensorOverflow means the payload exceeds the device buffer. The
	// task is not clamped; it fails over to the vector backend instead so
	// results stay identical across backends.
	ErrTensorOverflow = errors.New("accelerator: payload exceeds tensor capacity")
)

// defaultTensorBytes mirrors the 1 MiB staging tensor of the device driver.
const defaultTensorBytes = 1 << 20

// Accelerator offloads operations to the inference device. The device is a
// single shared resource: every Execute serializes through one mutex, and
// that contention is the expected scalability limit of this path. Any error
// out of Execute is recovered by the scheduler via vector fallback and is
// never surfaced as a task failure.
type Accelerator struct {
	logger      *zap.Logger
	name        string
	tensorBytes int

	mu     sync.Mutex
	closed bool
	fault  error

	ops   uint64
	bytes uint64
}

// NewAccelerator opens the accelerator handle. tensorBytes <= 0 selects the
// driver default staging size.
func NewAccelerator(logger *zap.Logger, name string, tensorBytes int) *Accelerator {
	if tensorBytes <= 0 {
		tensorBytes = defaultTensorBytes
	}
	logger.Info("Accelerator initialized",
		zap.String("device", name),
		zap.Int("tensor_bytes", tensorBytes),
	)
	return &Accelerator{
		logger:      logger,
		name:        name,
		tensorBytes: tensorBytes,
	}
}

// Name implements Backend.
func (a *Accelerator) Name() string {
	return "accelerator"
}

// Execute implements Backend. The computed values are identical to the
// vector backend's for the same input.
func (a *Accelerator) Execute(t *task.Task) (task.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return task.Result{}, ErrDeviceClosed
	}
	if a.fault != nil {
		return task.Result{}, a.fault
	}
	if t.Size() > a.tensorBytes {
		return task.Result{}, ErrTensorOverflow
	}

	var res task.Result
	switch t.Op {
	case task.OpHash:
		res.Hash, res.Lines = hashBytes(t.Data)
		res.Bytes = uint64(len(t.Data))
	case task.OpDiff:
		res.DiffBytes, res.Lines = diffBytes(t.Data, t.Other)
		res.Bytes = uint64(len(t.Data) + len(t.Other))
	case task.OpBatchHash:
		res.BatchHashes = make([]uint64, len(t.Batch))
		for i, buf := range t.Batch {
			var lines uint64
			res.BatchHashes[i], lines = hashBytes(buf)
			res.Lines += lines
			res.Bytes += uint64(len(buf))
		}
	}

	a.ops++
	a.bytes += res.Bytes
	return res, nil
}

// ForceFailure makes every subsequent Execute return err until cleared with
// a nil argument. Used to exercise the fallback path.
func (a *Accelerator) ForceFailure(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fault = err
}

// Stats returns the device operation and byte counters.
func (a *Accelerator) Stats() (ops, bytes uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ops, a.bytes
}

// Close releases the device handle. Execute calls after Close fail and fall
// back to the vector path.
func (a *Accelerator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	a.logger.Info("Accelerator closed",
		zap.String("device", a.name),
		zap.Uint64("ops", a.ops),
		zap.Uint64("bytes", a.bytes),
	)
}

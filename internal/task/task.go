package task

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Op identifies the operation a task performs.
type Op uint8

const (
	OpHash Op = iota
	OpDiff
	OpBatchHash
)

// String returns a human-readable operation name.
func (o Op) String() string {
	switch o {
	case OpHash:
		return "hash"
	case OpDiff:
		return "diff"
	case OpBatchHash:
		return "batch_hash"
	default:
		return "unknown"
	}
}

// Hint expresses the submitter's backend preference. HintAuto lets the
// scheduler decide based on accelerator availability and task size.
type Hint uint8

const (
	HintAuto Hint = iota
	HintVectorOnly
	HintAccelerator
)

// State is the lifecycle state observed through a Handle.
type State uint8

const (
	StatePending State = iota
	StateComplete
	StateFailed
)

var (
	// ErrEmptyInput is reported on tasks submitted with a zero-length buffer.
	ErrEmptyInput = errors.New("task: empty input buffer")
	// ErrMissingPair is reported on diff tasks that lack a second buffer.
	ErrMissingPair = errors.New("task: diff requires two buffers")
	// ErrEmptyBatch is reported on batch tasks with no buffers.
	ErrEmptyBatch = errors.New("task: empty batch")
)

// Result carries the output of a completed task.
type Result struct {
	Hash        uint64
	BatchHashes []uint64
	DiffBytes   uint64
	Lines       uint64
	Bytes       uint64
	Backend     string
	Core        int
	Duration    time.Duration
}

// Task is a unit of work. Input fields are set by the submitter and must
// not be mutated after submission; the engine owns the task until it is
// marked complete, at which point the result becomes visible through the
// Handle returned at submit time.
type Task struct {
	ID    string
	Op    Op
	Hint  Hint
	Data  []byte
	Other []byte   // second buffer, diff only
	Batch [][]byte // batch hash only

	mu     sync.Mutex
	state  State
	result Result
	err    error
	done   chan struct{}
}

// NewHash creates a hash task over a single buffer.
func NewHash(data []byte) *Task {
	return newTask(OpHash, data, nil, nil)
}

// NewDiff creates a diff task comparing two buffers.
func NewDiff(a, b []byte) *Task {
	return newTask(OpDiff, a, b, nil)
}

// NewBatchHash creates a task hashing every buffer in the batch.
func NewBatchHash(buffers [][]byte) *Task {
	return newTask(OpBatchHash, nil, nil, buffers)
}

func newTask(op Op, data, other []byte, batch [][]byte) *Task {
	return &Task{
		ID:    uuid.NewString(),
		Op:    op,
		Data:  data,
		Other: other,
		Batch: batch,
		done:  make(chan struct{}),
	}
}

// Validate checks the task input before execution.
func (t *Task) Validate() error {
	switch t.Op {
	case OpHash:
		if len(t.Data) == 0 {
			return ErrEmptyInput
		}
	case OpDiff:
		if len(t.Data) == 0 {
			return ErrEmptyInput
		}
		if t.Other == nil {
			return ErrMissingPair
		}
	case OpBatchHash:
		if len(t.Batch) == 0 {
			return ErrEmptyBatch
		}
	}
	return nil
}

// Size returns the total payload size in bytes, used for backend selection.
func (t *Task) Size() int {
	n := len(t.Data) + len(t.Other)
	for _, b := range t.Batch {
		n += len(b)
	}
	return n
}

// Complete marks the task finished with the given result. It may be called
// at most once; subsequent calls are ignored.
func (t *Task) Complete(res Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StatePending {
		return
	}
	t.state = StateComplete
	t.result = res
	close(t.done)
}

// Fail marks the task failed. It may be called at most once.
func (t *Task) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StatePending {
		return
	}
	t.state = StateFailed
	t.err = err
	close(t.done)
}

// Handle is the submitter-held reference used to poll for completion.
type Handle struct {
	t *Task
}

// NewHandle wraps a task in a polling handle.
func NewHandle(t *Task) *Handle {
	return &Handle{t: t}
}

// Poll returns the current state and, once terminal, the result or error.
func (h *Handle) Poll() (State, Result, error) {
	h.t.mu.Lock()
	defer h.t.mu.Unlock()
	return h.t.state, h.t.result, h.t.err
}

// Done returns a channel closed when the task reaches a terminal state.
func (h *Handle) Done() <-chan struct{} {
	return h.t.done
}

// Wait blocks until the task completes or the deadline elapses. A zero
// timeout waits indefinitely.
func (h *Handle) Wait(timeout time.Duration) (Result, error) {
	if timeout <= 0 {
		<-h.t.done
	} else {
		select {
		case <-h.t.done:
		case <-time.After(timeout):
			return Result{}, errors.New("task: wait timeout")
		}
	}
	_, res, err := h.Poll()
	return res, err
}

package backend

import (
	"github.com/linehawk/linehawk/internal/task"
)

// Backend executes a task's operation. Implementations fill in the
// operation outputs only; the scheduler stamps core id, duration, and
// backend name onto the result.
type Backend interface {
	Name() string
	Execute(t *task.Task) (task.Result, error)
}

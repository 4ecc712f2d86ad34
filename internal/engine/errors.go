package engine

import "errors"

var (
	// ErrNotRunning means the engine has not been started or is shutting
	// down; no new tasks are accepted.
	ErrNotRunning = errors.New("engine: not running")
	// ErrAlreadyRunning is returned by Start on a running engine.
	ErrAlreadyRunning = errors.New("engine: already running")
	// ErrQueueFull is backpressure: the selected queue had no free slot
	// within the caller's patience. Retry or back off.
	ErrQueueFull = errors.New("engine: queue full")
	// ErrShutdownTimeout means some worker failed to join within the
	// shutdown bound. Non-fatal; the engine is stopped regardless.
	ErrShutdownTimeout = errors.New("engine: shutdown timeout")
)

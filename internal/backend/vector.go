package backend

import (
	"github.com/linehawk/linehawk/internal/hardware"
	"github.com/linehawk/linehawk/internal/task"
)

// Vector is the baseline executor. It processes data in 32-byte blocks
// with wide integer lanes and a scalar tail, and is always available
// regardless of what the hardware probe found.
type Vector struct {
	features hardware.Features
}

// NewVector creates the vector backend for the detected feature set.
func NewVector(features hardware.Features) *Vector {
	return &Vector{features: features}
}

// Name implements Backend.
func (v *Vector) Name() string {
	return "vector"
}

// Execute implements Backend.
func (v *Vector) Execute(t *task.Task) (task.Result, error) {
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
	return res, nil
}

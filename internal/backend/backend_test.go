package backend

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linehawk/linehawk/internal/hardware"
	"github.com/linehawk/linehawk/internal/task"
)

func TestHashDeterminism(t *testing.T) {
	v := NewVector(hardware.Features{})
	data := []byte("the quick brown fox\njumps over the lazy dog\n")

	first, err := v.Execute(task.NewHash(data))
	require.NoError(t, err)
	second, err := v.Execute(task.NewHash(data))
	require.NoError(t, err)

	assert.Equal(t, first.Hash, second.Hash)
	assert.Equal(t, first.Lines, second.Lines)
}

func TestHashRepeatingBuffer(t *testing.T) {
	v := NewVector(hardware.Features{})
	data := bytes.Repeat([]byte{0x41}, 64)

	res, err := v.Execute(task.NewHash(data))
	require.NoError(t, err)
	assert.NotZero(t, res.Hash)
	assert.Zero(t, res.Lines)
	assert.Equal(t, uint64(64), res.Bytes)
}

func TestHashDistinguishesInputs(t *testing.T) {
	v := NewVector(hardware.Features{})

	a, err := v.Execute(task.NewHash([]byte("alpha")))
	require.NoError(t, err)
	b, err := v.Execute(task.NewHash([]byte("alphb")))
	require.NoError(t, err)

	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestNewlineCount(t *testing.T) {
	v := NewVector(hardware.Features{})

	tests := []struct {
		name  string
		data  []byte
		lines uint64
	}{
		{"no newlines", []byte("abc"), 0},
		{"short lines", []byte("a\nb\nc\n"), 3},
		{"block boundary", append(bytes.Repeat([]byte{'\n'}, 32), 'x', '\n'), 33},
		{"long line", append(bytes.Repeat([]byte{'z'}, 100), '\n'), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := v.Execute(task.NewHash(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.lines, res.Lines)
		})
	}
}

func TestDiffIdenticalBuffers(t *testing.T) {
	v := NewVector(hardware.Features{})
	data := []byte("line one\nline two\nline three\n")

	res, err := v.Execute(task.NewDiff(data, data))
	require.NoError(t, err)
	assert.Zero(t, res.DiffBytes)
	assert.Equal(t, uint64(3), res.Lines)
}

func TestDiffCountsDifferingBytes(t *testing.T) {
	v := NewVector(hardware.Features{})
	a := bytes.Repeat([]byte{0x41}, 40)
	b := bytes.Repeat([]byte{0x41}, 40)
	b[0] = 0x42  // inside the vector block
	b[38] = 0x43 // in the scalar tail

	res, err := v.Execute(task.NewDiff(a, b))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.DiffBytes)
}

func TestDiffUsesCommonPrefix(t *testing.T) {
	v := NewVector(hardware.Features{})
	a := []byte("abcdef")
	b := []byte("abc")

	res, err := v.Execute(task.NewDiff(a, b))
	require.NoError(t, err)
	assert.Zero(t, res.DiffBytes)
}

func TestBatchHash(t *testing.T) {
	v := NewVector(hardware.Features{})
	buffers := [][]byte{
		[]byte("first\n"),
		[]byte("second\n"),
		[]byte("first\n"),
	}

	res, err := v.Execute(task.NewBatchHash(buffers))
	require.NoError(t, err)
	require.Len(t, res.BatchHashes, 3)
	assert.Equal(t, res.BatchHashes[0], res.BatchHashes[2])
	assert.NotEqual(t, res.BatchHashes[0], res.BatchHashes[1])
	assert.Equal(t, uint64(3), res.Lines)
}

func TestCrossBackendEquivalence(t *testing.T) {
	v := NewVector(hardware.Features{})
	a := NewAccelerator(zap.NewNop(), "test0", 0)
	data := []byte("payload under test\nwith two lines\n")

	tests := []*task.Task{
		task.NewHash(data),
		task.NewDiff(data, append([]byte("Payload"), data[7:]...)),
		task.NewBatchHash([][]byte{data, []byte("other")}),
	}
	for _, tk := range tests {
		vres, err := v.Execute(tk)
		require.NoError(t, err)
		ares, err := a.Execute(tk)
		require.NoError(t, err)
		assert.Equal(t, vres, ares, "op %s", tk.Op)
	}
}

func TestAcceleratorForcedFailure(t *testing.T) {
	a := NewAccelerator(zap.NewNop(), "test0", 0)
	injected := errors.New("device busy")
	a.ForceFailure(injected)

	_, err := a.Execute(task.NewHash([]byte("x")))
	assert.ErrorIs(t, err, injected)

	a.ForceFailure(nil)
	_, err = a.Execute(task.NewHash([]byte("x")))
	assert.NoError(t, err)
}

func TestAcceleratorTensorOverflow(t *testing.T) {
	a := NewAccelerator(zap.NewNop(), "test0", 16)

	_, err := a.Execute(task.NewHash(bytes.Repeat([]byte{1}, 17)))
	assert.ErrorIs(t, err, ErrTensorOverflow)
}

func TestAcceleratorClosed(t *testing.T) {
	a := NewAccelerator(zap.NewNop(), "test0", 0)
	a.Close()

	_, err := a.Execute(task.NewHash([]byte("x")))
	assert.ErrorIs(t, err, ErrDeviceClosed)
}

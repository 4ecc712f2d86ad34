package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linehawk/linehawk/internal/task"
)

func TestPushPopFIFO(t *testing.T) {
	q := New(8)

	first := task.NewHash([]byte("a"))
	second := task.NewHash([]byte("b"))
	require.NoError(t, q.TryPush(first))
	require.NoError(t, q.TryPush(second))

	got, err := q.Pop()
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	got, err = q.Pop()
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	_, err = q.Pop()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestTryPushFull(t *testing.T) {
	q := New(2)

	require.NoError(t, q.TryPush(task.NewHash([]byte("a"))))
	require.NoError(t, q.TryPush(task.NewHash([]byte("b"))))
	assert.ErrorIs(t, q.TryPush(task.NewHash([]byte("c"))), ErrFull)
}

func TestStealTakesFromTail(t *testing.T) {
	q := New(8)

	first := task.NewHash([]byte("a"))
	last := task.NewHash([]byte("b"))
	require.NoError(t, q.TryPush(first))
	require.NoError(t, q.TryPush(last))

	got, err := q.Steal()
	require.NoError(t, err)
	assert.Equal(t, last.ID, got.ID)

	// Owner still sees submission order for what remains.
	got, err = q.Pop()
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestStealNeverBlocks(t *testing.T) {
	q := New(8)
	require.NoError(t, q.TryPush(task.NewHash([]byte("a"))))

	q.mu.Lock()
	done := make(chan error, 1)
	go func() {
		_, err := q.Steal()
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrContended)
	case <-time.After(time.Second):
		t.Fatal("steal blocked on a held lock")
	}
	q.mu.Unlock()
}

func TestPushBlocksUntilSpace(t *testing.T) {
	q := New(1)
	require.NoError(t, q.TryPush(task.NewHash([]byte("a"))))

	pushed := make(chan error, 1)
	go func() {
		pushed <- q.Push(task.NewHash([]byte("b")), 0)
	}()

	select {
	case <-pushed:
		t.Fatal("push returned before space was available")
	case <-time.After(50 * time.Millisecond):
	}

	_, err := q.Pop()
	require.NoError(t, err)

	select {
	case err := <-pushed:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("push did not observe freed slot")
	}
}

func TestPushTimeout(t *testing.T) {
	q := New(1)
	require.NoError(t, q.TryPush(task.NewHash([]byte("a"))))

	start := time.Now()
	err := q.Push(task.NewHash([]byte("b")), 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrFull)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestCloseWakesBlockedPush(t *testing.T) {
	q := New(1)
	require.NoError(t, q.TryPush(task.NewHash([]byte("a"))))

	pushed := make(chan error, 1)
	go func() {
		pushed <- q.Push(task.NewHash([]byte("b")), 0)
	}()
	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case err := <-pushed:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("close did not wake blocked push")
	}

	// Queued tasks remain drainable after close.
	_, err := q.Pop()
	assert.NoError(t, err)
	_, err = q.Pop()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOccupancyUnderConcurrency(t *testing.T) {
	q := New(16)
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if err := q.TryPush(task.NewHash([]byte{byte(j)})); err != nil {
					continue
				}
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(steal bool) {
			defer wg.Done()
			for j := 0; j < 300; j++ {
				if steal {
					q.Steal()
				} else {
					q.Pop()
				}
				// The ring's internal invariant check panics on any
				// occupancy violation, failing the test.
				n := q.Len()
				assert.GreaterOrEqual(t, n, 0)
				assert.LessOrEqual(t, n, q.Cap())
			}
		}(i%2 == 0)
	}
	wg.Wait()
}

package dispatcher

import (
	"context"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/primerblast-validator/internal/worker"
)

func TestDispatcherPreservesInputOrder(t *testing.T) {
	t.Parallel()

	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}
	d := New(Config{Workers: 8}, func(_ context.Context, item worker.Item[int]) int {
		time.Sleep(time.Duration(rand.IntN(3)) * time.Millisecond)
		return item.Value * 10
	}, nil, zap.NewNop())

	got := d.Run(context.Background(), items)
	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i*10, v)
	}
}

func TestDispatcherBoundsConcurrency(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	d := New(Config{Workers: 3}, func(_ context.Context, item worker.Item[int]) int {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return item.Value
	}, nil, nil)

	d.Run(context.Background(), make([]int, 20))
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Positive(t, peak.Load())
}

func TestDispatcherObserverSeesOrderedSnapshots(t *testing.T) {
	t.Parallel()

	items := []string{"a", "b", "c", "d", "e", "f"}
	var snapshots [][]string
	var dones []int
	observe := func(c Completion[string]) {
		dones = append(dones, c.Done)
		assert.Equal(t, len(items), c.Total)
		if c.Done%2 == 0 {
			snapshots = append(snapshots, c.Completed())
		}
	}
	d := New(Config{Workers: 4}, func(_ context.Context, item worker.Item[string]) string {
		return item.Value + item.Value
	}, observe, nil)

	got := d.Run(context.Background(), items)
	assert.Equal(t, []string{"aa", "bb", "cc", "dd", "ee", "ff"}, got)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, dones)
	require.Len(t, snapshots, 3)
	for i, snap := range snapshots {
		assert.Len(t, snap, (i+1)*2)
		assert.IsNonDecreasing(t, snap)
	}
	assert.Equal(t, got, snapshots[2])
}

func TestDispatcherEmptyInput(t *testing.T) {
	t.Parallel()

	d := New[int](Config{}, func(context.Context, worker.Item[int]) int { return 0 }, nil, nil)
	assert.Empty(t, d.Run(context.Background(), nil))
}

func TestDispatcherCanceledContextReturnsPartialResults(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	d := New(Config{Workers: 1}, func(_ context.Context, item worker.Item[int]) int {
		if calls.Add(1) == 2 {
			cancel()
		}
		return item.Value
	}, nil, nil)

	got := d.Run(ctx, []int{1, 2, 3, 4, 5})
	assert.Less(t, len(got), 5)
	assert.GreaterOrEqual(t, len(got), 2)
}

func TestSlotsOmitUnfilledPositions(t *testing.T) {
	t.Parallel()

	s := NewSlots[string](4)
	s.Put(3, "d", nil)
	s.Put(1, "b", nil)
	assert.Equal(t, []string{"b", "d"}, s.Completed())
	assert.Equal(t, 2, s.Done())

	s.Put(1, "b2", nil)
	assert.Equal(t, 2, s.Done())
	assert.Equal(t, []string{"b2", "d"}, s.Completed())
}

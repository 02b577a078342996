package reactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopPoolNextLoopFallsBackToBaseWhenNoWorkers(t *testing.T) {
	base, err := NewEventLoop("base")
	require.NoError(t, err)
	t.Cleanup(func() {
		go base.Loop()
		base.Stop()
	})

	pool := newLoopPool(base)
	assert.Same(t, base, pool.NextLoop())
	assert.Same(t, base, pool.NextLoop())
}

func TestLoopPoolStartSpawnsWorkersAndRoundRobins(t *testing.T) {
	base, err := NewEventLoop("base")
	require.NoError(t, err)
	go base.Loop()
	t.Cleanup(base.Stop)

	pool := newLoopPool(base)
	pool.SetThreadNum(3)
	pool.Start()
	t.Cleanup(func() {
		for _, l := range pool.loops {
			l.Stop()
		}
	})

	seen := map[*EventLoop]int{}
	for i := 0; i < 6; i++ {
		seen[pool.NextLoop()]++
	}
	assert.Len(t, seen, 3, "round robin should visit all three worker loops")
	for _, count := range seen {
		assert.Equal(t, 2, count)
	}
	for _, l := range pool.loops {
		assert.NotSame(t, base, l)
	}
}

package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestLoop(t *testing.T) *EventLoop {
	t.Helper()
	loop, err := NewEventLoop("test")
	require.NoError(t, err)
	go loop.Loop()
	t.Cleanup(loop.Stop)
	return loop
}

func TestEventLoopRunInlineWhenCalledFromOwnGoroutine(t *testing.T) {
	loop := startTestLoop(t)
	done := make(chan struct{})
	loop.Run(func() {
		// Already on the loop's goroutine: a nested Run must execute
		// synchronously, not enqueue and deadlock waiting for itself.
		ran := false
		loop.Run(func() { ran = true })
		assert.True(t, ran)
		close(done)
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for loop task")
	}
}

func TestEventLoopRunFromOtherGoroutineEnqueuesAndWakes(t *testing.T) {
	loop := startTestLoop(t)
	done := make(chan struct{})
	loop.Run(func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task enqueued from outside the loop never ran")
	}
}

func TestEventLoopAssertInLoopPanicsOffOwningGoroutine(t *testing.T) {
	loop := startTestLoop(t)
	assert.Panics(t, func() {
		loop.assertInLoop()
	})
}

func TestEventLoopScheduleFiresAfterTimeout(t *testing.T) {
	loop := startTestLoop(t)
	fired := make(chan struct{})
	loop.Schedule("t1", 1, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled task never fired")
	}
}

func TestEventLoopCancelSuppressesFire(t *testing.T) {
	loop := startTestLoop(t)
	fired := make(chan struct{})
	loop.Schedule("t2", 1, func() { close(fired) })
	loop.Cancel("t2")

	select {
	case <-fired:
		t.Fatal("canceled task fired anyway")
	case <-time.After(2 * time.Second):
	}
}

func TestEventLoopTaskOrderingWithinOneDrain(t *testing.T) {
	loop := startTestLoop(t)
	var order []int
	done := make(chan struct{})

	loop.Run(func() {
		loop.enqueue(func() { order = append(order, 1) })
		loop.enqueue(func() { order = append(order, 2) })
		loop.enqueue(func() { order = append(order, 3); close(done) })
	})

	select {
	case <-done:
		assert.Equal(t, []int{1, 2, 3}, order)
	case <-time.After(2 * time.Second):
		t.Fatal("enqueued tasks never ran")
	}
}

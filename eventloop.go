package reactor

import (
	"bytes"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/tidalcore/reactor/internal/rlog"
)

// task is a unit of deferred work queued for execution on an EventLoop's
// own goroutine.
type task func()

// EventLoop is a thread-pinned reactor: it drives a Poller, runs queued
// tasks, and owns a wakeup eventfd and a TimingWheel (spec.md §3, §4.5).
//
// "Thread-pinned" is realized here as "owned by exactly one goroutine for
// its entire life" rather than via runtime.LockOSThread — see DESIGN.md's
// Open Question on goroutine pinning.
type EventLoop struct {
	name string

	poller *poller
	wheel  *TimingWheel
	wakeup *wakeupFd

	taskMu    sync.Mutex
	taskQueue []task

	readyBuf []*Channel

	quit chan struct{}
	done chan struct{}
}

// NewEventLoop constructs an EventLoop. It may be called on any goroutine:
// the loop's identity binds to whatever goroutine calls Loop() next, and
// until then no goroutine owns the loop.
func NewEventLoop(name string) (*EventLoop, error) {
	p, err := newPoller()
	if err != nil {
		return nil, err
	}
	wk, err := newWakeupFd()
	if err != nil {
		p.close()
		return nil, err
	}
	l := &EventLoop{
		name:     name,
		poller:   p,
		wakeup:   wk,
		readyBuf: make([]*Channel, 0, 256),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	wheel, err := newTimingWheel(l)
	if err != nil {
		wk.close()
		p.close()
		return nil, err
	}
	l.wheel = wheel

	wakeupChannel := newChannel(l, wk.fd)
	wakeupChannel.SetReadCallback(func() { wk.drain() })
	wakeupChannel.EnableReading()
	return l, nil
}

// goroutineID extracts the calling goroutine's id by parsing the header
// line of its own stack trace ("goroutine 123 [running]:"). Go deliberately
// has no public goroutine-id API; this parsing trick is the standard
// workaround reached for across the ecosystem whenever code needs to prove
// "am I still on the goroutine that started this," which is exactly
// EventLoop's affinity contract (spec.md §4.5's "owning thread").
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	field := bytes.Fields(buf[:n])[1]
	id, err := strconv.ParseInt(string(field), 10, 64)
	if err != nil {
		panic(fmt.Sprintf("reactor: could not parse goroutine id: %v", err))
	}
	return id
}

// activeLoops maps a running *EventLoop to the id of the goroutine
// currently executing its Loop(), letting Run and assertInLoop tell calls
// made from a loop's own callback apart from calls made from anywhere
// else, without pinning the loop to an OS thread.
var activeLoops sync.Map // *EventLoop -> int64

// Run executes task on loop L: if called from L's own goroutine it runs
// inline and synchronously; otherwise it enqueues the task and wakes the
// loop (spec.md §4.5).
func (l *EventLoop) Run(fn func()) {
	if l.inOwnGoroutine() {
		fn()
		return
	}
	l.enqueue(fn)
}

// enqueue pushes fn onto the task queue under the queue mutex, then wakes
// the loop. Safe to call from any goroutine.
func (l *EventLoop) enqueue(fn task) {
	l.taskMu.Lock()
	l.taskQueue = append(l.taskQueue, fn)
	l.taskMu.Unlock()
	l.wakeup.wake()
}

// inOwnGoroutine reports whether the calling goroutine is the one
// currently executing this loop's Loop().
func (l *EventLoop) inOwnGoroutine() bool {
	v, ok := activeLoops.Load(l)
	if !ok {
		return false
	}
	return v.(int64) == goroutineID()
}

// Loop runs the reactor's Wait -> Dispatch -> Drain cycle forever, until
// Stop is called. It must be invoked from the goroutine that will own this
// loop for its entire life; that goroutine's identity becomes "the owning
// thread" for every subsequent affinity check (spec.md §4.5 state table).
func (l *EventLoop) Loop() {
	activeLoops.Store(l, goroutineID())
	defer activeLoops.Delete(l)
	defer close(l.done)

	for {
		select {
		case <-l.quit:
			return
		default:
		}

		ready := l.poller.wait(l.readyBuf)
		for _, ch := range ready {
			ch := ch
			l.runGuarded(ch.HandleEvent)
		}
		l.drainTasks()
	}
}

// drainTasks swaps the pending task queue into a local slice under the
// mutex, then runs each task in enqueue order outside the lock — a new
// readiness cycle does not start until every task queued by the previous
// one has run (spec.md §5 ordering guarantees).
func (l *EventLoop) drainTasks() {
	l.taskMu.Lock()
	pending := l.taskQueue
	l.taskQueue = nil
	l.taskMu.Unlock()

	for _, fn := range pending {
		l.runGuarded(fn)
	}
}

// runGuarded recovers a panic raised by a Buffer precondition violation or
// other programmer error inside one task/callback, logs it, and lets the
// loop continue serving other connections — a deliberate strengthening of
// spec.md's "fatal assertion" policy for this concern, see DESIGN.md.
func (l *EventLoop) runGuarded(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			rlog.Errorf("reactor: recovered panic in loop %q task: %v", l.name, r)
		}
	}()
	fn()
}

// Stop signals Loop to return after its current iteration and waits for it
// to exit.
func (l *EventLoop) Stop() {
	close(l.quit)
	l.wakeup.wake()
	<-l.done
}

// assertInLoop panics if the calling goroutine is not this loop's owner,
// matching spec.md's assert_in_loop contract for owner-thread-only
// operations like has_timer and Poller interest changes. SwitchProtocol
// does not use it; it returns ErrWrongLoop instead.
func (l *EventLoop) assertInLoop() {
	if !l.inOwnGoroutine() {
		panic(fmt.Sprintf("reactor: operation on loop %q called off its owning goroutine", l.name))
	}
}

// updateInterest forwards to the Poller. Once Loop is running it is
// callable only from the owning goroutine (spec.md §4.5); before that
// (while NewEventLoop, newTimingWheel or TcpServer.Start set the loop up)
// no goroutine owns the loop and the check is skipped.
func (l *EventLoop) updateInterest(ch *Channel) {
	if _, running := activeLoops.Load(l); running {
		l.assertInLoop()
	}
	if err := l.poller.update(ch); err != nil {
		fatal(ExitPollerFailure, err)
	}
}

// removeInterest forwards to the Poller; the same ownership rule as
// updateInterest applies.
func (l *EventLoop) removeInterest(ch *Channel) {
	if _, running := activeLoops.Load(l); running {
		l.assertInLoop()
	}
	if err := l.poller.remove(ch); err != nil {
		fatal(ExitPollerFailure, err)
	}
}

// Schedule wraps TimingWheel.Schedule in Run so wheel mutations happen on
// the owning goroutine regardless of the caller's goroutine.
func (l *EventLoop) Schedule(id string, timeoutSeconds int, fn func()) {
	l.Run(func() { l.wheel.Schedule(id, timeoutSeconds, fn) })
}

// Refresh wraps TimingWheel.Refresh in Run.
func (l *EventLoop) Refresh(id string) {
	l.Run(func() { l.wheel.Refresh(id) })
}

// Cancel wraps TimingWheel.Cancel in Run.
func (l *EventLoop) Cancel(id string) {
	l.Run(func() { l.wheel.Cancel(id) })
}

// HasTimer is owner-thread only and unsynchronized (spec.md §4.5).
func (l *EventLoop) HasTimer(id string) bool {
	l.assertInLoop()
	return l.wheel.HasTask(id)
}

func (l *EventLoop) close() error {
	l.wheel.close()
	l.wakeup.close()
	return l.poller.close()
}

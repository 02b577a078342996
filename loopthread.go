package reactor

import "sync"

// loopThread owns one worker EventLoop running on its own goroutine. The
// goroutine constructs the EventLoop itself (so the loop's affinity binds
// to that exact goroutine, see EventLoop.Loop) and publishes it through a
// mutex + condition variable before blocking in Loop forever (spec.md
// §4.9).
type loopThread struct {
	mu   sync.Mutex
	cond *sync.Cond
	loop *EventLoop
}

func newLoopThread(name string) *loopThread {
	t := &loopThread{}
	t.cond = sync.NewCond(&t.mu)
	go t.run(name)
	return t
}

func (t *loopThread) run(name string) {
	loop, err := NewEventLoop(name)
	if err != nil {
		fatal(ExitPollerFailure, err)
		return
	}
	t.mu.Lock()
	t.loop = loop
	t.cond.Broadcast()
	t.mu.Unlock()

	loop.Loop()
}

// getLoop blocks until this thread's EventLoop has been constructed and
// returns it. Workers never exit, so the wait always completes (spec.md
// §9(iv): no graceful shutdown path is in scope).
func (t *loopThread) getLoop() *EventLoop {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.loop == nil {
		t.cond.Wait()
	}
	return t.loop
}

// LoopPool fans a TcpServer's connections out across N worker loops,
// round-robin, falling back to the base loop when no workers were
// requested (spec.md §4.9).
type LoopPool struct {
	baseLoop  *EventLoop
	threadNum int
	next      int

	threads []*loopThread
	loops   []*EventLoop
}

func newLoopPool(baseLoop *EventLoop) *LoopPool {
	return &LoopPool{baseLoop: baseLoop}
}

// SetThreadNum configures the worker count. Must be called before Start.
func (p *LoopPool) SetThreadNum(n int) { p.threadNum = n }

// Start spawns one goroutine per worker and blocks until every worker's
// EventLoop is constructed and ready to accept work.
func (p *LoopPool) Start() {
	if p.threadNum <= 0 {
		return
	}
	p.threads = make([]*loopThread, p.threadNum)
	p.loops = make([]*EventLoop, p.threadNum)
	for i := 0; i < p.threadNum; i++ {
		p.threads[i] = newLoopThread("worker")
	}
	for i, t := range p.threads {
		p.loops[i] = t.getLoop()
	}
}

// NextLoop returns the next worker loop round-robin, or the base loop if
// no workers were configured.
func (p *LoopPool) NextLoop() *EventLoop {
	if p.threadNum == 0 {
		return p.baseLoop
	}
	loop := p.loops[p.next%p.threadNum]
	p.next++
	return loop
}

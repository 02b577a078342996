package reactor

const wheelSlots = 60

// timerTask is the Go synthesis of spec.md's TimerTask: Go has no built-in
// weak-reference type, so the wheel's id map holds a non-owning pointer to
// the same *timerTask the bucket holds, and refcount stands in for
// "how many bucket slots currently hold a strong reference to this task."
// refresh increments refcount and pushes a second strong reference into a
// later slot; when a slot is cleared on tick, every task it held has its
// refcount decremented, and the task fires (if not canceled) and is
// removed from the id map only once refcount reaches zero — mirroring a
// C++ shared_ptr's last-reference-drop destructor (spec.md §4.6, design
// note "Weak timer references").
type timerTask struct {
	id       string
	timeout  int
	mainFn   func()
	canceled bool
	refcount int32
}

// TimingWheel is a per-loop, 60-slot cancel-on-drop scheduler. All methods
// must be called on the owning EventLoop's goroutine; EventLoop.Schedule/
// Refresh/Cancel enforce this by routing through Run.
type TimingWheel struct {
	slots [wheelSlots][]*timerTask
	tick  int
	tasks map[string]*timerTask

	timerFd *wheelTimerFd
	channel *Channel
}

func newTimingWheel(loop *EventLoop) (*TimingWheel, error) {
	tfd, err := newWheelTimerFd()
	if err != nil {
		return nil, err
	}
	w := &TimingWheel{
		tasks:   make(map[string]*timerTask),
		timerFd: tfd,
	}
	w.channel = newChannel(loop, tfd.fd)
	w.channel.SetReadCallback(w.onTimerReadable)
	w.channel.EnableReading()
	return w, nil
}

// Schedule builds a TimerTask running fn after timeout seconds, id-keyed
// so it can later be refreshed or canceled. timeout must be strictly less
// than wheelSlots (spec.md §4.6 constraint).
func (w *TimingWheel) Schedule(id string, timeout int, fn func()) {
	if timeout >= wheelSlots {
		panic("reactor: TimingWheel.Schedule: timeout must be < 60")
	}
	task := &timerTask{id: id, timeout: timeout, mainFn: fn, refcount: 1}
	pos := (w.tick + timeout) % wheelSlots
	w.slots[pos] = append(w.slots[pos], task)
	w.tasks[id] = task
}

// Refresh re-arms the task for id at its original timeout from the current
// tick, extending its lifetime without affecting any bucket it's already
// queued in (spec.md §4.6: "extending lifetime by timeout seconds").
func (w *TimingWheel) Refresh(id string) {
	task, ok := w.tasks[id]
	if !ok {
		return
	}
	task.refcount++
	pos := (w.tick + task.timeout) % wheelSlots
	w.slots[pos] = append(w.slots[pos], task)
}

// Cancel flips the canceled flag; the task is left in its bucket and
// drops silently the next time that bucket is cleared (spec.md §4.6).
func (w *TimingWheel) Cancel(id string) {
	task, ok := w.tasks[id]
	if !ok {
		return
	}
	task.canceled = true
}

// HasTask reports whether id currently has a live (possibly canceled)
// task tracked by the wheel. Owner-thread only, unsynchronized (spec.md
// §4.5).
func (w *TimingWheel) HasTask(id string) bool {
	_, ok := w.tasks[id]
	return ok
}

// onTimerReadable is the Channel callback for the wheel's timerfd: it
// reads the elapsed tick count and advances the wheel that many times.
func (w *TimingWheel) onTimerReadable() {
	ticks := w.timerFd.elapsed()
	for i := uint64(0); i < ticks; i++ {
		w.advanceOneTick()
	}
}

func (w *TimingWheel) advanceOneTick() {
	w.tick = (w.tick + 1) % wheelSlots
	slot := w.slots[w.tick]
	w.slots[w.tick] = nil
	for _, task := range slot {
		task.refcount--
		if task.refcount > 0 {
			continue
		}
		if !task.canceled {
			task.mainFn()
		}
		delete(w.tasks, task.id)
	}
}

func (w *TimingWheel) close() error {
	w.channel.Remove()
	return w.timerFd.close()
}

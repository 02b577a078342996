package reactor

// ReadinessCallback is invoked when a Channel's readiness condition fires.
type ReadinessCallback func()

// Channel binds one file descriptor to an interest mask, a readiness mask,
// and five typed readiness callbacks. It is constructed by whoever owns
// the fd; every interest change routes through its owning EventLoop so
// Poller mutations stay on the loop's goroutine (spec.md §3, §4.4).
type Channel struct {
	fd       int
	interest uint32
	ready    uint32

	onRead  ReadinessCallback
	onWrite ReadinessCallback
	onError ReadinessCallback
	onClose ReadinessCallback
	onAny   ReadinessCallback

	loop *EventLoop
}

// newChannel constructs a Channel for fd, owned by loop. It starts with no
// interest and no callbacks; the caller enables interest and installs
// callbacks before the Channel can receive any event.
func newChannel(loop *EventLoop, fd int) *Channel {
	return &Channel{fd: fd, loop: loop}
}

func (c *Channel) SetReadCallback(cb ReadinessCallback)  { c.onRead = cb }
func (c *Channel) SetWriteCallback(cb ReadinessCallback) { c.onWrite = cb }
func (c *Channel) SetErrorCallback(cb ReadinessCallback) { c.onError = cb }
func (c *Channel) SetCloseCallback(cb ReadinessCallback) { c.onClose = cb }
func (c *Channel) SetAnyCallback(cb ReadinessCallback)   { c.onAny = cb }

// ClearCallbacks removes every registered callback, breaking the
// Connection<->Channel reference cycle at teardown (design note "Cyclic
// ownership").
func (c *Channel) ClearCallbacks() {
	c.onRead, c.onWrite, c.onError, c.onClose, c.onAny = nil, nil, nil, nil, nil
}

func (c *Channel) IsReading() bool { return c.interest&EventRead != 0 }
func (c *Channel) IsWriting() bool { return c.interest&EventWrite != 0 }

// EnableReading adds read interest and pushes the change to the Poller.
// Must be called on the owning loop's goroutine.
func (c *Channel) EnableReading() {
	c.interest |= EventRead | EventRdHup
	c.loop.updateInterest(c)
}

// EnableWriting adds write interest and pushes the change to the Poller.
func (c *Channel) EnableWriting() {
	c.interest |= EventWrite
	c.loop.updateInterest(c)
}

// DisableWriting removes write interest and pushes the change to the
// Poller.
func (c *Channel) DisableWriting() {
	c.interest &^= EventWrite
	c.loop.updateInterest(c)
}

// DisableAll clears every interest bit and pushes the change to the
// Poller.
func (c *Channel) DisableAll() {
	c.interest = 0
	c.loop.updateInterest(c)
}

// Remove drops this Channel from the Poller entirely.
func (c *Channel) Remove() {
	c.loop.removeInterest(c)
}

// HandleEvent dispatches callbacks for the current ready mask, in the
// order spec.md §4.4 prescribes: read/rdhup/pri first, else write, else
// error, finally (independently) close.
func (c *Channel) HandleEvent() {
	if c.ready&readTriggers != 0 {
		if c.onRead != nil {
			c.onRead()
		}
		if c.onAny != nil {
			c.onAny()
		}
	} else if c.ready&EventWrite != 0 {
		if c.onWrite != nil {
			c.onWrite()
		}
		if c.onAny != nil {
			c.onAny()
		}
	} else if c.ready&EventError != 0 {
		if c.onAny != nil {
			c.onAny()
		}
		if c.onError != nil {
			c.onError()
		}
	}
	if c.ready&EventHangup != 0 {
		if c.onAny != nil {
			c.onAny()
		}
		if c.onClose != nil {
			c.onClose()
		}
	}
}

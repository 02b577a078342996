package reactor

import (
	"sync"

	"github.com/tidalcore/reactor/internal/rlog"
)

// ConnectionStatus is the Connection state machine (spec.md §3): it only
// ever advances Connecting -> Connected -> Disconnecting -> Disconnected,
// never backward.
type ConnectionStatus int

const (
	StatusConnecting ConnectionStatus = iota
	StatusConnected
	StatusDisconnecting
	StatusDisconnected
)

func (s ConnectionStatus) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusDisconnecting:
		return "disconnecting"
	case StatusDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// ConnectedCallback fires once a Connection finishes establishing.
type ConnectedCallback func(*Connection)

// MessageCallback fires with the live input Buffer whenever new bytes
// arrive; the callback is responsible for advancing the read cursor for
// whatever it consumes.
type MessageCallback func(*Connection, *Buffer)

// CloseCallback fires when a Connection tears down.
type CloseCallback func(*Connection)

// AnyEventCallback fires on every readiness delivery to a live Connection:
// after the read or write handler for read/write readiness, and before the
// error or close handler for error and hang-up readiness.
type AnyEventCallback func(*Connection)

// Connection wraps one accepted socket behind a Buffer pair and a state
// machine (spec.md §3, §4.7). It is always manipulated through its owning
// EventLoop: Establish, Send, Shutdown, EnableIdleRelease,
// DisableIdleRelease and Release marshal onto the loop via Run, so callers
// never need to hold a lock. The context and callback setters assign
// directly, and SwitchProtocol refuses calls made off the loop.
type Connection struct {
	id   string
	fd   int
	sock *socket
	ch   *Channel
	loop *EventLoop

	in  Buffer
	out Buffer

	context interface{}

	status             ConnectionStatus
	idleReleaseEnabled bool

	// closed is closed exactly once, by releaseInLoop, so Send/Shutdown can
	// cheaply tell from any goroutine whether this connection is already
	// gone and return ErrClosed instead of silently queueing onto a loop
	// that will never drain it — the same die-channel pattern SagerNet-smux
	// uses for its IsClosed check.
	closed    chan struct{}
	closeOnce sync.Once

	onConnected  ConnectedCallback
	onMessage    MessageCallback
	onOuterClose CloseCallback
	onInnerClose CloseCallback
	onAny        AnyEventCallback
}

// newConnection builds a Connection around fd, owned by loop. It wires the
// Channel's five callbacks but deliberately does not enable read interest
// yet — spec.md's Acceptor/TcpServer collaborator enables it only after
// Establish runs, so no readiness can fire before a timer task (if any)
// could exist for this id.
func newConnection(loop *EventLoop, id string, fd int) *Connection {
	c := &Connection{
		id:     id,
		fd:     fd,
		sock:   newSocketFromFd(fd),
		loop:   loop,
		status: StatusConnecting,
		closed: make(chan struct{}),
	}
	c.ch = newChannel(loop, fd)
	c.ch.SetReadCallback(c.handleRead)
	c.ch.SetWriteCallback(c.handleWrite)
	c.ch.SetCloseCallback(c.handleClose)
	c.ch.SetErrorCallback(c.handleError)
	c.ch.SetAnyCallback(c.handleAny)
	return c
}

// ID returns the connection's identifier, also used as its timer-task id.
func (c *Connection) ID() string { return c.id }

// Fd returns the underlying file descriptor.
func (c *Connection) Fd() int { return c.fd }

// GetContext returns the protocol-layer context object set by SetContext
// or SwitchProtocol.
func (c *Connection) GetContext() interface{} { return c.context }

// SetContext stores an arbitrary protocol-layer value alongside the
// connection (spec.md §3's "opaque context slot").
func (c *Connection) SetContext(ctx interface{}) { c.context = ctx }

func (c *Connection) SetConnectedCallback(cb ConnectedCallback) { c.onConnected = cb }
func (c *Connection) SetMessageCallback(cb MessageCallback)     { c.onMessage = cb }
func (c *Connection) setInnerCloseCallback(cb CloseCallback)    { c.onInnerClose = cb }
func (c *Connection) SetOuterCloseCallback(cb CloseCallback)    { c.onOuterClose = cb }
func (c *Connection) SetAnyEventCallback(cb AnyEventCallback)   { c.onAny = cb }

// Establish finishes connection setup: flips status to Connected, enables
// read interest, and invokes the connected callback. Marshaled onto the
// loop (spec.md §4.7).
func (c *Connection) Establish() {
	c.loop.Run(c.establishInLoop)
}

func (c *Connection) establishInLoop() {
	if c.status != StatusConnecting {
		panic("reactor: Connection.Establish called twice")
	}
	c.status = StatusConnected
	c.ch.EnableReading()
	if c.onConnected != nil {
		c.onConnected(c)
	}
}

// Send queues data in the output buffer and enables write interest if
// needed. Marshaled onto the loop; data is copied into a private Buffer
// before the call returns so the caller's slice can be reused immediately
// (spec.md §3's note on send() taking ownership of a copy, not the
// original bytes). Returns ErrEmptyBuffer if data is empty, or ErrClosed if
// the connection has already released.
func (c *Connection) Send(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyBuffer
	}
	if c.IsClosed() {
		return ErrClosed
	}
	tmp := NewBuffer()
	tmp.Write(data)
	c.loop.Run(func() { c.sendInLoop(tmp) })
	return nil
}

func (c *Connection) sendInLoop(staged *Buffer) {
	if c.status == StatusDisconnected {
		return
	}
	c.out.Write(staged.ReadPtr())
	if !c.ch.IsWriting() {
		c.ch.EnableWriting()
	}
}

// Shutdown begins half-close: any buffered input is flushed to the
// message callback, any buffered output is drained, then the connection
// releases (spec.md §4.7). Returns ErrClosed if the connection has already
// released.
func (c *Connection) Shutdown() error {
	if c.IsClosed() {
		return ErrClosed
	}
	c.loop.Run(c.shutdownInLoop)
	return nil
}

// IsClosed does a non-blocking check of whether this connection has
// already released, safe to call from any goroutine (SagerNet-smux's
// Session.IsClosed).
func (c *Connection) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Connection) shutdownInLoop() {
	if c.status == StatusDisconnected {
		return
	}
	c.status = StatusDisconnecting
	if c.in.Readable() > 0 && c.onMessage != nil {
		c.onMessage(c, &c.in)
	}
	if c.out.Readable() > 0 {
		if !c.ch.IsWriting() {
			c.ch.EnableWriting()
		}
		// handleWrite releases once the output buffer has drained.
		return
	}
	c.releaseInLoop()
}

// EnableIdleRelease arms (or refreshes) a timer task that releases this
// connection after timeoutSeconds of inactivity, where "activity" is any
// readiness delivery (spec.md §4.7's handleAny-driven refresh).
func (c *Connection) EnableIdleRelease(timeoutSeconds int) {
	c.loop.Run(func() { c.enableIdleReleaseInLoop(timeoutSeconds) })
}

func (c *Connection) enableIdleReleaseInLoop(timeoutSeconds int) {
	c.idleReleaseEnabled = true
	if c.loop.HasTimer(c.id) {
		c.loop.wheel.Refresh(c.id)
	} else {
		c.loop.wheel.Schedule(c.id, timeoutSeconds, c.Release)
	}
}

// DisableIdleRelease cancels any idle-release timer task for this
// connection.
func (c *Connection) DisableIdleRelease() {
	c.loop.Run(c.disableIdleReleaseInLoop)
}

func (c *Connection) disableIdleReleaseInLoop() {
	c.idleReleaseEnabled = false
	c.loop.wheel.Cancel(c.id)
}

// SwitchProtocol replaces the connection's callbacks and context in one
// atomic step. It must be called from the owning loop's goroutine — unlike
// the other setters, a mid-flight switch could otherwise see in-buffer
// bytes parsed by the new protocol's rules against half of the old one's
// framing (spec.md §4.7 note on switch_protocol's same-thread requirement).
// Returns ErrWrongLoop instead of switching if called off that goroutine.
func (c *Connection) SwitchProtocol(ctx interface{}, conCb ConnectedCallback, msgCb MessageCallback, closeCb CloseCallback, anyCb AnyEventCallback) error {
	if !c.loop.inOwnGoroutine() {
		return ErrWrongLoop
	}
	c.context = ctx
	c.onConnected = conCb
	c.onMessage = msgCb
	c.onOuterClose = closeCb
	c.onAny = anyCb
	return nil
}

// Release tears the connection down: flips status to Disconnected, strips
// every Channel callback, removes the fd from the Poller, closes the
// socket, cancels any timer task, then fires the outer close callback
// before the inner one (spec.md §4.7: outer first, so the upper layer
// never dereferences a Connection the server has already reclaimed).
func (c *Connection) Release() {
	c.loop.Run(c.releaseInLoop)
}

func (c *Connection) releaseInLoop() {
	if c.status == StatusDisconnected {
		return
	}
	c.status = StatusDisconnected
	c.closeOnce.Do(func() { close(c.closed) })
	c.ch.ClearCallbacks()
	c.ch.DisableAll()
	c.ch.Remove()
	if err := c.sock.close(); err != nil {
		rlog.Debugf("reactor: connection %s: close: %v", c.id, err)
	}
	if c.idleReleaseEnabled && c.loop.wheel.HasTask(c.id) {
		c.loop.wheel.Cancel(c.id)
	}
	if c.onOuterClose != nil {
		c.onOuterClose(c)
	}
	if c.onInnerClose != nil {
		c.onInnerClose(c)
	}
}

// handleRead is the Channel's read callback. It reads once, nonblocking,
// into the input buffer using the actual recv return value — never a
// fixed stack-buffer size — so a short read never leaks uninitialized or
// stale bytes into the stream (spec.md §9(i), §4.7).
func (c *Connection) handleRead() {
	if c.status == StatusDisconnected || c.status == StatusDisconnecting {
		return
	}
	var scratch [65536]byte
	n, _ := c.sock.recv(scratch[:])
	if n < 0 {
		c.shutdownInLoop()
		return
	}
	if n > 0 {
		c.in.Write(scratch[:n])
	}
	if c.in.Readable() > 0 && c.onMessage != nil {
		c.onMessage(c, &c.in)
	}
}

// handleWrite drains the output buffer as far as the kernel will accept in
// one nonblocking send (spec.md §4.7).
func (c *Connection) handleWrite() {
	if c.status == StatusDisconnected {
		return
	}
	n, _ := c.sock.send(c.out.ReadPtr())
	if n < 0 {
		if c.in.Readable() > 0 && c.onMessage != nil {
			c.onMessage(c, &c.in)
		}
		c.releaseInLoop()
		return
	}
	c.out.AdvanceRead(n)
	if c.out.Readable() == 0 {
		c.ch.DisableWriting()
		if c.status == StatusDisconnecting {
			c.releaseInLoop()
		}
	}
}

// handleClose flushes any remaining input to the message callback, then
// releases.
func (c *Connection) handleClose() {
	if c.in.Readable() > 0 && c.onMessage != nil {
		c.onMessage(c, &c.in)
	}
	c.releaseInLoop()
}

// handleError treats a Channel error identically to a hang-up.
func (c *Connection) handleError() {
	c.handleClose()
}

// handleAny fires on every readiness delivery; while idle release is
// armed it refreshes the timer task so activity resets the countdown
// (spec.md §4.7).
func (c *Connection) handleAny() {
	if c.status == StatusDisconnected {
		return
	}
	if c.idleReleaseEnabled {
		c.loop.wheel.Refresh(c.id)
	}
	if c.onAny != nil {
		c.onAny(c)
	}
}

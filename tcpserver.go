package reactor

import (
	"sync"

	"github.com/tidalcore/reactor/internal/rlog"
)

// TcpServer is the lifecycle glue described in spec.md §3/§4.9: it owns the
// Acceptor and base loop, a LoopPool of workers, a registry of live
// connections keyed by id, and the global user callback surface installed
// on every accepted Connection.
type TcpServer struct {
	baseLoop *EventLoop
	acceptor *Acceptor
	pool     *LoopPool

	idleTimeoutSeconds int
	idleReleaseEnabled bool

	registryMu sync.Mutex
	registry   map[string]*Connection

	onConnected  ConnectedCallback
	onMessage    MessageCallback
	onOuterClose CloseCallback
	onAny        AnyEventCallback
}

// NewTcpServer builds the base loop and binds the listening socket on
// port. The server does not start accepting connections until Start is
// called (spec.md §4.9). Returns ErrBadAddress for a port outside the
// valid TCP range.
func NewTcpServer(port int) (*TcpServer, error) {
	if port < 1 || port > 65535 {
		return nil, ErrBadAddress
	}
	base, err := NewEventLoop("base")
	if err != nil {
		return nil, err
	}
	acc, err := newAcceptor(base, port)
	if err != nil {
		base.close()
		return nil, err
	}
	s := &TcpServer{
		baseLoop: base,
		acceptor: acc,
		pool:     newLoopPool(base),
		registry: make(map[string]*Connection),
	}
	acc.SetAcceptCallback(s.handleAccept)
	return s, nil
}

// SetThreadNum configures the worker pool size. Must be called before
// Start.
func (s *TcpServer) SetThreadNum(n int) { s.pool.SetThreadNum(n) }

// EnableIdleRelease arms idle-connection eviction: every Connection
// accepted from then on gets a refreshing idle timer of timeoutSeconds
// (spec.md §4.9's "enable idle release if configured").
func (s *TcpServer) EnableIdleRelease(timeoutSeconds int) {
	s.idleReleaseEnabled = true
	s.idleTimeoutSeconds = timeoutSeconds
}

func (s *TcpServer) SetConnectedCallback(cb ConnectedCallback) { s.onConnected = cb }
func (s *TcpServer) SetMessageCallback(cb MessageCallback)     { s.onMessage = cb }
func (s *TcpServer) SetOuterCloseCallback(cb CloseCallback)    { s.onOuterClose = cb }
func (s *TcpServer) SetAnyEventCallback(cb AnyEventCallback)   { s.onAny = cb }

// Start spawns the worker pool, enables the acceptor, and blocks running
// the base loop forever.
func (s *TcpServer) Start() {
	s.pool.Start()
	s.acceptor.Enable()
	s.baseLoop.Loop()
}

// RunTask schedules fn to run once, after timeoutSeconds, on the base
// loop's timing wheel under a freshly minted id, for work that isn't tied
// to any one connection (spec.md §4.9).
func (s *TcpServer) RunTask(fn func(), timeoutSeconds int) {
	s.baseLoop.Run(func() {
		id := newIdentifier()
		s.baseLoop.wheel.Schedule(id, timeoutSeconds, fn)
	})
}

// handleAccept runs on the base loop (it is the Acceptor's read
// callback): it mints an id, builds the Connection on the next worker
// loop, installs every user callback plus the registry-erasing inner
// close callback, arms idle release if configured, and finally calls
// Establish (spec.md §4.9).
func (s *TcpServer) handleAccept(fd int) {
	id := newIdentifier()
	loop := s.pool.NextLoop()
	conn := newConnection(loop, id, fd)

	conn.SetConnectedCallback(s.onConnected)
	conn.SetMessageCallback(s.onMessage)
	conn.SetOuterCloseCallback(s.onOuterClose)
	conn.SetAnyEventCallback(s.onAny)
	conn.setInnerCloseCallback(s.handleClose)

	if s.idleReleaseEnabled {
		conn.EnableIdleRelease(s.idleTimeoutSeconds)
	}

	s.registryMu.Lock()
	s.registry[id] = conn
	s.registryMu.Unlock()

	conn.Establish()
}

// handleClose is the inner close callback: it runs on whichever worker
// loop released the connection, so the actual registry mutation is
// marshaled onto the base loop exactly as spec.md §4.9 describes.
func (s *TcpServer) handleClose(conn *Connection) {
	s.baseLoop.Run(func() { s.handleCloseInLoop(conn) })
}

func (s *TcpServer) handleCloseInLoop(conn *Connection) {
	s.registryMu.Lock()
	delete(s.registry, conn.ID())
	s.registryMu.Unlock()
	rlog.Debugf("reactor: connection %s removed from registry", conn.ID())
}

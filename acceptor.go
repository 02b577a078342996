package reactor

import "github.com/tidalcore/reactor/internal/rlog"

// AcceptCallback receives a freshly accepted, nonblocking file descriptor.
// The Acceptor itself never constructs a Connection for it — that is
// TcpServer's job (spec.md §4.8).
type AcceptCallback func(fd int)

// Acceptor owns the listening socket and hands accepted descriptors up to
// its caller. It always runs on the base EventLoop.
type Acceptor struct {
	sock     *socket
	ch       *Channel
	onAccept AcceptCallback
}

// newAcceptor binds a listening socket on port to loop (the base loop) and
// wires its read callback to handleAccept. Read interest is not enabled
// here; the caller enables it once everything else is ready (spec.md
// §4.8).
func newAcceptor(loop *EventLoop, port int) (*Acceptor, error) {
	sock, err := createServerSocket(port)
	if err != nil {
		return nil, err
	}
	a := &Acceptor{sock: sock}
	a.ch = newChannel(loop, sock.fd)
	a.ch.SetReadCallback(a.handleAccept)
	return a, nil
}

// SetAcceptCallback installs the callback invoked with each accepted fd.
func (a *Acceptor) SetAcceptCallback(cb AcceptCallback) { a.onAccept = cb }

// Enable starts read-readiness monitoring on the listening socket.
func (a *Acceptor) Enable() { a.ch.EnableReading() }

// handleAccept issues one accept per readiness notification (spec.md
// §4.8's "loops once per wakeup"); a negative result means no connection
// was pending or accept failed, and is logged, not propagated, so the
// base loop keeps running (spec.md §7's Accept-error row).
func (a *Acceptor) handleAccept() {
	fd := a.sock.accept()
	if fd < 0 {
		rlog.Debugf("reactor: acceptor: no pending connection or accept failed")
		return
	}
	if a.onAccept != nil {
		a.onAccept(fd)
	}
}

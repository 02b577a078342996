//go:build linux

package reactor

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// socket is a thin wrapper over a nonblocking stream socket file descriptor.
type socket struct {
	fd int
}

// createServerSocket builds a nonblocking IPv4 listening socket bound to
// port with SO_REUSEADDR and SO_REUSEPORT set, and a backlog of 1024
// (spec.md §6).
func createServerSocket(port int) (*socket, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("reactor: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("reactor: setsockopt SO_REUSEADDR: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("reactor: setsockopt SO_REUSEPORT: %w", err)
	}
	addr := &unix.SockaddrInet4{Port: port}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("reactor: bind: %w", err)
	}
	const backlog = 1024
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("reactor: listen: %w", err)
	}
	return &socket{fd: fd}, nil
}

// accept returns a new nonblocking connected fd, or -1 if no connection is
// currently pending or the accept failed.
func (s *socket) accept() int {
	nfd, _, err := unix.Accept4(s.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		return -1
	}
	return nfd
}

func (s *socket) close() error {
	return unix.Close(s.fd)
}

// newSocketFromFd wraps an already-nonblocking fd (e.g. from accept).
func newSocketFromFd(fd int) *socket {
	return &socket{fd: fd}
}

// recv reads into buf. It returns (n, nil) for n>0 bytes moved, (0, nil) on
// EAGAIN/EWOULDBLOCK (treated as "no bytes moved, no state change" per
// spec.md §7; EINTR retries the read), and (-1, err) on a fatal error or
// peer close (read
// returning 0, surfaced as io.EOF-shaped via a nil err and -1 to match the
// Socket.recv contract in spec.md §4.2: recv returning 0 means peer close).
func (s *socket) recv(buf []byte) (int, error) {
	for {
		n, err := unix.Read(s.fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN {
			return 0, nil
		}
		if err != nil {
			return -1, err
		}
		if n == 0 {
			return -1, nil // peer closed
		}
		return n, nil
	}
}

// send writes buf. Same return contract as recv: >0 moved, 0 on
// EAGAIN/EWOULDBLOCK (EINTR retries the write), -1 on fatal error.
func (s *socket) send(buf []byte) (int, error) {
	for {
		n, err := unix.Write(s.fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN {
			return 0, nil
		}
		if err != nil {
			return -1, err
		}
		return n, nil
	}
}

// localAddr reports the socket's bound local address, used for diagnostics.
func (s *socket) localAddr() net.Addr {
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return nil
	}
	if sa4, ok := sa.(*unix.SockaddrInet4); ok {
		return &net.TCPAddr{IP: sa4.Addr[:], Port: sa4.Port}
	}
	return nil
}

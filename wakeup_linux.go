//go:build linux

package reactor

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// wakeupFd wraps a counter-semantics eventfd used to unblock a loop's
// EpollWait from another goroutine (spec.md §4.5, GLOSSARY "Wakeup
// descriptor").
type wakeupFd struct {
	fd int
}

func newWakeupFd() (*wakeupFd, error) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("reactor: eventfd: %w", err)
	}
	return &wakeupFd{fd: fd}, nil
}

// wake writes one tick to the eventfd counter. Transient EAGAIN/EINTR are
// tolerated; any other error is fatal (spec.md §4.5).
func (w *wakeupFd) wake() {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	for {
		_, err := unix.Write(w.fd, buf[:])
		if err == nil || err == unix.EAGAIN {
			return
		}
		if err == unix.EINTR {
			continue
		}
		fatal(ExitWakeupFailure, fmt.Errorf("reactor: eventfd write: %w", err))
	}
}

// drain reads and discards the accumulated counter value.
func (w *wakeupFd) drain() {
	var buf [8]byte
	for {
		_, err := unix.Read(w.fd, buf[:])
		if err == nil || err == unix.EAGAIN {
			return
		}
		if err == unix.EINTR {
			continue
		}
		fatal(ExitWakeupFailure, fmt.Errorf("reactor: eventfd read: %w", err))
	}
}

func (w *wakeupFd) close() error {
	return unix.Close(w.fd)
}

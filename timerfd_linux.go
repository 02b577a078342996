//go:build linux

package reactor

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// wheelTimerFd wraps a 1 Hz periodic kernel timer (CLOCK_MONOTONIC
// timerfd) that drives the TimingWheel's tick (spec.md §3 TimingWheel,
// GLOSSARY "Tick").
type wheelTimerFd struct {
	fd int
}

func newWheelTimerFd() (*wheelTimerFd, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("reactor: timerfd_create: %w", err)
	}
	spec := unix.ItimerSpec{
		Interval: unix.NsecToTimespec(int64(1e9)),
		Value:    unix.NsecToTimespec(int64(1e9)),
	}
	if err := unix.TimerfdSettime(fd, 0, &spec, nil); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("reactor: timerfd_settime: %w", err)
	}
	return &wheelTimerFd{fd: fd}, nil
}

// elapsed reads the number of ticks (seconds) elapsed since the last read.
// EAGAIN reports zero ticks and EINTR retries the read; any other error
// is fatal
// (spec.md §7).
func (t *wheelTimerFd) elapsed() uint64 {
	var buf [8]byte
	for {
		_, err := unix.Read(t.fd, buf[:])
		if err == nil {
			return binary.LittleEndian.Uint64(buf[:])
		}
		if err == unix.EAGAIN {
			return 0
		}
		if err == unix.EINTR {
			continue
		}
		fatal(ExitTimerFailure, fmt.Errorf("reactor: timerfd read: %w", err))
		return 0
	}
}

func (t *wheelTimerFd) close() error {
	return unix.Close(t.fd)
}

//go:build linux

package reactor

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Interest/readiness bit layout mirrors unix.EPOLLIN et al. directly so
// Channel and poller share one mask representation (spec.md §4.3/§4.4).
const (
	EventRead    = unix.EPOLLIN
	EventWrite   = unix.EPOLLOUT
	EventError   = unix.EPOLLERR
	EventHangup  = unix.EPOLLHUP
	EventRdHup   = unix.EPOLLRDHUP
	EventPri     = unix.EPOLLPRI
	readTriggers = EventRead | EventRdHup | EventPri
)

// poller is the readiness demultiplexer: a mapping from fd to Channel,
// backed by one epoll instance. Operations are O(1); Wait blocks until at
// least one descriptor is ready or is interrupted, in which case it
// returns an empty set (spec.md §4.3).
type poller struct {
	epfd     int
	channels map[int]*Channel
	eventBuf []unix.EpollEvent
}

func newPoller() (*poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("reactor: epoll_create1: %w", err)
	}
	return &poller{
		epfd:     epfd,
		channels: make(map[int]*Channel),
		eventBuf: make([]unix.EpollEvent, 256),
	}, nil
}

// update adds or modifies ch's kernel interest set to exactly its current
// interest mask. Every fd with non-zero interest appears exactly once in
// the epoll instance (spec.md §3 Poller invariant).
func (p *poller) update(ch *Channel) error {
	_, existed := p.channels[ch.fd]
	ev := unix.EpollEvent{Events: ch.interest, Fd: int32(ch.fd)}
	op := unix.EPOLL_CTL_MOD
	if !existed {
		op = unix.EPOLL_CTL_ADD
	}
	if err := unix.EpollCtl(p.epfd, op, ch.fd, &ev); err != nil {
		return fmt.Errorf("reactor: epoll_ctl: %w", err)
	}
	p.channels[ch.fd] = ch
	return nil
}

// remove deletes ch from the epoll instance and drops the internal mapping.
func (p *poller) remove(ch *Channel) error {
	if _, ok := p.channels[ch.fd]; !ok {
		return nil
	}
	delete(p.channels, ch.fd)
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, ch.fd, nil); err != nil {
		return fmt.Errorf("reactor: epoll_ctl del: %w", err)
	}
	return nil
}

// wait blocks until ready events exist, returning the fresh set of ready
// channels for this call. On EINTR it returns an empty set without error;
// any other demultiplex error is fatal (spec.md §4.3, §7).
func (p *poller) wait(out []*Channel) []*Channel {
	out = out[:0]
	n, err := unix.EpollWait(p.epfd, p.eventBuf, -1)
	if err != nil {
		if err == unix.EINTR {
			return out
		}
		fatal(ExitPollerFailure, fmt.Errorf("reactor: epoll_wait: %w", err))
	}
	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Fd)
		ch, ok := p.channels[fd]
		if !ok {
			continue
		}
		ch.ready = p.eventBuf[i].Events
		out = append(out, ch)
	}
	return out
}

func (p *poller) close() error {
	return unix.Close(p.epfd)
}

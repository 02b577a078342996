package reactor

import "errors"

// Recoverable errors returned from core operations. Infra-level failures
// while a loop runs (epoll ctl/wait, eventfd read/write, timerfd read) are
// not represented as errors — they are fatal and terminate the process,
// see FatalExitCode. Failures while creating a loop's epoll, eventfd or
// timerfd, or the listening socket, are returned as plain errors from
// NewEventLoop and NewTcpServer.
var (
	// ErrClosed is returned by Connection.Send and Connection.Shutdown once
	// the connection has been released.
	ErrClosed = errors.New("reactor: closed")
	// ErrEmptyBuffer is returned when a caller passes a zero-length buffer
	// to an operation that requires data.
	ErrEmptyBuffer = errors.New("reactor: empty buffer")
	// ErrBadAddress is returned when NewTcpServer receives a port outside
	// the valid TCP range.
	ErrBadAddress = errors.New("reactor: bad listen address")
	// ErrWrongLoop is returned by operations asserted to run on a specific
	// EventLoop's goroutine when called from elsewhere.
	ErrWrongLoop = errors.New("reactor: operation must run on owning loop")
)

// FatalExitCode identifies the kind of unrecoverable infrastructure failure
// that terminates the process. Each kind gets a distinct code so operators
// can distinguish a dead poller from a dead timer from a failed listen.
type FatalExitCode int

const (
	// ExitPollerFailure is used when epoll ctl/wait fails fatally, and when
	// a worker loop fails to construct, whichever descriptor failed.
	ExitPollerFailure FatalExitCode = 70
	// ExitWakeupFailure is used when a read or write of the wakeup eventfd
	// fails fatally.
	ExitWakeupFailure FatalExitCode = 71
	// ExitTimerFailure is used when a read of the timing wheel's timerfd
	// fails fatally.
	ExitTimerFailure FatalExitCode = 72
	// ExitListenFailure is the code for listening-socket failures. No code
	// path exits with it: NewTcpServer returns those failures as an error.
	ExitListenFailure FatalExitCode = 73
)

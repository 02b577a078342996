package reactor

import (
	"os"

	"github.com/tidalcore/reactor/internal/rlog"
)

// fatal logs err at fatal severity and terminates the process with the
// exit code for kind. Infrastructural failures (poller/eventfd/timerfd/
// listen-socket) are unrecoverable and should crash promptly rather than
// attempt to limp forward (spec.md §7 rationale).
func fatal(kind FatalExitCode, err error) {
	rlog.Fatalf("fatal infrastructure error (exit %d): %v", kind, err)
	os.Exit(int(kind))
}

// Package reactor implements a multi-reactor TCP server: one acceptor loop
// and N worker loops, each demultiplexing readiness on its own epoll
// instance, dispatching deferred work through a mutex-guarded task queue,
// and expiring idle connections through a per-loop timing wheel.
//
// The package follows a one-goroutine-per-loop model. A Connection's
// mutators always run on the goroutine of the EventLoop that owns it;
// callers on other goroutines marshal work in via EventLoop.Run.
package reactor

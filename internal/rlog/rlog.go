// Package rlog is the process-wide structured logging facade. It is a thin
// wrapper over a single *zap.SugaredLogger, initialized once from main
// (never from a package init, per the design note preferring a main-entry
// call over static constructors).
package rlog

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	current      atomic.Pointer[zap.SugaredLogger]
	fallbackOnce sync.Once
)

// Init installs the process-wide logger. development selects
// zap's human-readable development encoder; production selects the
// default JSON encoder. Call this once from main.
func Init(development bool) error {
	var l *zap.Logger
	var err error
	if development {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}
	current.Store(l.Sugar())
	return nil
}

// L returns the process-wide logger, lazily installing a development
// default the first time it's called before Init has run — e.g. from
// library code or tests that never call Init — instead of via a package
// init().
func L() *zap.SugaredLogger {
	if l := current.Load(); l != nil {
		return l
	}
	fallbackOnce.Do(func() {
		if current.Load() != nil {
			return
		}
		l, _ := zap.NewDevelopment()
		current.Store(l.Sugar())
	})
	return current.Load()
}

func Debugf(template string, args ...interface{}) { L().Debugf(template, args...) }
func Infof(template string, args ...interface{})  { L().Infof(template, args...) }
func Warnf(template string, args ...interface{})  { L().Warnf(template, args...) }
func Errorf(template string, args ...interface{}) { L().Errorf(template, args...) }

// Fatalf logs at error level. Unlike zap's own Fatalf it does not call
// os.Exit itself — callers that need a distinct exit code use the
// reactor package's fatal() helper, which logs then exits with the code
// appropriate to the failure kind.
func Fatalf(template string, args ...interface{}) { L().Errorf(template, args...) }

// internal/recovery/recovery.go
// Package recovery turns panics in main or in worker goroutines into a
// logged, flushed exit with status 1.
package recovery

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/golang/glog"
)

// exit is replaced in tests
var exit = os.Exit

// HandlePanic should be deferred at the top of main() or goroutines.
// It logs panic details and exits with code 1.
func HandlePanic() {
	if r := recover(); r != nil {
		report(r)
		exit(1)
	}
}

// HandlePanicFunc logs panic details, runs cleanup (releasing the key and
// audio devices, for example) and exits with code 1.
func HandlePanicFunc(cleanup func()) {
	if r := recover(); r != nil {
		report(r)
		if cleanup != nil {
			cleanup()
		}
		exit(1)
	}
}

// Go runs fn on a new goroutine guarded by HandlePanicFunc(cleanup)
func Go(fn func(), cleanup func()) {
	go func() {
		defer HandlePanicFunc(cleanup)
		fn()
	}()
}

func report(r any) {
	stack := debug.Stack()
	glog.Errorf("panic: %v", r)
	glog.Flush()
	_, _ = fmt.Fprintf(os.Stderr, "FATAL: %v\n\nStack trace:\n%s\n", r, stack)
}

// Package testutil holds helpers shared by teardown tests.
package testutil

import (
	"runtime"
	"testing"
	"time"
)

// Baseline lets finished goroutines from earlier tests exit, then returns
// the current goroutine count.
func Baseline() int {
	runtime.GC()
	time.Sleep(20 * time.Millisecond)
	return runtime.NumGoroutine()
}

// AssertNoGoroutineLeaks waits for the goroutine count to fall back to
// baseline+margin. On timeout it fails the test with a dump of all stacks.
func AssertNoGoroutineLeaks(t *testing.T, baseline int, margin int) {
	t.Helper()
	var current int
	for deadline := time.Now().Add(5 * time.Second); time.Now().Before(deadline); time.Sleep(50 * time.Millisecond) {
		if current = runtime.NumGoroutine(); current <= baseline+margin {
			return
		}
	}
	buf := make([]byte, 1<<16)
	buf = buf[:runtime.Stack(buf, true)]
	t.Errorf("goroutine leak: baseline=%d current=%d margin=%d\n%s", baseline, current, margin, buf)
}

// Package utils holds small test-support helpers shared across packages.
package utils

import (
	"runtime"
	"testing"
	"time"
)

// GoroutineLeakDetector flags tests that leave pump or listener goroutines
// behind after shutdown.
type GoroutineLeakDetector struct {
	t              *testing.T
	initialCount   int
	allowedGrowth  int
	stabilizeDelay time.Duration
}

// NewGoroutineLeakDetector creates a detector bound to t.
func NewGoroutineLeakDetector(t *testing.T) *GoroutineLeakDetector {
	return &GoroutineLeakDetector{
		t:              t,
		stabilizeDelay: 200 * time.Millisecond,
	}
}

// SetAllowedGrowth permits n extra goroutines at check time.
func (d *GoroutineLeakDetector) SetAllowedGrowth(n int) *GoroutineLeakDetector {
	d.allowedGrowth = n
	return d
}

// Start records the baseline goroutine count.
func (d *GoroutineLeakDetector) Start() {
	time.Sleep(d.stabilizeDelay)
	d.initialCount = runtime.NumGoroutine()
}

// Check fails the test if the goroutine count grew past the allowance. The
// count is sampled several times and the minimum used, since runtimes in
// cleanup briefly overshoot.
func (d *GoroutineLeakDetector) Check() {
	time.Sleep(d.stabilizeDelay)

	final := runtime.NumGoroutine()
	for i := 0; i < 2; i++ {
		time.Sleep(100 * time.Millisecond)
		if n := runtime.NumGoroutine(); n < final {
			final = n
		}
	}

	leaked := final - d.initialCount
	if leaked > d.allowedGrowth {
		buf := make([]byte, 1<<20)
		n := runtime.Stack(buf, true)
		d.t.Errorf("goroutine leak: started with %d, ended with %d\n%s",
			d.initialCount, final, buf[:n])
	}
}

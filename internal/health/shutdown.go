package health

import "sync/atomic"

var ready atomic.Bool

func init() {
	ready.Store(true)
}

// SetReady flips the global readiness gate. Call with false at the start of
// graceful shutdown so load balancers drain the instance before the listener
// closes.
func SetReady(v bool) {
	ready.Store(v)
}

// IsReady reports the current readiness gate.
func IsReady() bool {
	return ready.Load()
}

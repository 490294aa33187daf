// SPDX-License-Identifier: GPL-3.0-or-later
package scheduler

import "sync/atomic"

// RunGuard is the process-wide "a run is executing" flag shared by the timer
// and the manual trigger.
type RunGuard struct {
	running atomic.Bool
}

// TryAcquire moves the guard from idle to running. It returns false if a run
// is already executing.
func (g *RunGuard) TryAcquire() bool {
	return g.running.CompareAndSwap(false, true)
}

func (g *RunGuard) Release() {
	g.running.Store(false)
}

func (g *RunGuard) Running() bool {
	return g.running.Load()
}

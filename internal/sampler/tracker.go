package sampler

import "sync/atomic"

// PIDTracker holds the pid currently being tracked, if any. The finder is the
// only writer and the sampler the only reader; the sampler may see a value up
// to one finder poll interval old.
type PIDTracker struct {
	pid atomic.Int64 // 0 means none; real pids are positive
}

// Set records pid as tracked. Non-positive values clear the tracker.
func (t *PIDTracker) Set(pid int) {
	if pid <= 0 {
		pid = 0
	}
	t.pid.Store(int64(pid))
}

// Clear stops tracking.
func (t *PIDTracker) Clear() { t.pid.Store(0) }

// Get returns the tracked pid, or false if none.
func (t *PIDTracker) Get() (int, bool) {
	v := t.pid.Load()
	return int(v), v > 0
}

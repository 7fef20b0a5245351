package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/Dicklesworthstone/cpucollect/internal/procfs"
)

var (
	// ErrNoStateChange means two readings have the same cumulative cpu time,
	// so no rate can be derived from them.
	ErrNoStateChange = errors.New("no cpu time elapsed between readings")
	// ErrCounterWentBackwards means the cumulative cpu time decreased between
	// readings. The kernel never does this; treat it as fatal.
	ErrCounterWentBackwards = errors.New("impossible: current cumulative CPU time less than previous cumulative CPU time")
)

// Baseline is what a Reading keeps of its predecessor: the cumulative cpu
// record and, if a process was tracked, that process's total time.
type Baseline struct {
	CPU          procfs.CPUStats
	ProcessTotal uint64
	HasProcess   bool
}

// Reading is one sampling epoch, exchanged between sampler, writer and UI.
type Reading struct {
	Timestamp time.Time
	System    procfs.SystemStat
	Process   *procfs.ProcessStats

	prev *Baseline
}

// NewReading builds a reading; prev may be nil for the first epoch.
func NewReading(ts time.Time, sys procfs.SystemStat, proc *procfs.ProcessStats, prev *Baseline) Reading {
	r := Reading{Timestamp: ts, System: sys, Process: proc}
	if prev != nil {
		p := *prev
		r.prev = &p
	}
	return r
}

// Baseline returns the values the next reading needs from this one.
func (r Reading) Baseline() Baseline {
	b := Baseline{CPU: r.System.Cumulative()}
	if r.Process != nil {
		b.ProcessTotal = r.Process.TotalTime()
		b.HasProcess = true
	}
	return b
}

// Linked reports whether delta computations against a previous reading are
// still available.
func (r Reading) Linked() bool { return r.prev != nil }

// Unlink drops the previous baseline. Percentages fall back to since-boot
// fractions afterwards.
func (r *Reading) Unlink() { r.prev = nil }

// Percentage returns the fraction (0-1) of cpu time spent in counter c. A
// linked reading uses the interval since the previous reading; an unlinked one
// uses the time since boot.
func (r Reading) Percentage(c procfs.Counter) (float64, error) {
	cur := r.System.Cumulative()

	if r.prev == nil {
		total := cur.TotalTime()
		if total == 0 {
			return 0, ErrNoStateChange
		}
		return float64(cur.Value(c)) / float64(total), nil
	}

	prev := r.prev.CPU
	if cur.TotalTime() == prev.TotalTime() {
		return 0, ErrNoStateChange
	}
	// Signed differences keep a decreasing counter visible instead of wrapping.
	num := int64(cur.Value(c) - prev.Value(c))
	den := int64(cur.TotalTime() - prev.TotalTime())
	return float64(num) / float64(den), nil
}

// ProcessUtilization returns the tracked process's share of cpu time (0-1 per
// core) since the previous reading. ok is false when either reading lacks
// process data, the reading is unlinked, or no cpu time elapsed.
func (r Reading) ProcessUtilization() (util float64, ok bool, err error) {
	if r.Process == nil || r.prev == nil || !r.prev.HasProcess {
		return 0, false, nil
	}

	cur := r.System.Cumulative().TotalTime()
	prev := r.prev.CPU.TotalTime()
	if cur < prev {
		return 0, false, fmt.Errorf("%w (%d < %d)", ErrCounterWentBackwards, cur, prev)
	}
	if cur == prev {
		return 0, false, nil
	}

	// No sign check: a reused pid can make this negative.
	proc := int64(r.Process.TotalTime() - r.prev.ProcessTotal)
	return float64(proc) / float64(cur-prev), true, nil
}

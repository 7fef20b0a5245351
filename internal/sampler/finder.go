package sampler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// DefaultFinderInterval is how often the finder lists processes.
const DefaultFinderInterval = 500 * time.Millisecond

type candidate struct {
	pid     int
	cmdline string
}

// Finder keeps a PIDTracker pointed at the single process whose command line
// matches a pattern.
type Finder struct {
	Interval time.Duration

	pattern *regexp.Regexp
	tracker *PIDTracker
	log     *slog.Logger
	self    int
	list    func(ctx context.Context) ([]candidate, error)
}

func NewFinder(pattern *regexp.Regexp, interval time.Duration, tracker *PIDTracker, log *slog.Logger) *Finder {
	if interval <= 0 {
		interval = DefaultFinderInterval
	}
	return &Finder{
		Interval: interval,
		pattern:  pattern,
		tracker:  tracker,
		log:      log,
		self:     os.Getpid(),
		list:     listProcesses,
	}
}

// Find returns the pids, in ascending order, of all processes other than this
// one whose command line matches the pattern.
func (f *Finder) Find(ctx context.Context) ([]int, error) {
	procs, err := f.list(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}
	var pids []int
	for _, p := range procs {
		if p.pid == f.self {
			continue
		}
		if f.pattern.MatchString(p.cmdline) {
			pids = append(pids, p.pid)
		}
	}
	sort.Ints(pids)
	return pids, nil
}

// Poll runs one discovery pass. No match clears the tracker; several matches
// leave it unchanged.
func (f *Finder) Poll(ctx context.Context) {
	pids, err := f.Find(ctx)
	if err != nil {
		f.log.Warn("process discovery failed", "error", err)
		return
	}

	switch len(pids) {
	case 0:
		if old, ok := f.tracker.Get(); ok {
			f.log.Info("tracked process gone", "pid", old)
		}
		f.tracker.Clear()
	case 1:
		if old, ok := f.tracker.Get(); !ok || old != pids[0] {
			f.log.Info("tracking process", "pid", pids[0], "pattern", f.pattern.String())
		}
		f.tracker.Set(pids[0])
	default:
		f.log.Warn("more than one process matches", "pattern", f.pattern.String(), "pids", pids)
	}
}

// Run polls until ctx is done.
func (f *Finder) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.Interval)
	defer ticker.Stop()

	f.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			f.Poll(ctx)
		}
	}
}

func listProcesses(ctx context.Context) ([]candidate, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]candidate, 0, len(procs))
	for _, p := range procs {
		cmd, err := p.CmdlineWithContext(ctx)
		if err != nil || cmd == "" {
			// Kernel threads and zombies have no command line.
			name, nerr := p.NameWithContext(ctx)
			if nerr != nil {
				continue
			}
			cmd = name
		}
		out = append(out, candidate{pid: int(p.Pid), cmdline: cmd})
	}
	return out, nil
}

package procfs

import (
	"fmt"
	"strings"
)

// SystemStat holds the cpu lines of one /proc/stat reading. Other lines
// (intr, ctxt, page, ...) are skipped.
type SystemStat struct {
	cumulative CPUStats
	cores      []CPUStats // indexed by core id; gaps have hasCore == false
	count      int
}

// Cumulative returns the all-cores "cpu" record.
func (s SystemStat) Cumulative() CPUStats { return s.cumulative }

// CPUCount returns the number of per-core records read.
func (s SystemStat) CPUCount() int { return s.count }

// Core returns the record of core id, or ErrNoSuchCore.
func (s SystemStat) Core(id int) (CPUStats, error) {
	if id < 0 || id >= len(s.cores) || !s.cores[id].hasCore {
		return CPUStats{}, fmt.Errorf("%w: %d", ErrNoSuchCore, id)
	}
	return s.cores[id], nil
}

// Cores returns the per-core records in core id order.
func (s SystemStat) Cores() []CPUStats {
	out := make([]CPUStats, 0, s.count)
	for _, c := range s.cores {
		if c.hasCore {
			out = append(out, c)
		}
	}
	return out
}

// ParseSystemStat parses the full content of /proc/stat.
func ParseSystemStat(content string) (SystemStat, error) {
	var (
		stat          SystemStat
		hasCumulative bool
	)

	for i, line := range strings.Split(content, "\n") {
		if !strings.HasPrefix(line, CPULinePrefix) {
			continue
		}
		lineNumber := i + 1
		cpu, err := ParseCPULine(lineNumber, line)
		if err != nil {
			return SystemStat{}, err
		}

		id, ok := cpu.CoreID()
		if !ok {
			if hasCumulative {
				return SystemStat{}, newParseError(lineNumber, ErrDuplicateCPU, "cpu", line,
					"duplicate cumulative cpu line")
			}
			stat.cumulative = cpu
			hasCumulative = true
			continue
		}

		for len(stat.cores) <= id {
			stat.cores = append(stat.cores, CPUStats{})
		}
		if stat.cores[id].hasCore {
			return SystemStat{}, newParseError(lineNumber, ErrDuplicateCPU, "cpu", line,
				"duplicate line for cpu %d", id)
		}
		stat.cores[id] = cpu
		stat.count++
	}

	if !hasCumulative {
		return SystemStat{}, newParseError(0, ErrMissingCPUData, "cpu", "", "missing cpu data")
	}
	return stat, nil
}

package procfs

import (
	"strconv"
	"strings"
	"unicode"
)

// CPULinePrefix starts every cpu accounting line in /proc/stat.
const CPULinePrefix = "cpu"

// Counter identifies one of the ten cpu accounting counters, in the order the
// kernel prints them.
type Counter int

const (
	User Counter = iota
	Nice
	System
	Idle
	IOWait
	IRQ
	SoftIRQ
	Steal
	Guest
	GuestNice

	// Total is not a kernel column; it selects the sum of the ten counters.
	Total
)

// Counters lists the ten kernel columns in line order.
var Counters = []Counter{User, Nice, System, Idle, IOWait, IRQ, SoftIRQ, Steal, Guest, GuestNice}

var counterNames = [...]string{"user", "nice", "system", "idle", "iowait", "irq", "softirq", "steal", "guest", "guest_nice", "total"}

func (c Counter) String() string {
	if c < 0 || int(c) >= len(counterNames) {
		return "counter(" + strconv.Itoa(int(c)) + ")"
	}
	return counterNames[c]
}

// CPUStats is one cpu accounting line: either the cumulative "cpu" line or a
// single "cpuN" core. All counters are clock ticks (USER_HZ) since boot.
type CPUStats struct {
	User      uint64
	Nice      uint64
	System    uint64
	Idle      uint64
	IOWait    uint64
	IRQ       uint64
	SoftIRQ   uint64
	Steal     uint64
	Guest     uint64
	GuestNice uint64

	coreID  int
	hasCore bool
}

// CoreID returns the core number, or false for the cumulative record.
func (s CPUStats) CoreID() (int, bool) { return s.coreID, s.hasCore }

// IsCumulative reports whether the record covers all cores.
func (s CPUStats) IsCumulative() bool { return !s.hasCore }

// TotalTime is the sum of the ten counters.
func (s CPUStats) TotalTime() uint64 {
	return s.User + s.Nice + s.System + s.Idle + s.IOWait + s.IRQ + s.SoftIRQ + s.Steal + s.Guest + s.GuestNice
}

// Value returns the counter selected by c; Total yields TotalTime.
func (s CPUStats) Value(c Counter) uint64 {
	if c == Total {
		return s.TotalTime()
	}
	if p := s.counter(c); p != nil {
		return *p
	}
	return 0
}

func (s *CPUStats) counter(c Counter) *uint64 {
	switch c {
	case User:
		return &s.User
	case Nice:
		return &s.Nice
	case System:
		return &s.System
	case Idle:
		return &s.Idle
	case IOWait:
		return &s.IOWait
	case IRQ:
		return &s.IRQ
	case SoftIRQ:
		return &s.SoftIRQ
	case Steal:
		return &s.Steal
	case Guest:
		return &s.Guest
	case GuestNice:
		return &s.GuestNice
	}
	return nil
}

// ParseCPULine parses one cpu accounting line. lineNumber is only used in
// errors. Counters beyond the tenth are ignored.
func ParseCPULine(lineNumber int, line string) (CPUStats, error) {
	var stats CPUStats

	s := strings.TrimSpace(line)
	if !strings.HasPrefix(s, CPULinePrefix) {
		return CPUStats{}, newParseError(lineNumber, ErrNotCPULine, "", line,
			"not a cpu statistics line: %s", line)
	}
	s = s[len(CPULinePrefix):]

	if s != "" && !unicode.IsSpace(rune(s[0])) {
		end := strings.IndexFunc(s, unicode.IsSpace)
		if end < 0 {
			end = len(s)
		}
		id := s[:end]
		// Core ids fit a signed 16 bit value; bit size 15 rejects anything larger.
		n, err := strconv.ParseUint(id, 10, 15)
		if err != nil {
			return CPUStats{}, newParseError(lineNumber, ErrInvalidCoreID, "cpu ID", id,
				"invalid cpu ID: %s", id)
		}
		stats.coreID = int(n)
		stats.hasCore = true
		s = s[end:]
	}

	tokens := strings.Fields(s)
	for i, c := range Counters {
		if i >= len(tokens) {
			return CPUStats{}, newParseError(lineNumber, ErrMissingField, c.String(), "",
				"missing %s time value", c)
		}
		v, err := strconv.ParseUint(tokens[i], 10, 64)
		if err != nil {
			return CPUStats{}, newParseError(lineNumber, ErrInvalidCounter, c.String(), tokens[i],
				"invalid %s time value: %s", c, tokens[i])
		}
		*stats.counter(c) = v
	}

	return stats, nil
}

package procfs

import (
	"strconv"
	"strings"
)

// ProcessStats is one reading of /proc/<pid>/stat. Times are clock ticks.
type ProcessStats struct {
	PID            int
	ExecutableName string
	UTime          uint64
	STime          uint64
	CUTime         uint64
	CSTime         uint64
	StartTime      uint64
	GuestTime      uint64
}

// TotalTime is the cpu time of the process and its waited-for children.
func (p ProcessStats) TotalTime() uint64 {
	return p.UTime + p.STime + p.CUTime + p.CSTime
}

// processField is one decoded column of /proc/<pid>/stat. Columns not listed
// in processFields are only checked for presence.
type processField struct {
	number int // 1-based, as in proc(5)
	name   string
	decode func(p *ProcessStats, token string) error
}

var processFields = []processField{
	{1, "pid", nil},
	{2, "comm", decodeComm},
	{14, "utime", decodeTicks(func(p *ProcessStats) *uint64 { return &p.UTime })},
	{15, "stime", decodeTicks(func(p *ProcessStats) *uint64 { return &p.STime })},
	{16, "cutime", decodeTicks(func(p *ProcessStats) *uint64 { return &p.CUTime })},
	{17, "cstime", decodeTicks(func(p *ProcessStats) *uint64 { return &p.CSTime })},
	{22, "starttime", decodeTicks(func(p *ProcessStats) *uint64 { return &p.StartTime })},
	{43, "guest_time", decodeTicks(func(p *ProcessStats) *uint64 { return &p.GuestTime })},
}

// requiredProcessFields is the highest column number the parser consumes.
// Records may carry more columns than this.
var requiredProcessFields = processFields[len(processFields)-1].number

func decodeTicks(dst func(*ProcessStats) *uint64) func(*ProcessStats, string) error {
	return func(p *ProcessStats, token string) error {
		v, err := strconv.ParseUint(token, 10, 64)
		if err != nil {
			return err
		}
		*dst(p) = v
		return nil
	}
}

// decodeComm strips the parentheses around the command name. Names that
// themselves contain spaces or parentheses are not delimited correctly.
func decodeComm(p *ProcessStats, token string) error {
	token = strings.TrimPrefix(token, "(")
	token = strings.TrimSuffix(token, ")")
	p.ExecutableName = token
	return nil
}

// ParseProcessStat parses the content of /proc/<pid>/stat. pid is the process
// the caller read; a record for any other pid is rejected with ErrPIDMismatch,
// which callers should treat as a programming error.
func ParseProcessStat(pid int, content []byte) (ProcessStats, error) {
	tokens := strings.Split(strings.TrimRight(string(content), "\n"), " ")

	var stats ProcessStats
	next := 0
	for number := 1; number <= requiredProcessFields; number++ {
		if number > len(tokens) {
			return ProcessStats{}, newParseError(0, ErrMissingField, strconv.Itoa(number), "",
				"field %d missing", number)
		}
		if next >= len(processFields) || processFields[next].number != number {
			continue
		}
		field := processFields[next]
		next++
		token := tokens[number-1]

		if number == 1 {
			got, err := strconv.Atoi(token)
			if err != nil {
				return ProcessStats{}, newParseError(0, ErrInvalidCounter, field.name, token,
					"invalid field 1 (pid) value: %s", token)
			}
			if got != pid {
				return ProcessStats{}, newParseError(0, ErrPIDMismatch, field.name, token,
					"pid passed as argument (%d) does not match pid extracted from content (%d)", pid, got)
			}
			stats.PID = got
			continue
		}

		if err := field.decode(&stats, token); err != nil {
			return ProcessStats{}, newParseError(0, ErrInvalidCounter, field.name, token,
				"invalid field %d (%s) value: %s", number, field.name, token)
		}
	}
	return stats, nil
}

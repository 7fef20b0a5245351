package model

import (
	"strconv"
	"strings"
)

// TimestampLayout formats the first CSV column.
const TimestampLayout = "01/02/06 15:04:05.000"

const csvSeparator = ", "

var csvColumns = []string{
	"time",
	"user (ct)",
	"system (ct)",
	"idle (ct)",
	"pid",
	"process-utime (ct)",
	"process-stime (ct)",
	"process-cutime (ct)",
	"process-cstime (ct)",
	"process-cpu-utilization (%)",
}

// CSVHeader returns the header line, without trailing newline.
func CSVHeader() string {
	return "# " + strings.Join(csvColumns, csvSeparator)
}

// CSV renders the reading as one line, without trailing newline. Missing
// process data and an indeterminate utilization render as empty columns. The
// only error is ErrCounterWentBackwards.
func (r Reading) CSV() (string, error) {
	cpu := r.System.Cumulative()
	cols := make([]string, 0, len(csvColumns))
	cols = append(cols,
		r.Timestamp.Format(TimestampLayout),
		strconv.FormatUint(cpu.User, 10),
		strconv.FormatUint(cpu.System, 10),
		strconv.FormatUint(cpu.Idle, 10),
	)

	if r.Process == nil {
		for len(cols) < len(csvColumns) {
			cols = append(cols, "")
		}
		return strings.Join(cols, csvSeparator), nil
	}

	p := r.Process
	cols = append(cols,
		strconv.Itoa(p.PID),
		strconv.FormatUint(p.UTime, 10),
		strconv.FormatUint(p.STime, 10),
		strconv.FormatUint(p.CUTime, 10),
		strconv.FormatUint(p.CSTime, 10),
	)

	util, ok, err := r.ProcessUtilization()
	if err != nil {
		return "", err
	}
	if ok {
		cols = append(cols, strconv.FormatFloat(100*util, 'f', 2, 64))
	} else {
		cols = append(cols, "")
	}
	return strings.Join(cols, csvSeparator), nil
}

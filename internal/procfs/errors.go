package procfs

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds carried by ParseError. Match them with errors.Is.
var (
	ErrNotCPULine     = errors.New("not a cpu statistics line")
	ErrInvalidCoreID  = errors.New("invalid cpu ID")
	ErrInvalidCounter = errors.New("invalid counter value")
	ErrMissingField   = errors.New("missing field")
	ErrMissingCPUData = errors.New("missing cpu data")
	ErrDuplicateCPU   = errors.New("duplicate cpu line")
	ErrPIDMismatch    = errors.New("pid mismatch")
	ErrNoSuchCore     = errors.New("no such cpu")
)

// ParseError describes a rejected kernel record. Line is 1-based and zero when
// the record is not line oriented; Field names the offending counter or
// positional field.
type ParseError struct {
	Line  int
	Field string
	Token string
	Kind  error
	msg   string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	b.WriteString(e.msg)
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Kind }

func newParseError(line int, kind error, field, token, format string, args ...any) *ParseError {
	return &ParseError{
		Line:  line,
		Field: field,
		Token: token,
		Kind:  kind,
		msg:   fmt.Sprintf(format, args...),
	}
}

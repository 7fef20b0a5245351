package procfs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// statRecord is a 52 field /proc/<pid>/stat line for pid 777.
const statRecord = "777 (docker-containe) S 901 972 972 0 -1 1077944576 2723 0 2 0 808 296 0 0 20 0 11 0" +
	" 1820 441688064 2267 18446744073709551615 4194304 11049596 140727040242048 140727040241432 4602915" +
	" 0 2079995941 0 2143420159 18446744073709551615 0 0 17 1 0 0 0 0 0 13147640 13322176 25554944" +
	" 140727040249523 140727040249749 140727040249749 140727040249821 0"

// withField replaces the 1-based field number of statRecord.
func withField(number int, value string) string {
	tokens := strings.Split(statRecord, " ")
	tokens[number-1] = value
	return strings.Join(tokens, " ")
}

func TestParseProcessStat_Reference(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "pid972-stat"))
	if err != nil {
		t.Fatalf("Failed to read reference file: %v", err)
	}

	ps, err := ParseProcessStat(972, data)
	if err != nil {
		t.Fatalf("ParseProcessStat() error = %v", err)
	}

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"PID", ps.PID, 972},
		{"ExecutableName", ps.ExecutableName, "docker-containe"},
		{"UTime", ps.UTime, uint64(808)},
		{"STime", ps.STime, uint64(296)},
		{"CUTime", ps.CUTime, uint64(16)},
		{"CSTime", ps.CSTime, uint64(17)},
		{"StartTime", ps.StartTime, uint64(1820)},
		{"GuestTime", ps.GuestTime, uint64(43)},
		{"TotalTime", ps.TotalTime(), uint64(808 + 296 + 16 + 17)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}
}

func TestParseProcessStat_PIDMismatch(t *testing.T) {
	_, err := ParseProcessStat(888, []byte(statRecord))
	if !errors.Is(err, ErrPIDMismatch) {
		t.Fatalf("Expected ErrPIDMismatch, got %v", err)
	}

	msg := err.Error()
	for _, want := range []string{"pid passed as argument", "888", "does not match pid extracted from content", "777"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, want it to contain %q", msg, want)
		}
	}
}

func TestParseProcessStat_MissingField(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"only pid and name", "777 (docker-containe)", "field 3 missing"},
		{"cut before utime", strings.Join(strings.Split(statRecord, " ")[:13], " "), "field 14 missing"},
		{"cut before guest_time", strings.Join(strings.Split(statRecord, " ")[:42], " "), "field 43 missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProcessStat(777, []byte(tt.content))
			if !errors.Is(err, ErrMissingField) {
				t.Fatalf("Expected ErrMissingField, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Error() = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestParseProcessStat_TrailingFieldsTolerated(t *testing.T) {
	content := statRecord + " 99 100\n"
	ps, err := ParseProcessStat(777, []byte(content))
	if err != nil {
		t.Fatalf("ParseProcessStat() error = %v", err)
	}
	if ps.UTime != 808 {
		t.Errorf("UTime = %d, want 808", ps.UTime)
	}
}

func TestParseProcessStat_ShortRecordWithGuestTime(t *testing.T) {
	content := strings.Join(strings.Split(statRecord, " ")[:43], " ")
	if _, err := ParseProcessStat(777, []byte(content)); err != nil {
		t.Fatalf("ParseProcessStat() error = %v", err)
	}
}

func TestParseProcessStat_InvalidField(t *testing.T) {
	tests := []struct {
		number int
		want   string
	}{
		{1, "invalid field 1 (pid) value: blah"},
		{14, "invalid field 14 (utime) value: blah"},
		{15, "invalid field 15 (stime) value: blah"},
		{16, "invalid field 16 (cutime) value: blah"},
		{17, "invalid field 17 (cstime) value: blah"},
		{22, "invalid field 22 (starttime) value: blah"},
		{43, "invalid field 43 (guest_time) value: blah"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			_, err := ParseProcessStat(777, []byte(withField(tt.number, "blah")))
			if !errors.Is(err, ErrInvalidCounter) {
				t.Fatalf("Expected ErrInvalidCounter, got %v", err)
			}
			if err.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", err, tt.want)
			}
		})
	}
}

func TestParseProcessStat_UndecodedFieldsNotValidated(t *testing.T) {
	ps, err := ParseProcessStat(777, []byte(withField(3, "not-a-state")))
	if err != nil {
		t.Fatalf("ParseProcessStat() error = %v", err)
	}
	if ps.PID != 777 {
		t.Errorf("PID = %d, want 777", ps.PID)
	}
}

func TestParseProcessStat_ExecutableName(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"(bash)", "bash"},
		{"bash", "bash"},
		{"(bash", "bash"},
		{"bash)", "bash"},
		// Embedded parentheses are kept as-is.
		{"((sd-pam))", "(sd-pam)"},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			ps, err := ParseProcessStat(777, []byte(withField(2, tt.token)))
			if err != nil {
				t.Fatalf("ParseProcessStat() error = %v", err)
			}
			if ps.ExecutableName != tt.want {
				t.Errorf("ExecutableName = %q, want %q", ps.ExecutableName, tt.want)
			}
		})
	}
}

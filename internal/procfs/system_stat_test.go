package procfs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseSystemStat_Reference(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "stat"))
	if err != nil {
		t.Fatalf("Failed to read reference file: %v", err)
	}

	ps, err := ParseSystemStat(string(data))
	if err != nil {
		t.Fatalf("ParseSystemStat() error = %v", err)
	}

	cum := ps.Cumulative()
	if !cum.IsCumulative() {
		t.Error("Expected cumulative record")
	}
	want := CPUStats{
		User: 51867872, Nice: 12504, System: 17293071, Idle: 1007053375, IOWait: 43884956,
		SoftIRQ: 734997, Steal: 28476,
	}
	if cum != want {
		t.Errorf("Cumulative() = %+v, want %+v", cum, want)
	}

	if ps.CPUCount() != 2 {
		t.Fatalf("CPUCount() = %d, want 2", ps.CPUCount())
	}

	c0, err := ps.Core(0)
	if err != nil {
		t.Fatalf("Core(0) error = %v", err)
	}
	if id, ok := c0.CoreID(); !ok || id != 0 {
		t.Errorf("Core(0).CoreID() = %d, %v", id, ok)
	}
	if c0.User != 26424972 || c0.IOWait != 17916771 || c0.Steal != 12217 {
		t.Errorf("Core(0) = %+v", c0)
	}

	c1, err := ps.Core(1)
	if err != nil {
		t.Fatalf("Core(1) error = %v", err)
	}
	if c1.User != 25442899 || c1.Idle != 499197664 {
		t.Errorf("Core(1) = %+v", c1)
	}

	if _, err := ps.Core(2); !errors.Is(err, ErrNoSuchCore) {
		t.Errorf("Core(2) error = %v, want ErrNoSuchCore", err)
	}
	if _, err := ps.Core(-1); !errors.Is(err, ErrNoSuchCore) {
		t.Errorf("Core(-1) error = %v, want ErrNoSuchCore", err)
	}

	cores := ps.Cores()
	if len(cores) != 2 || cores[1] != c1 {
		t.Errorf("Cores() = %+v", cores)
	}
}

func TestParseSystemStat_MissingCPUData(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"no cpu lines", "intr 1 2 3\nctxt 4\n"},
		{"only cores", "cpu0 1 2 3 4 5 6 7 8 9 10\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSystemStat(tt.content)
			if !errors.Is(err, ErrMissingCPUData) {
				t.Fatalf("Expected ErrMissingCPUData, got %v", err)
			}
			if !strings.Contains(err.Error(), "missing cpu data") {
				t.Errorf("unexpected message: %s", err)
			}
		})
	}
}

func TestParseSystemStat_ErrorCarriesLineNumber(t *testing.T) {
	content := "cpu 1 2 3 4 5 6 7 8 9 10\nintr 5\ncpu0 1 2 x 4 5 6 7 8 9 10\n"
	_, err := ParseSystemStat(content)

	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected *ParseError, got %v", err)
	}
	if perr.Line != 3 || perr.Field != "system" {
		t.Errorf("Line, Field = %d, %q, want 3, system", perr.Line, perr.Field)
	}
}

func TestParseSystemStat_Duplicates(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"cumulative twice", "cpu 1 2 3 4 5 6 7 8 9 10\ncpu 1 2 3 4 5 6 7 8 9 10\n"},
		{"core twice", "cpu 1 2 3 4 5 6 7 8 9 10\ncpu0 1 2 3 4 5 6 7 8 9 10\ncpu0 1 2 3 4 5 6 7 8 9 10\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSystemStat(tt.content); !errors.Is(err, ErrDuplicateCPU) {
				t.Errorf("Expected ErrDuplicateCPU, got %v", err)
			}
		})
	}
}

func TestParseSystemStat_CoreGap(t *testing.T) {
	content := "cpu 1 2 3 4 5 6 7 8 9 10\ncpu0 1 2 3 4 5 6 7 8 9 10\ncpu2 1 2 3 4 5 6 7 8 9 10\n"
	ps, err := ParseSystemStat(content)
	if err != nil {
		t.Fatalf("ParseSystemStat() error = %v", err)
	}

	if ps.CPUCount() != 2 {
		t.Errorf("CPUCount() = %d, want 2", ps.CPUCount())
	}
	if _, err := ps.Core(1); !errors.Is(err, ErrNoSuchCore) {
		t.Errorf("Core(1) error = %v, want ErrNoSuchCore", err)
	}
	if _, err := ps.Core(2); err != nil {
		t.Errorf("Core(2) error = %v", err)
	}
}

func TestFS_Read(t *testing.T) {
	root := t.TempDir()
	stat, _ := os.ReadFile(filepath.Join("testdata", "stat"))
	pidStat, _ := os.ReadFile(filepath.Join("testdata", "pid972-stat"))

	if err := os.WriteFile(filepath.Join(root, "stat"), stat, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "972"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "972", "stat"), pidStat, 0o644); err != nil {
		t.Fatal(err)
	}

	fs := NewFS(root)
	ss, err := fs.ReadSystemStat()
	if err != nil {
		t.Fatalf("ReadSystemStat() error = %v", err)
	}
	if ss.CPUCount() != 2 {
		t.Errorf("CPUCount() = %d, want 2", ss.CPUCount())
	}

	ps, err := fs.ReadProcessStat(972)
	if err != nil {
		t.Fatalf("ReadProcessStat() error = %v", err)
	}
	if ps.ExecutableName != "docker-containe" {
		t.Errorf("ExecutableName = %q", ps.ExecutableName)
	}

	if _, err := fs.ReadProcessStat(12345); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadProcessStat(12345) error = %v, want os.ErrNotExist", err)
	}
}

func TestNewFS_DefaultRoot(t *testing.T) {
	if NewFS("").Root != DefaultRoot {
		t.Errorf("NewFS(\"\").Root = %q, want %q", NewFS("").Root, DefaultRoot)
	}
}

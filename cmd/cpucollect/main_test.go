package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Dicklesworthstone/cpucollect/internal/config"
	"github.com/Dicklesworthstone/cpucollect/internal/procfs"
)

func TestPrintStat(t *testing.T) {
	sys, err := procfs.ParseSystemStat("cpu  25 0 25 50 0 0 0 0 0 0\ncpu0 10 0 10 80 0 0 0 0 0 0\ncpu2 0 0 0 0 0 0 0 0 0 0\n")
	if err != nil {
		t.Fatalf("ParseSystemStat() error = %v", err)
	}

	var buf bytes.Buffer
	boot := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	if err := printStat(&buf, sys, boot); err != nil {
		t.Fatalf("printStat() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("Expected 5 lines, got %d:\n%s", len(lines), buf.String())
	}

	tests := []struct {
		line int
		want []string
	}{
		{0, []string{"booted 2024-03-01T08:00:00Z"}},
		{1, []string{"user", "guest_nice"}},
		{2, []string{"all", "25.00%", "50.00%"}},
		{3, []string{"cpu0", "10.00%", "80.00%"}},
		{4, []string{"cpu2", "-"}},
	}
	for _, tt := range tests {
		for _, w := range tt.want {
			if !strings.Contains(lines[tt.line], w) {
				t.Errorf("line %d = %q, want it to contain %q", tt.line, lines[tt.line], w)
			}
		}
	}
}

func TestPrintStat_NoBootTime(t *testing.T) {
	sys, err := procfs.ParseSystemStat("cpu  1 0 1 2 0 0 0 0 0 0\n")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := printStat(&buf, sys, time.Time{}); err != nil {
		t.Fatalf("printStat() error = %v", err)
	}
	if strings.Contains(buf.String(), "booted") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestIgnoreShutdown(t *testing.T) {
	if err := ignoreShutdown(fmt.Errorf("run: %w", context.Canceled)); err != nil {
		t.Errorf("ignoreShutdown(canceled) = %v", err)
	}
	boom := errors.New("boom")
	if err := ignoreShutdown(boom); err != boom {
		t.Errorf("ignoreShutdown(boom) = %v", err)
	}
}

func TestLogOutput(t *testing.T) {
	stderr := &bytes.Buffer{}
	logPath := filepath.Join(t.TempDir(), "cpucollect.log")

	tests := []struct {
		name string
		cfg  config.Config
		want io.Writer
	}{
		{"default", config.Config{}, stderr},
		{"watch", config.Config{Watch: true}, io.Discard},
		{"watch ignored by stat", config.Config{Watch: true, Command: config.CommandStat}, stderr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, closeLog, err := logOutput(tt.cfg, stderr)
			if err != nil {
				t.Fatalf("logOutput() error = %v", err)
			}
			defer closeLog()
			if out != tt.want {
				t.Errorf("logOutput() = %T, want %T", out, tt.want)
			}
		})
	}

	out, closeLog, err := logOutput(config.Config{Watch: true, LogFile: logPath}, stderr)
	if err != nil {
		t.Fatalf("logOutput() error = %v", err)
	}
	if _, err := io.WriteString(out, "tracking process\n"); err != nil {
		t.Fatal(err)
	}
	closeLog()

	data, err := os.ReadFile(logPath)
	if err != nil || string(data) != "tracking process\n" {
		t.Errorf("log file = %q, %v", data, err)
	}
	if stderr.Len() != 0 {
		t.Errorf("stderr = %q, want nothing", stderr.String())
	}

	if _, _, err := logOutput(config.Config{LogFile: filepath.Join(logPath, "nested")}, stderr); err == nil {
		t.Error("Expected error for unopenable log file")
	}
}

package writer

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Dicklesworthstone/cpucollect/internal/model"
)

// Writer appends CSV records to a file or stdout. The header is written
// before the first record.
type Writer struct {
	out         io.Writer
	file        *os.File
	name        string
	log         *slog.Logger
	wroteHeader bool
}

// New writes to out; it does not own it.
func New(out io.Writer, name string, log *slog.Logger) *Writer {
	return &Writer{out: out, name: name, log: log}
}

// Open truncates or creates path. An empty path selects stdout.
func Open(path string, log *slog.Logger) (*Writer, error) {
	if path == "" {
		return New(os.Stdout, "stdout", log), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s for writing: %w", path, err)
	}
	w := New(f, path, log)
	w.file = f
	return w, nil
}

// Write renders r and writes it as one line.
func (w *Writer) Write(r model.Reading) error {
	line, err := r.CSV()
	if err != nil {
		return err
	}
	if !w.wroteHeader {
		if _, err := fmt.Fprintln(w.out, model.CSVHeader()); err != nil {
			return fmt.Errorf("failed to write data into %s: %w", w.name, err)
		}
		w.wroteHeader = true
	}
	if _, err := fmt.Fprintln(w.out, line); err != nil {
		return fmt.Errorf("failed to write data into %s: %w", w.name, err)
	}
	return nil
}

// Close syncs and closes the output file, if Open created one.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	if err := w.file.Sync(); err != nil {
		w.log.Warn("failed to sync output", "file", w.name, "error", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close output stream for %s: %w", w.name, err)
	}
	return nil
}

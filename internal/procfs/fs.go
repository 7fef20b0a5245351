package procfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// DefaultRoot is where the kernel mounts procfs.
const DefaultRoot = "/proc"

// FS reads kernel records below a procfs mount point. Tests point it at a
// temporary directory.
type FS struct {
	Root string
}

// NewFS returns an FS rooted at root, or DefaultRoot when root is empty.
func NewFS(root string) FS {
	if root == "" {
		root = DefaultRoot
	}
	return FS{Root: root}
}

// ReadSystemStat reads and parses <root>/stat.
func (fs FS) ReadSystemStat() (SystemStat, error) {
	path := filepath.Join(fs.Root, "stat")
	data, err := os.ReadFile(path)
	if err != nil {
		return SystemStat{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	stat, err := ParseSystemStat(string(data))
	if err != nil {
		return SystemStat{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return stat, nil
}

// ReadProcessStat reads and parses <root>/<pid>/stat. A missing file surfaces
// as an error matching os.ErrNotExist.
func (fs FS) ReadProcessStat(pid int) (ProcessStats, error) {
	path := filepath.Join(fs.Root, strconv.Itoa(pid), "stat")
	data, err := os.ReadFile(path)
	if err != nil {
		return ProcessStats{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	stats, err := ParseProcessStat(pid, data)
	if err != nil {
		return ProcessStats{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return stats, nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"golang.org/x/sync/errgroup"

	"github.com/Dicklesworthstone/cpucollect/internal/config"
	"github.com/Dicklesworthstone/cpucollect/internal/logging"
	"github.com/Dicklesworthstone/cpucollect/internal/model"
	"github.com/Dicklesworthstone/cpucollect/internal/procfs"
	"github.com/Dicklesworthstone/cpucollect/internal/sampler"
	"github.com/Dicklesworthstone/cpucollect/internal/ui"
	"github.com/Dicklesworthstone/cpucollect/internal/writer"
)

func main() {
	cfg, err := config.FromFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logOut, closeLog, err := logOutput(cfg, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, logOut)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case cfg.Command == config.CommandFind:
		err = runFind(ctx, cfg, log)
	case cfg.Command == config.CommandStat:
		err = runStat(ctx, cfg, log, os.Stdout)
	default:
		err = runCollect(ctx, cfg, log)
	}
	if err != nil {
		log.Error("cpucollect failed", "error", err)
		if watching(cfg) && cfg.LogFile == "" {
			fmt.Fprintln(os.Stderr, err)
		}
		closeLog()
		os.Exit(1)
	}
	closeLog()
}

func watching(cfg config.Config) bool { return cfg.Watch && cfg.Command == "" }

// logOutput picks where logs go: the configured log file, nowhere while the
// live view owns the terminal, stderr otherwise.
func logOutput(cfg config.Config, stderr io.Writer) (io.Writer, func(), error) {
	if cfg.LogFile != "" {
		f, err := os.OpenFile(filepath.Clean(cfg.LogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", cfg.LogFile, err)
		}
		return f, func() { f.Close() }, nil
	}
	if watching(cfg) {
		return io.Discard, func() {}, nil
	}
	return stderr, func() {}, nil
}

func runFind(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	finder := sampler.NewFinder(regexp.MustCompile(cfg.ProcessRegex), cfg.FinderInterval, &sampler.PIDTracker{}, log)
	pids, err := finder.Find(ctx)
	if err != nil {
		return err
	}
	switch len(pids) {
	case 0:
		return fmt.Errorf("no process matches %q", cfg.ProcessRegex)
	case 1:
		fmt.Println(pids[0])
		return nil
	}
	return fmt.Errorf("more than one process matches %q: %v", cfg.ProcessRegex, pids)
}

func runStat(ctx context.Context, cfg config.Config, log *slog.Logger, out io.Writer) error {
	sys, err := procfs.NewFS(cfg.ProcRoot).ReadSystemStat()
	if err != nil {
		return err
	}

	if logical, err := cpu.CountsWithContext(ctx, true); err != nil {
		log.Debug("logical cpu count unavailable", "error", err)
	} else if cfg.ProcRoot == procfs.DefaultRoot && logical != sys.CPUCount() {
		log.Warn("per-core lines disagree with logical cpu count", "stat", sys.CPUCount(), "logical", logical)
	}

	return printStat(out, sys, bootTime(ctx, log))
}

// printStat writes one since-boot snapshot: the cumulative record then one
// row per core. A zero boot time is omitted.
func printStat(out io.Writer, sys procfs.SystemStat, boot time.Time) error {
	var b strings.Builder
	if !boot.IsZero() {
		fmt.Fprintf(&b, "booted %s\n", boot.Format(time.RFC3339))
	}

	fmt.Fprintf(&b, "%-6s", "cpu")
	for _, c := range procfs.Counters {
		fmt.Fprintf(&b, " %10s", c)
	}
	b.WriteByte('\n')

	r := model.NewReading(time.Now(), sys, nil, nil)
	fmt.Fprintf(&b, "%-6s", "all")
	for _, c := range procfs.Counters {
		p, err := r.Percentage(c)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, " %9.2f%%", 100*p)
	}
	b.WriteByte('\n')

	for _, core := range sys.Cores() {
		id, _ := core.CoreID()
		total := core.TotalTime()
		fmt.Fprintf(&b, "%-6s", "cpu"+strconv.Itoa(id))
		for _, c := range procfs.Counters {
			if total == 0 {
				fmt.Fprintf(&b, " %10s", "-")
				continue
			}
			fmt.Fprintf(&b, " %9.2f%%", 100*float64(core.Value(c))/float64(total))
		}
		b.WriteByte('\n')
	}

	_, err := io.WriteString(out, b.String())
	return err
}

func bootTime(ctx context.Context, log *slog.Logger) time.Time {
	secs, err := host.BootTimeWithContext(ctx)
	if err != nil {
		log.Debug("boot time unavailable", "error", err)
		return time.Time{}
	}
	return time.Unix(int64(secs), 0)
}

// runCollect samples until ctx is done, alongside the process finder when a
// regex is configured. Output is CSV, or the live view with --watch.
func runCollect(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tracker := &sampler.PIDTracker{}
	s := sampler.New(cfg.Interval, procfs.NewFS(cfg.ProcRoot), tracker, log)

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.ProcessRegex != "" {
		finder := sampler.NewFinder(regexp.MustCompile(cfg.ProcessRegex), cfg.FinderInterval, tracker, log)
		g.Go(func() error {
			return finder.Run(gCtx)
		})
	}

	if cfg.Watch {
		g.Go(func() error {
			defer cancel()
			return ui.RunTUI(gCtx, s, bootTime(gCtx, log))
		})
		return ignoreShutdown(g.Wait())
	}

	w, err := writer.Open(cfg.OutputFile, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := w.Close(); err != nil {
			log.Warn("failed to close output", "error", err)
		}
	}()

	g.Go(func() error {
		return s.Run(gCtx, w)
	})
	return ignoreShutdown(g.Wait())
}

func ignoreShutdown(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

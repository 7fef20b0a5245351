package sampler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Dicklesworthstone/cpucollect/internal/model"
	"github.com/Dicklesworthstone/cpucollect/internal/procfs"
)

// ErrProcessGone marks an epoch whose tracked process could not be read. The
// epoch is kept without process data.
var ErrProcessGone = errors.New("tracked process not readable")

// RecordWriter persists one reading.
type RecordWriter interface {
	Write(r model.Reading) error
}

// Sampler reads /proc/stat and the tracked process once per epoch and turns
// successive readings into deltas.
type Sampler struct {
	Interval time.Duration

	fs      procfs.FS
	tracker *PIDTracker
	log     *slog.Logger
	now     func() time.Time

	prev *model.Baseline

	mu        sync.Mutex
	streamErr error
}

// New returns a sampler. tracker may be nil when no process is tracked.
func New(interval time.Duration, fs procfs.FS, tracker *PIDTracker, log *slog.Logger) *Sampler {
	if tracker == nil {
		tracker = &PIDTracker{}
	}
	return &Sampler{
		Interval: interval,
		fs:       fs,
		tracker:  tracker,
		log:      log,
		now:      time.Now,
	}
}

// Sample takes one reading, linked to the previous one if there was one. A
// vanished process is logged and leaves the reading without process data;
// errors are fatal.
func (s *Sampler) Sample() (model.Reading, error) {
	t0 := s.now()

	sys, err := s.fs.ReadSystemStat()
	if err != nil {
		return model.Reading{}, err
	}

	var proc *procfs.ProcessStats
	if pid, ok := s.tracker.Get(); ok {
		ps, err := s.readProcess(pid)
		switch {
		case errors.Is(err, ErrProcessGone):
			s.log.Warn("skipping process data for this epoch", "pid", pid, "error", err)
		case err != nil:
			return model.Reading{}, err
		default:
			proc = &ps
		}
	}

	t1 := s.now()
	r := model.NewReading(t0.Add(t1.Sub(t0)/2), sys, proc, s.prev)
	b := r.Baseline()
	s.prev = &b
	return r, nil
}

func (s *Sampler) readProcess(pid int) (procfs.ProcessStats, error) {
	ps, err := s.fs.ReadProcessStat(pid)
	if err == nil {
		return ps, nil
	}
	if errors.Is(err, procfs.ErrPIDMismatch) {
		return procfs.ProcessStats{}, err
	}
	// The process may exit between discovery and the read, or mid-read.
	return procfs.ProcessStats{}, fmt.Errorf("%w: %v", ErrProcessGone, err)
}

// Run samples every Interval and hands each reading to w until ctx is done.
// The sleep after each epoch is shortened by the time the epoch took.
func (s *Sampler) Run(ctx context.Context, w RecordWriter) error {
	s.log.Info("collection started", "interval", s.Interval.String())

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		if ctx.Err() != nil {
			s.log.Info("collection stopped")
			return nil
		}

		start := s.now()
		if err := s.epoch(w); err != nil {
			return err
		}

		sleep := s.Interval - s.now().Sub(start)
		if sleep < 0 {
			s.log.Warn("cannot complete collections in interval, consider increasing the interval",
				"interval", s.Interval.String(), "took", s.now().Sub(start).String())
			sleep = 0
		}

		timer.Reset(sleep)
		select {
		case <-ctx.Done():
			s.log.Info("collection stopped")
			return nil
		case <-timer.C:
		}
	}
}

func (s *Sampler) epoch(w RecordWriter) error {
	r, err := s.Sample()
	if err != nil {
		return err
	}
	err = w.Write(r)
	r.Unlink()
	return err
}

// Stream returns a channel that will receive readings until ctx is done or a
// fatal error occurs. After the channel closes, Err reports that error.
func (s *Sampler) Stream(ctx context.Context) <-chan model.Reading {
	ch := make(chan model.Reading)
	go func() {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()
		defer close(ch)
		for {
			r, err := s.Sample()
			if err != nil {
				s.log.Error("sampling failed", "error", err)
				s.mu.Lock()
				s.streamErr = err
				s.mu.Unlock()
				return
			}
			select {
			case ch <- r:
			case <-ctx.Done():
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// Err returns the error that stopped Stream, if any.
func (s *Sampler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamErr
}

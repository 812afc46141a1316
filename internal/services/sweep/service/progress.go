package service

import (
	"fmt"
	"io"
	"sync"
	"time"

	"asdelete/internal/platform/logger"
	"asdelete/internal/services/sweep/domain"

	"github.com/google/uuid"
)

// rateWindow tracks deletions since the last progress report
// callers hold the run mutex
type rateWindow struct {
	deleted int64
	at      time.Time
}

func (w *rateWindow) reset(deleted int64, now time.Time) {
	w.deleted = deleted
	w.at = now
}

// report builds a progress line from c and restarts the window at now
func (w *rateWindow) report(runID uuid.UUID, c domain.Counters, now time.Time) domain.Progress {
	p := domain.Progress{
		RunID:    runID,
		Deleted:  c.Deleted,
		Observed: c.Observed,
		Rewrites: c.Rewrites,
		Percent:  percent(c.Deleted, c.Observed),
		Rate:     ratePerSecond(c.Deleted-w.deleted, now.Sub(w.at).Milliseconds()),
	}
	w.reset(c.Deleted, now)
	return p
}

func percent(deleted, observed int64) int64 {
	if observed <= 0 {
		return 0
	}
	return deleted * 100 / observed
}

// ratePerSecond is n*1000/ms with zero for an empty window
func ratePerSecond(n, ms int64) int64 {
	if ms <= 0 {
		return 0
	}
	return n * 1000 / ms
}

// ConsoleSink prints progress in the classic one line format
type ConsoleSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleSink writes progress lines to w
func NewConsoleSink(w io.Writer) *ConsoleSink { return &ConsoleSink{w: w} }

// Progress implements domain.ProgressSink
func (s *ConsoleSink) Progress(p domain.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintf(s.w, "Count: %d/%d (%d%%) (%d deletes was rewrites). Current rate: %d/s.\n",
		p.Deleted, p.Observed, p.Percent, p.Rewrites, p.Rate)
}

// LogSink reports progress through the structured logger
type LogSink struct{ Log *logger.Logger }

// Progress implements domain.ProgressSink
func (s LogSink) Progress(p domain.Progress) {
	l := s.Log
	if l == nil {
		l = logger.Get()
	}
	l.Info().
		Str("run_id", p.RunID.String()).
		Int64("deleted", p.Deleted).
		Int64("observed", p.Observed).
		Int64("percent", p.Percent).
		Int64("rewrites", p.Rewrites).
		Int64("rate_per_sec", p.Rate).
		Msg("sweep progress")
}

// MultiSink fans progress out to every non nil sink
type MultiSink []domain.ProgressSink

// Progress implements domain.ProgressSink
func (m MultiSink) Progress(p domain.Progress) {
	for _, s := range m {
		if s != nil {
			s.Progress(p)
		}
	}
}

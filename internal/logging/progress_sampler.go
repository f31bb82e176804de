package logging

import (
	"log/slog"
	"strings"
)

// ProgressSampler suppresses repetitive progress logs while preserving signal
// when phases or percentage buckets change.
type ProgressSampler struct {
	bucketSize float64
	lastPhase  string
	lastBucket int
}

// NewProgressSampler constructs a sampler that emits when the percent crosses
// bucket boundaries (default 10%) or when the phase changes.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether a progress event should be logged. Percent can be
// negative to indicate "unknown".
func (s *ProgressSampler) ShouldLog(percent float64, phase string) bool {
	if s == nil {
		return true
	}
	phase = strings.TrimSpace(phase)
	emit := false
	if phase != "" && phase != s.lastPhase {
		s.lastPhase = phase
		s.lastBucket = -1
		emit = true
	}
	if percent >= 0 {
		if percent > 100 {
			percent = 100
		}
		bucket := int(percent / s.bucketSize)
		if bucket > s.lastBucket {
			s.lastBucket = bucket
			emit = true
		}
	}
	return emit
}

// Progress logs done/total counters for one phase through a sampler. It is not
// safe for concurrent use; callers report from the goroutine that owns the
// counter.
type Progress struct {
	logger  *slog.Logger
	phase   string
	total   int
	sampler *ProgressSampler
}

// NewProgress returns a reporter for a phase with total units of work.
func NewProgress(logger *slog.Logger, phase string, total int) *Progress {
	if logger == nil {
		logger = NewNop()
	}
	return &Progress{logger: logger, phase: phase, total: total, sampler: NewProgressSampler(0)}
}

// Observe records that done units have completed.
func (p *Progress) Observe(done int) {
	if p == nil || p.total <= 0 {
		return
	}
	percent := float64(done) * 100 / float64(p.total)
	if !p.sampler.ShouldLog(percent, p.phase) {
		return
	}
	p.logger.Info(p.phase+" progress",
		String(FieldPhase, p.phase),
		Int("done", done),
		Int("total", p.total),
		Int("percent", int(percent)),
		String(FieldEventType, "progress"),
	)
}

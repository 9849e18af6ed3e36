package reindex

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker writes a single-line progress report to a writer every
// interval chunks. Safe for concurrent use.
type ProgressTracker struct {
	out       io.Writer
	total     int
	interval  int
	done      int
	reported  int
	startedAt time.Time
	started   bool
	mu        sync.Mutex
}

// NewProgressTracker returns a tracker for total chunks that reports every
// interval chunks. Nothing is written until Start is called.
func NewProgressTracker(out io.Writer, total, interval int) *ProgressTracker {
	return &ProgressTracker{
		out:      out,
		total:    total,
		interval: interval,
	}
}

// Start resets the counters and begins timing.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startedAt = time.Now()
	p.started = true
	p.done = 0
	p.reported = 0
}

// Update sets the number of chunks processed so far, capped at the total, and
// reports when at least one full interval has passed since the last report.
func (p *ProgressTracker) Update(done int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	if done > p.total {
		done = p.total
	}
	p.done = done

	if p.done-p.reported >= p.interval {
		p.report()
		p.reported = p.done
	}
}

// Finish sets progress to the total, forces a final report and ends the
// progress line.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.done = p.total
	p.report()
	fmt.Fprintln(p.out)
}

// Elapsed returns the time since Start, or zero before Start.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return time.Since(p.startedAt)
}

// report writes the progress line. Callers hold the lock.
func (p *ProgressTracker) report() {
	rate := 0.0
	if s := time.Since(p.startedAt).Seconds(); s > 0 {
		rate = float64(p.done) / s
	}
	pct := 0.0
	if p.total > 0 {
		pct = float64(p.done) / float64(p.total) * 100
	}
	fmt.Fprintf(p.out, "\rProgress: %d/%d (%.1f%%) - %.1f chunks/s",
		p.done, p.total, pct, rate)
}

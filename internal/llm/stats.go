package llm

import (
	"context"
	"slices"
	"sync"
	"time"
)

type sample struct {
	at         time.Time
	durationMs int64
	failed     bool
}

// StatsSnapshot aggregates the generator calls inside the rolling window.
type StatsSnapshot struct {
	Count  int     `json:"count"`
	Errors int     `json:"errors"`
	MinMs  int64   `json:"min_ms"`
	MaxMs  int64   `json:"max_ms"`
	AvgMs  float64 `json:"avg_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
}

// LLMStats tracks recent generator call latencies within a rolling window.
type LLMStats struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
}

func NewLLMStats(maxAge time.Duration) *LLMStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &LLMStats{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
	}
}

// Record adds a successful call.
func (s *LLMStats) Record(durationMs int64) {
	s.add(durationMs, false)
}

// RecordError adds a failed call. Failed calls count toward Errors only.
func (s *LLMStats) RecordError(durationMs int64) {
	s.add(durationMs, true)
}

func (s *LLMStats) add(durationMs int64, failed bool) {
	if durationMs < 0 {
		durationMs = 0
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	s.samples = append(s.samples, sample{at: now, durationMs: durationMs, failed: failed})
}

func (s *LLMStats) Snapshot() StatsSnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)

	var snap StatsSnapshot
	values := make([]int64, 0, len(s.samples))
	var sum int64
	for _, sm := range s.samples {
		if sm.failed {
			snap.Errors++
			continue
		}
		values = append(values, sm.durationMs)
		sum += sm.durationMs
	}
	if len(values) == 0 {
		return snap
	}
	slices.Sort(values)

	snap.Count = len(values)
	snap.MinMs = values[0]
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = float64(sum) / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	snap.P99Ms = percentile(values, 99)
	return snap
}

func (s *LLMStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	s.samples = slices.DeleteFunc(s.samples, func(sm sample) bool {
		return sm.at.Before(cutoff)
	})
}

// percentile interpolates linearly between the closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}

	rank := float64(len(sorted)-1) * pct / 100
	lower := int(rank)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*(rank-float64(lower))
}

// Measured records the latency of every call to the wrapped generator.
type Measured struct {
	next  Generator
	stats *LLMStats
}

func NewMeasured(next Generator, stats *LLMStats) *Measured {
	return &Measured{next: next, stats: stats}
}

func (m *Measured) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	out, err := m.next.Generate(ctx, prompt)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		m.stats.RecordError(elapsed)
		return "", err
	}
	m.stats.Record(elapsed)
	return out, nil
}

func (m *Measured) Model() string {
	return m.next.Model()
}

package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLLMStatsSnapshotPercentiles(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	for _, ms := range []int64{300, 100, 500, 200, 400} {
		stats.Record(ms)
	}

	snap := stats.Snapshot()
	if snap.Count != 5 {
		t.Fatalf("expected count=5, got %d", snap.Count)
	}
	if snap.MinMs != 100 || snap.MaxMs != 500 {
		t.Fatalf("expected min=100 max=500, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
	if snap.AvgMs != 300 {
		t.Fatalf("expected avg=300, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 300 {
		t.Fatalf("expected p50=300, got %f", snap.P50Ms)
	}
	if snap.P95Ms != 480 {
		t.Fatalf("expected p95=480, got %f", snap.P95Ms)
	}
	if snap.P99Ms != 496 {
		t.Fatalf("expected p99=496, got %f", snap.P99Ms)
	}
}

func TestLLMStatsPrunesExpiredSamples(t *testing.T) {
	stats := NewLLMStats(10 * time.Millisecond)
	stats.Record(100)
	stats.RecordError(5)
	time.Sleep(25 * time.Millisecond)

	if snap := stats.Snapshot(); snap.Count != 0 || snap.Errors != 0 {
		t.Fatalf("expected empty window after prune, got %+v", snap)
	}

	stats.Record(200)
	snap := stats.Snapshot()
	if snap.Count != 1 || snap.MinMs != 200 || snap.MaxMs != 200 {
		t.Fatalf("expected one fresh sample of 200ms, got %+v", snap)
	}
}

func TestLLMStatsRecordClampsNegativeDuration(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	stats.Record(-10)
	snap := stats.Snapshot()
	if snap.Count != 1 || snap.MinMs != 0 {
		t.Fatalf("expected one clamped sample, got %+v", snap)
	}
}

func TestLLMStatsErrorsExcludedFromLatency(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	stats.Record(50)
	stats.RecordError(9000)
	snap := stats.Snapshot()
	if snap.Count != 1 || snap.Errors != 1 || snap.MaxMs != 50 {
		t.Fatalf("expected failed call counted separately, got %+v", snap)
	}
}

func TestMeasured(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	gen := &scriptedGen{errs: []error{nil, errors.New("boom")}}
	m := NewMeasured(gen, stats)

	if _, err := m.Generate(context.Background(), "p"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.Generate(context.Background(), "p"); err == nil {
		t.Fatal("expected error")
	}
	snap := stats.Snapshot()
	if snap.Count != 1 || snap.Errors != 1 {
		t.Errorf("expected 1 success and 1 error, got %+v", snap)
	}
}

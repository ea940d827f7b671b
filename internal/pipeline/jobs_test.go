package pipeline

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/capdigest/internal/prompt"
	"github.com/dgallion1/capdigest/internal/summarize"
)

func TestContentHashHex(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hello world", "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"},
		{"", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
	}
	for _, tt := range tests {
		if got := ContentHashHex([]byte(tt.in)); got != tt.want {
			t.Errorf("ContentHashHex(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if ContentHashHex([]byte("aaa")) == ContentHashHex([]byte("bbb")) {
		t.Error("expected different hashes for different inputs")
	}
}

func TestNewJob(t *testing.T) {
	job := NewJob("alice", "", "notes.md", []byte("# hi"))
	if job.ID == "" || job.DocID == "" {
		t.Fatalf("expected generated ids, got job=%q doc=%q", job.ID, job.DocID)
	}
	if job.ID == job.DocID {
		t.Error("job and doc ids should differ")
	}
	if job.Status != StatusQueued {
		t.Errorf("status = %q, want queued", job.Status)
	}
	if string(job.FileData()) != "# hi" {
		t.Errorf("file data = %q", job.FileData())
	}

	named := NewJob("alice", "doc-7", "notes.md", nil)
	if named.DocID != "doc-7" {
		t.Errorf("doc id = %q, want doc-7", named.DocID)
	}
}

func TestNewID_TimeOrdered(t *testing.T) {
	prev := newID()
	for range 100 {
		next := newID()
		if next <= prev {
			t.Fatalf("ids not increasing: %q then %q", prev, next)
		}
		prev = next
	}
}

func TestJobStatus_Done(t *testing.T) {
	done := map[JobStatus]bool{
		StatusQueued:    false,
		StatusParsing:   false,
		StatusMapping:   false,
		StatusReducing:  false,
		StatusCompleted: true,
		StatusCached:    true,
		StatusFailed:    true,
		StatusCancelled: true,
	}
	for s, want := range done {
		if got := s.Done(); got != want {
			t.Errorf("%s.Done() = %v, want %v", s, got, want)
		}
	}
}

func TestJob_SetStatusAdvancesUpdatedAt(t *testing.T) {
	job := NewJob("u", "d", "a.txt", nil)
	before := job.UpdatedAt
	time.Sleep(time.Millisecond)
	job.SetStatus(StatusParsing, "parsing")

	snap := job.Snapshot()
	if snap.Status != StatusParsing || snap.Phase != "parsing" {
		t.Errorf("status/phase = %q/%q", snap.Status, snap.Phase)
	}
	if !snap.UpdatedAt.After(before) {
		t.Error("expected UpdatedAt to advance")
	}
}

func TestJob_Observe(t *testing.T) {
	job := NewJob("u", "d", "a.txt", nil)

	job.Observe(summarize.Event{State: summarize.StateMapping, Chunks: 4})
	job.Observe(summarize.Event{State: summarize.StateMapping, Chunks: 4, Mapped: 2, Calls: 2})
	snap := job.Snapshot()
	if snap.Status != StatusMapping {
		t.Errorf("status = %q, want mapping", snap.Status)
	}
	if snap.Progress.TotalChunks != 4 || snap.Progress.ChunksSummarized != 2 || snap.Progress.Calls != 2 {
		t.Errorf("progress = %+v", snap.Progress)
	}

	job.Observe(summarize.Event{State: summarize.StateReducing, Chunks: 4, Mapped: 4, Calls: 6, Level: 2})
	job.Observe(summarize.Event{State: summarize.StateReducing, Chunks: 4, Mapped: 4, Calls: 7, Level: 1})
	snap = job.Snapshot()
	if snap.Status != StatusReducing {
		t.Errorf("status = %q, want reducing", snap.Status)
	}
	if snap.Progress.Levels != 2 {
		t.Errorf("levels = %d, want the deepest level seen (2)", snap.Progress.Levels)
	}

	// Terminal engine states are left for the worker to decide.
	job.Observe(summarize.Event{State: summarize.StateDone, Chunks: 4, Mapped: 4, Calls: 7})
	if got := job.Snapshot().Status; got != StatusReducing {
		t.Errorf("status after done event = %q, want reducing", got)
	}
}

func TestJob_Complete(t *testing.T) {
	job := NewJob("u", "d", "a.txt", []byte("raw"))
	if _, ok := job.Summary(); ok {
		t.Fatal("queued job should have no summary")
	}

	job.Complete(StatusCached, "short", "abc")
	summary, ok := job.Summary()
	if !ok || summary != "short" {
		t.Fatalf("summary = %q, %v", summary, ok)
	}
	if job.FileData() != nil {
		t.Error("file data should be released on completion")
	}
	if snap := job.Snapshot(); snap.ContentHash != "abc" || snap.Phase != "done" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestJob_AddError(t *testing.T) {
	job := NewJob("u", "d", "a.txt", nil)
	job.AddError("chunk 3 failed")
	job.AddError("chunk 7 failed")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 || snap.Progress.Errors[0] != "chunk 3 failed" {
		t.Fatalf("errors = %v", snap.Progress.Errors)
	}

	// The snapshot must not alias the job's slice.
	snap.Progress.Errors[0] = "changed"
	if job.Snapshot().Progress.Errors[0] != "chunk 3 failed" {
		t.Error("snapshot shares storage with the job")
	}
}

func TestJob_SnapshotJSON(t *testing.T) {
	job := NewJob("u", "d", "a.txt", nil)
	job.Style = prompt.StyleBulletPoints
	job.MaxChunkSize = 500

	data, err := json.Marshal(job.Snapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"style":"bullet_points"`, `"max_chunk_size":500`, `"errors":[]`, `"chunks_summarized":0`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("snapshot json %s missing %s", data, want)
		}
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := NewJob("u", "d", "a.txt", nil)
	store.Put(job)

	if got := store.Get(job.ID); got != job {
		t.Fatalf("got %v, want the stored job", got)
	}
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
	if store.Len() != 1 {
		t.Errorf("len = %d, want 1", store.Len())
	}
}

func TestJobStore_Cleanup(t *testing.T) {
	store := NewJobStore(time.Minute)
	now := time.Now()

	old := NewJob("u", "d1", "a.txt", nil)
	old.Status = StatusCompleted
	old.UpdatedAt = now.Add(-2 * time.Minute)

	running := NewJob("u", "d2", "b.txt", nil)
	running.Status = StatusMapping
	running.UpdatedAt = now.Add(-2 * time.Minute)

	fresh := NewJob("u", "d3", "c.txt", nil)
	fresh.Status = StatusFailed
	fresh.UpdatedAt = now

	for _, j := range []*Job{old, running, fresh} {
		store.Put(j)
	}

	if n := store.Cleanup(now); n != 1 {
		t.Errorf("removed %d jobs, want 1", n)
	}
	if store.Get(old.ID) != nil {
		t.Error("expected expired finished job to be removed")
	}
	if store.Get(running.ID) == nil {
		t.Error("in-flight job should survive cleanup")
	}
	if store.Get(fresh.ID) == nil {
		t.Error("fresh job should survive cleanup")
	}
}

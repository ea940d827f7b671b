package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/capdigest/internal/prompt"
	"github.com/dgallion1/capdigest/internal/summarize"
)

// JobStatus represents the state of a summarization job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusParsing   JobStatus = "parsing"
	StatusMapping   JobStatus = "mapping"
	StatusReducing  JobStatus = "reducing"
	StatusCompleted JobStatus = "completed"
	StatusCached    JobStatus = "cached"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Done reports whether the job has stopped for good.
func (s JobStatus) Done() bool {
	switch s {
	case StatusCompleted, StatusCached, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Job tracks the state of a single document summarization.
type Job struct {
	mu sync.Mutex

	ID     string
	DocID  string
	UserID string

	Filename string
	Title    string

	// Request parameters.
	Style        prompt.Style
	MaxChunkSize int
	Normalize    bool

	Status   JobStatus
	Phase    string
	Progress Progress

	ContentHash string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	fileData []byte
	summary  string
}

// Progress tracks processing progress.
type Progress struct {
	TotalChunks      int      `json:"total_chunks"`
	ChunksSummarized int      `json:"chunks_summarized"`
	Calls            int      `json:"calls"`
	Levels           int      `json:"levels"`
	Errors           []string `json:"errors"`
}

// NewJob returns a queued job for filename with fresh job and document IDs.
// An empty docID gets a generated one.
func NewJob(userID, docID, filename string, data []byte) *Job {
	if docID == "" {
		docID = newID()
	}
	now := time.Now()
	return &Job{
		ID:        newID(),
		DocID:     docID,
		UserID:    userID,
		Filename:  filename,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		fileData:  data,
	}
}

// newID returns a time-ordered UUID so IDs sort by creation.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes finished jobs that have not changed within the TTL.
// Jobs still in flight are kept however old they are.
func (s *JobStore) Cleanup(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := job.Status.Done() && now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Errors = append(j.Progress.Errors, err)
	j.UpdatedAt = time.Now()
}

// Observe folds an engine event into the job's status and progress.
func (j *Job) Observe(ev summarize.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalChunks = ev.Chunks
	j.Progress.ChunksSummarized = ev.Mapped
	j.Progress.Calls = ev.Calls
	if ev.Level > j.Progress.Levels {
		j.Progress.Levels = ev.Level
	}
	switch ev.State {
	case summarize.StateDirect, summarize.StateMapping:
		j.Status, j.Phase = StatusMapping, ev.State.String()
	case summarize.StateReducing:
		j.Status, j.Phase = StatusReducing, ev.State.String()
	}
	j.UpdatedAt = time.Now()
}

func (j *Job) SetTitle(title string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Title = title
	j.UpdatedAt = time.Now()
}

// Complete stores the final summary and marks the job with status.
func (j *Job) Complete(status JobStatus, summary, contentHash string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.summary = summary
	j.ContentHash = contentHash
	j.fileData = nil
	j.Status = status
	j.Phase = "done"
	j.UpdatedAt = time.Now()
}

// Summary returns the final summary and whether the job has one.
func (j *Job) Summary() (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.summary, j.Status == StatusCompleted || j.Status == StatusCached
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID           string    `json:"job_id"`
	DocID        string    `json:"doc_id"`
	UserID       string    `json:"user_id"`
	Status       JobStatus `json:"status"`
	Phase        string    `json:"phase"`
	Filename     string    `json:"filename"`
	Title        string    `json:"title"`
	Style        string    `json:"style"`
	MaxChunkSize int       `json:"max_chunk_size"`
	Progress     Progress  `json:"progress"`
	ContentHash  string    `json:"content_hash,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	p := j.Progress
	p.Errors = append([]string{}, j.Progress.Errors...)
	return JobSnapshot{
		ID:           j.ID,
		DocID:        j.DocID,
		UserID:       j.UserID,
		Status:       j.Status,
		Phase:        j.Phase,
		Filename:     j.Filename,
		Title:        j.Title,
		Style:        j.Style.String(),
		MaxChunkSize: j.MaxChunkSize,
		Progress:     p,
		ContentHash:  j.ContentHash,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

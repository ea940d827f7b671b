package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/capdigest/internal/parser"
	"github.com/dgallion1/capdigest/internal/pipeline"
	"github.com/dgallion1/capdigest/internal/prompt"
	"github.com/dgallion1/capdigest/internal/render"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// jobOptions are the per-upload form fields shared by single and batch ingest.
type jobOptions struct {
	userID       string
	style        prompt.Style
	maxChunkSize int
	normalize    bool
}

func parseJobOptions(r *http.Request) (jobOptions, error) {
	opts := jobOptions{
		userID:    r.FormValue("user_id"),
		style:     prompt.ParseStyle(r.FormValue("style")),
		normalize: r.FormValue("normalize") == "true",
	}
	if v := r.FormValue("max_chunk_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return opts, fmt.Errorf("max_chunk_size must be a positive integer")
		}
		opts.maxChunkSize = n
	}
	return opts, nil
}

// readUpload reads one uploaded file, enforcing the extension and size limits.
func (s *Server) readUpload(fh *multipart.FileHeader) (string, []byte, int, error) {
	filename := sanitizeFilename(fh.Filename)
	if !parser.IsSupportedExtension(filename) {
		return filename, nil, http.StatusBadRequest, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}
	f, err := fh.Open()
	if err != nil {
		return filename, nil, http.StatusInternalServerError, fmt.Errorf("failed to open file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return filename, nil, http.StatusInternalServerError, fmt.Errorf("failed to read file")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return filename, nil, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}
	return filename, data, 0, nil
}

func (s *Server) submit(filename, docID, title string, data []byte, opts jobOptions) (*pipeline.Job, error) {
	if docID == "" {
		docID = pipeline.ContentHashHex(data)[:16]
	}
	job := pipeline.NewJob(opts.userID, docID, filename, data)
	job.Title = title
	job.Style = opts.style
	job.MaxChunkSize = opts.maxChunkSize
	job.Normalize = opts.normalize
	if err := s.orchestrator.Submit(job); err != nil {
		return nil, err
	}
	return job, nil
}

func jobAccepted(job *pipeline.Job) map[string]any {
	snap := job.Snapshot()
	return map[string]any{
		"job_id":      snap.ID,
		"doc_id":      snap.DocID,
		"status":      snap.Status,
		"poll_url":    fmt.Sprintf("/api/ingest/%s/status", snap.ID),
		"summary_url": fmt.Sprintf("/api/ingest/%s/summary", snap.ID),
	}
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	// extra 1MB for form overhead
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	opts, err := parseJobOptions(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		jsonError(w, "file is required", http.StatusBadRequest)
		return
	}

	filename, data, code, err := s.readUpload(files[0])
	if err != nil {
		jsonError(w, err.Error(), code)
		return
	}

	job, err := s.submit(filename, r.FormValue("doc_id"), r.FormValue("title"), data, opts)
	if err != nil {
		jsonError(w, err.Error(), errorStatus(err))
		return
	}
	writeJSON(w, http.StatusAccepted, jobAccepted(job))
}

func (s *Server) handleBatchIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	opts, err := parseJobOptions(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	results := make([]map[string]any, 0, len(files))
	for _, fh := range files {
		filename, data, _, err := s.readUpload(fh)
		if err != nil {
			results = append(results, map[string]any{"filename": filename, "error": err.Error()})
			continue
		}
		job, err := s.submit(filename, "", "", data, opts)
		if err != nil {
			results = append(results, map[string]any{"filename": filename, "error": err.Error()})
			continue
		}
		res := jobAccepted(job)
		res["filename"] = filename
		results = append(results, res)
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"jobs": results})
}

func (s *Server) handleIngestStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// handleIngestSummary returns a finished job's summary as md (default), txt
// or docx.
func (s *Server) handleIngestSummary(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	summary, ok := job.Summary()
	snap := job.Snapshot()
	if !ok {
		jsonError(w, fmt.Sprintf("job is %s, no summary available", snap.Status), http.StatusConflict)
		return
	}

	title := snap.Title
	if title == "" {
		title = strings.TrimSuffix(snap.Filename, filepath.Ext(snap.Filename))
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = io.WriteString(w, render.Markdown(title, summary, snap.UpdatedAt))
	case "txt":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, summary)
	case "docx":
		data, err := renderDOCX(title, summary)
		if err != nil {
			s.log.Error("render docx failed", "job_id", snap.ID, "error", err)
			jsonError(w, "failed to render docx", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", docxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", title+".docx"))
		_, _ = w.Write(data)
	default:
		jsonError(w, "format must be md, txt or docx", http.StatusBadRequest)
	}
}

func renderDOCX(title, summary string) ([]byte, error) {
	f, err := os.CreateTemp("", "capdigest-*.docx")
	if err != nil {
		return nil, err
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	if err := render.DOCX(title, summary, path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rendered docx: %w", err)
	}
	return data, nil
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}

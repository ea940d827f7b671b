package summarize

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when the maximum chunk size is not positive.
	// No generator call is made.
	ErrInvalidInput = errors.New("invalid input: max chunk size must be positive")

	// ErrCancelled is returned when the caller's context ends mid-run. The
	// returned error also wraps the context error.
	ErrCancelled = errors.New("summarization cancelled")

	// ErrReductionStalled is returned when recursive reduction stops shrinking
	// the text or runs past the configured depth.
	ErrReductionStalled = errors.New("reduction stalled")
)

// Stage names the phase a generator call belongs to.
type Stage string

const (
	StageMap    Stage = "map"
	StageReduce Stage = "reduce"
)

// GenerationError reports a failed generator call. ChunkIndex is the
// document chunk for map-stage failures and -1 for every reduce-stage
// failure. Piece is the index of the failed piece within an intermediate
// reduce level, and -1 otherwise.
type GenerationError struct {
	Stage      Stage
	ChunkIndex int
	Piece      int
	Level      int
	Err        error
}

func (e *GenerationError) Error() string {
	switch {
	case e.HasChunk():
		return fmt.Sprintf("generate %s (level %d, chunk %d): %v", e.Stage, e.Level, e.ChunkIndex, e.Err)
	case e.Piece >= 0:
		return fmt.Sprintf("generate %s (level %d, piece %d): %v", e.Stage, e.Level, e.Piece, e.Err)
	}
	return fmt.Sprintf("generate %s (level %d): %v", e.Stage, e.Level, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// HasChunk reports whether the failure is tied to one chunk.
func (e *GenerationError) HasChunk() bool {
	return e.ChunkIndex >= 0
}

func cancelled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}

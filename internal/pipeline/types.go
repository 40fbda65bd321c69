package pipeline

import (
	"time"

	"github.com/andresuchdata/inventory-optimizer/internal/reorder"
)

// Config holds configuration for a batch run.
type Config struct {
	Workers   int            // Number of files processed concurrently
	OutputDir string         // Directory for per-file recommendation snapshots
	Params    reorder.Params // Applied to every file
}

// RunStatus represents the outcome of a batch run
type RunStatus string

const (
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusPartial    RunStatus = "partial"
	StatusFailed     RunStatus = "failed"
)

// FileStatus represents the state of a single file
type FileStatus string

const (
	FileStatusQueued    FileStatus = "queued"
	FileStatusCompleted FileStatus = "completed"
	FileStatusFailed    FileStatus = "failed"
)

// FileResult tracks the processing of a single input file
type FileResult struct {
	Path         string        `json:"path"`
	Output       string        `json:"output,omitempty"`
	Status       FileStatus    `json:"status"`
	Products     int           `json:"products"`
	NeedsReorder int           `json:"needs_reorder"`
	Warnings     int           `json:"warnings"`
	Error        string        `json:"error,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// Run is one execution of the runner over a set of files
type Run struct {
	ID          string       `json:"id"`
	Status      RunStatus    `json:"status"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`
	Files       []FileResult `json:"files"`
}

// Counts returns the number of completed and failed files.
func (r *Run) Counts() (completed, failed int) {
	for _, f := range r.Files {
		switch f.Status {
		case FileStatusCompleted:
			completed++
		case FileStatusFailed:
			failed++
		}
	}
	return completed, failed
}

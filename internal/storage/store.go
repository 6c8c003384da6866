package storage

import (
	"context"

	"brickgen/internal/report"
)

// RunStore persists run reports so previous runs can be listed.
type RunStore interface {
	// SaveRun upserts the run and replaces its stages and diagnostics.
	SaveRun(ctx context.Context, r *report.RunReport) error

	// GetRun returns the full stored report of one run.
	GetRun(ctx context.Context, runID string) (*report.RunReport, error)

	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)

	Close() error
}

// RunRecord is the one-line view of a stored run.
type RunRecord struct {
	RunID            string
	Repo             string
	StartedAt        string
	GeneratedAt      string
	Components       int
	ArtifactsCreated int
	Errors           int
	Warnings         int
}

// Package store persists the geocode caches and the pipeline run log.
package store

import (
	"context"
	"time"
)

// Coord is a resolved latitude/longitude pair.
type Coord struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunSummary holds the counts recorded when a run completes.
type RunSummary struct {
	Rows          int `json:"rows"`
	Units         int `json:"units"`
	Resolved      int `json:"resolved"`
	Unresolved    int `json:"unresolved"`
	Neighborhoods int `json:"neighborhoods"`
	Clusters      int `json:"clusters"`
}

// Run is one recorded pipeline execution.
type Run struct {
	ID         string      `json:"id"`
	Input      string      `json:"input"`
	Status     RunStatus   `json:"status"`
	Summary    *RunSummary `json:"summary,omitempty"`
	Error      string      `json:"error,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

// Store is the persistence interface shared by the resolver's concurrent
// tasks. Each method is a single-key atomic operation; no call sequence
// spans a transaction.
type Store interface {
	// Coordinate cache. GetCoord returns found=true with a nil Coord for a
	// cached negative (a lookup confirmed unresolved). SetCoordMiss records
	// that negative so repeated failures skip the external services.
	GetCoord(ctx context.Context, query string) (*Coord, bool, error)
	SetCoord(ctx context.Context, query string, lat, lng float64) error
	SetCoordMiss(ctx context.Context, query string) error

	// Neighborhood cache, keyed by the exact coordinate pair.
	GetNeighborhood(ctx context.Context, lat, lng float64) (string, bool, error)
	SetNeighborhood(ctx context.Context, lat, lng float64, neighborhood string) error

	// Run log.
	CreateRun(ctx context.Context, input string) (*Run, error)
	CompleteRun(ctx context.Context, runID string, summary RunSummary) error
	FailRun(ctx context.Context, runID string, message string) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}

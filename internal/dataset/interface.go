package dataset

import (
	"context"
	"time"

	"github.com/lbd-works/gazetteer-cli/internal/fetcher"
)

// Cadence describes how often a dataset is refreshed upstream.
type Cadence string

const (
	Monthly   Cadence = "monthly"
	Quarterly Cadence = "quarterly"
	Annual    Cadence = "annual"
)

// FetchResult holds the outcome of a dataset fetch.
type FetchResult struct {
	Path     string         `json:"path"`
	Rows     int64          `json:"rows"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Dataset defines the interface each upstream dataset must implement.
type Dataset interface {
	// Name returns the unique identifier for this dataset (e.g., "whd").
	Name() string

	// File returns the artifact filename written under the data directory
	// (e.g., "whd.csv").
	File() string

	// Cadence returns how often this dataset is updated upstream.
	Cadence() Cadence

	// ShouldRun decides if this dataset needs fetching given the current
	// time and the time of the last successful fetch (nil if never fetched).
	ShouldRun(now time.Time, lastFetch *time.Time) bool

	// Fetch downloads, extracts, and projects the dataset, writing the
	// artifact into dataDir. The artifact appears complete or not at all.
	Fetch(ctx context.Context, f fetcher.Fetcher, dataDir string) (*FetchResult, error)
}

// Package constants provides shared constants used throughout the medisync codebase.
// This includes timeouts, batch sizes, file permissions, and other configuration
// values that should be consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for a single remote API call
	DefaultHTTPTimeout = 40 * time.Second

	// SyncTimeout is the timeout for a full sync run
	SyncTimeout = 2 * time.Hour

	// RetryBackoffBase is the base backoff before the first retry
	RetryBackoffBase = 1 * time.Second

	// RetryBackoffStep is added per attempt on top of the base backoff
	RetryBackoffStep = 2 * time.Second

	// DefaultRateLimitWait is the wait applied on a rate-limit response when
	// the server does not specify a Retry-After duration
	DefaultRateLimitWait = 2 * time.Second

	// PriceUpdatePause is the pause between per-product price update requests
	PriceUpdatePause = 500 * time.Millisecond

	// CreateBatchPause is the pause between creation batches, letting the
	// adaptive pool size stabilize
	CreateBatchPause = 600 * time.Millisecond
)

// Limit constants define retry counts, batch sizes and pool bounds
const (
	// MaxRetries is the maximum number of attempts for a single remote call
	// or page fetch before the failure is surfaced
	MaxRetries = 6

	// PageSize is the number of products requested per catalog page
	PageSize = 100

	// MutationBatchSize is the number of aliased mutations combined into one
	// archive or basics-update request
	MutationBatchSize = 50

	// CreateBatchSize is the number of products processed per creation batch
	CreateBatchSize = 30

	// BaselineWorkers is the starting size of the creation worker pool
	BaselineWorkers = 4

	// MinWorkers is the floor of the creation worker pool
	MinWorkers = 2

	// MaxWorkers is the ceiling of the creation worker pool
	MaxWorkers = 6

	// GrowProbability is the chance the pool grows by one after a success
	GrowProbability = 0.2

	// InitialStock is the stock quantity set on newly created products
	InitialStock = 100
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Default file locations
const (
	// DefaultStatePath is where the computed plan snapshot is persisted
	DefaultStatePath = "data/sync_state.json"

	// DefaultLockPath is the process-level mutual exclusion marker
	DefaultLockPath = "sync.lock"

	// DefaultFeedSnapshotPath is where the filtered supplier feed is written
	// after ingestion, as a diagnostic artifact
	DefaultFeedSnapshotPath = "mediven_full.json"
)

// Package medisync reconciles a pharmaceutical supplier inventory feed with
// a commerce storefront catalog. A sync run takes snapshots of both sides,
// computes a reconciliation plan (create, update, archive), persists it, and
// executes it as batched mutations against the storefront.
//
// The package exposes a facade over the phases so callers can run the full
// pipeline or any phase in isolation:
//
//	syncer, err := medisync.New(
//		medisync.WithSource(supplier),
//		medisync.WithCatalog(store),
//		medisync.WithDeleteMissing(true),
//	)
//	if err != nil {
//		return err
//	}
//	summary, err := syncer.Sync(ctx)
package medisync

import (
	"context"

	"github.com/farmaciaslf/medisync/pkg/catalog"
	"github.com/farmaciaslf/medisync/pkg/engine"
	"github.com/farmaciaslf/medisync/pkg/errors"
	"github.com/farmaciaslf/medisync/pkg/exclusion"
	"github.com/farmaciaslf/medisync/pkg/state"
)

// Source is the supplier side of a sync: one call returning the complete
// inventory feed.
type Source interface {
	Inventory(ctx context.Context) ([]catalog.SourceItem, error)
}

// Catalog is the destination side of a sync: a complete product walk plus the
// write surface the engine executes against.
type Catalog interface {
	Products(ctx context.Context) ([]catalog.Product, error)
	engine.Destination
}

// Phase selects a subset of the plan to apply.
type Phase string

// Apply phases.
const (
	PhaseArchive Phase = "archive"
	PhaseUpdate  Phase = "update"
	PhaseCreate  Phase = "create"
)

// Summary is the outcome of a full sync run.
type Summary struct {
	State      *state.SyncState `json:"state"`
	Result     *engine.Result   `json:"result,omitempty"`
	TaxCleared engine.Totals    `json:"tax_cleared"`
	Simulated  bool             `json:"simulated"`
}

// Syncer is the reconciliation facade.
type Syncer interface {
	// Plan snapshots both sides, computes the reconciliation plan and
	// persists it for later apply phases.
	Plan(ctx context.Context) (*state.SyncState, error)

	// Apply loads the persisted plan and executes the given phases in plan
	// order. No phases means every phase, with archival gated behind the
	// delete-missing setting.
	Apply(ctx context.Context, phases ...Phase) (*engine.Result, error)

	// Sync runs the full pipeline under the process lock: plan, apply the
	// in-memory plan, then clear taxes. In simulate mode the plan is
	// persisted but nothing is written to the destination.
	Sync(ctx context.Context) (*Summary, error)

	// RemoveTax marks every taxable variant in the destination tax-free.
	RemoveTax(ctx context.Context) (engine.Totals, error)

	// ExportSKUs returns the supplier SKUs that survive the exclusion
	// filter, in feed order.
	ExportSKUs(ctx context.Context) ([]string, error)

	// Unlock force-clears a stale process lock, reporting whether one was
	// present.
	Unlock() (bool, error)
}

// syncer is the concrete facade.
type syncer struct {
	source        Source
	catalog       Catalog
	filter        *exclusion.Filter
	store         *state.Store
	lock          *state.Lock
	engine        *engine.Engine
	mode          string
	simulate      bool
	deleteMissing bool
	snapshotPath  string
	engineOpts    []engine.Option
}

// New creates a Syncer from the given options. A source and a catalog are
// required; everything else has defaults.
func New(opts ...Option) (Syncer, error) {
	s := &syncer{
		filter: exclusion.Default(),
		store:  state.NewStore(""),
		lock:   state.NewLock(""),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.source == nil {
		return nil, errors.NewConfigError("medisync", "a supplier source is required", nil)
	}
	if s.catalog == nil {
		return nil, errors.NewConfigError("medisync", "a destination catalog is required", nil)
	}

	s.engine = engine.New(s.catalog, s.engineOpts...)
	return s, nil
}

// Package engine executes a reconciliation plan against the destination
// store. Each phase consumes one operation set from the plan: archival and
// basics updates go out as aliased mutation batches, price updates go out
// per product, and creation runs a multi-step state machine per product
// under an adaptive worker pool.
//
// Phases are resilient: a failing batch or item is counted and logged, and
// execution moves on. Only context cancellation aborts a phase.
package engine

import (
	"context"
	"time"

	"github.com/farmaciaslf/medisync/pkg/catalog"
	"github.com/farmaciaslf/medisync/pkg/constants"
	"github.com/farmaciaslf/medisync/pkg/planner"
)

// Destination is the write surface of the store the plan executes against.
type Destination interface {
	// ArchiveProducts archives a batch, returning per-product counts.
	ArchiveProducts(ctx context.Context, ops []planner.ArchiveOp) (ok, failed int, err error)

	// UpdateBasics sets title and reactivates status on a batch, returning
	// per-product counts.
	UpdateBasics(ctx context.Context, ops []planner.UpdateOp) (ok, failed int, err error)

	// UpdateVariantPrices applies new prices to one product's variants.
	UpdateVariantPrices(ctx context.Context, productID string, ops []planner.UpdateOp) error

	// ClearTaxes marks one product's variants as tax-free.
	ClearTaxes(ctx context.Context, productID string, variantIDs []string) error

	// CreateShell creates an active product with only a title, returning the
	// product GID and its default variant GID.
	CreateShell(ctx context.Context, title string) (productGID, variantGID string, err error)

	// AttachVariant sets SKU, price and inventory tracking on the default
	// variant, returning its inventory item GID.
	AttachVariant(ctx context.Context, productGID, variantGID, sku string, price int) (inventoryItemGID string, err error)

	// SetStock sets the available quantity of an inventory item.
	SetStock(ctx context.Context, inventoryItemGID string, quantity int) error

	// AttachDefaultImage attaches the placeholder image, reporting whether
	// one was attached.
	AttachDefaultImage(ctx context.Context, productGID string) (bool, error)

	// Publish publishes the product to the sales channel, reporting whether
	// a publication happened.
	Publish(ctx context.Context, productGID string) (bool, error)
}

// Totals is the outcome of one phase.
type Totals struct {
	OK      int `json:"ok"`
	Errors  int `json:"errors"`
	Skipped int `json:"skipped"`
}

// Add accumulates other into t.
func (t *Totals) Add(other Totals) {
	t.OK += other.OK
	t.Errors += other.Errors
	t.Skipped += other.Skipped
}

// Result aggregates the phase outcomes of one apply cycle.
type Result struct {
	Archived   Totals `json:"archived"`
	Updated    Totals `json:"updated"`
	Created    Totals `json:"created"`
	TaxCleared Totals `json:"tax_cleared"`
}

// Engine executes plan phases against a destination.
type Engine struct {
	dest          Destination
	mutationBatch int
	createBatch   int
	pool          *pool
	sleep         func(context.Context, time.Duration) error
	observer      Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithMutationBatchSize overrides the aliased-mutation batch size.
func WithMutationBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.mutationBatch = n
		}
	}
}

// WithCreateBatchSize overrides the creation batch size.
func WithCreateBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.createBatch = n
		}
	}
}

// WithPoolBounds overrides the creation pool floor, baseline and ceiling.
func WithPoolBounds(min, baseline, max int) Option {
	return func(e *Engine) { e.pool = newPool(min, baseline, max, e.pool.random) }
}

// WithRandom overrides the randomness source of the adaptive pool, used by
// tests for deterministic growth.
func WithRandom(random func() float64) Option {
	return func(e *Engine) { e.pool.random = random }
}

// WithSleep overrides the pacing sleeper, used by tests.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(e *Engine) { e.sleep = sleep }
}

// WithObserver attaches a progress observer.
func WithObserver(observer Observer) Option {
	return func(e *Engine) {
		if observer != nil {
			e.observer = observer
		}
	}
}

// New creates an engine writing to dest.
func New(dest Destination, opts ...Option) *Engine {
	e := &Engine{
		dest:          dest,
		mutationBatch: constants.MutationBatchSize,
		createBatch:   constants.CreateBatchSize,
		pool:          newPool(constants.MinWorkers, constants.BaselineWorkers, constants.MaxWorkers, nil),
		sleep:         sleepCtx,
		observer:      nopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs every phase of the plan in order: archive (when enabled),
// basics, prices, creation. The taxable pass runs separately because it
// consumes the destination snapshot, not the plan.
func (e *Engine) Execute(ctx context.Context, plan *planner.Plan, deleteMissing bool) (*Result, error) {
	result := &Result{}

	if deleteMissing {
		archived, err := e.Archive(ctx, plan.ToArchive)
		if err != nil {
			return result, err
		}
		result.Archived = archived
	} else {
		result.Archived.Skipped = len(plan.ToArchive)
	}

	basics, err := e.UpdateBasics(ctx, plan.ToUpdate)
	if err != nil {
		return result, err
	}
	result.Updated.Add(basics)

	prices, err := e.UpdatePrices(ctx, plan.ToUpdate)
	if err != nil {
		return result, err
	}
	result.Updated.Add(prices)

	created, err := e.Create(ctx, plan.ToCreate)
	if err != nil {
		return result, err
	}
	result.Created = created

	return result, nil
}

// RemoveTax marks every taxable variant in the snapshot tax-free, one bulk
// mutation per product.
func (e *Engine) RemoveTax(ctx context.Context, products []catalog.Product) (Totals, error) {
	var totals Totals
	e.observer.PhaseStarted(PhaseRemoveTax, len(products))

	for _, product := range products {
		if err := ctx.Err(); err != nil {
			return totals, err
		}

		var taxable []string
		for _, variant := range product.Variants {
			if variant.Taxable {
				taxable = append(taxable, variant.ID)
			}
		}
		if len(taxable) == 0 {
			totals.Skipped++
			continue
		}

		if err := e.dest.ClearTaxes(ctx, product.ID, taxable); err != nil {
			totals.Errors++
			e.observer.ItemFailed(PhaseRemoveTax, product.ID, err)
			continue
		}
		totals.OK++
	}

	e.observer.PhaseCompleted(PhaseRemoveTax, totals)
	return totals, nil
}

// batches splits ops into slices of at most size elements.
func batches[T any](ops []T, size int) [][]T {
	var out [][]T
	for size > 0 && len(ops) > 0 {
		n := size
		if n > len(ops) {
			n = len(ops)
		}
		out = append(out, ops[:n])
		ops = ops[n:]
	}
	return out
}

// sleepCtx sleeps for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

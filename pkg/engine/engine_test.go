package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmaciaslf/medisync/pkg/catalog"
	"github.com/farmaciaslf/medisync/pkg/planner"
)

type priceCall struct {
	productID string
	ops       []planner.UpdateOp
}

type clearCall struct {
	productID  string
	variantIDs []string
}

// fakeDest records every write and fails the records listed in the fail sets.
type fakeDest struct {
	mu sync.Mutex

	archiveBatches [][]planner.ArchiveOp
	basicsBatches  [][]planner.UpdateOp
	priceCalls     []priceCall
	clearCalls     []clearCall
	createdSKUs    []string

	failSKUs     map[string]bool
	failProducts map[string]bool
	panicSKUs    map[string]bool
}

func newFakeDest() *fakeDest {
	return &fakeDest{
		failSKUs:     map[string]bool{},
		failProducts: map[string]bool{},
		panicSKUs:    map[string]bool{},
	}
}

func (f *fakeDest) ArchiveProducts(_ context.Context, ops []planner.ArchiveOp) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archiveBatches = append(f.archiveBatches, ops)

	ok, failed := 0, 0
	for _, op := range ops {
		if f.failSKUs[op.SKU] {
			failed++
		} else {
			ok++
		}
	}
	return ok, failed, nil
}

func (f *fakeDest) UpdateBasics(_ context.Context, ops []planner.UpdateOp) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.basicsBatches = append(f.basicsBatches, ops)
	return len(ops), 0, nil
}

func (f *fakeDest) UpdateVariantPrices(_ context.Context, productID string, ops []planner.UpdateOp) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceCalls = append(f.priceCalls, priceCall{productID: productID, ops: ops})
	if f.failProducts[productID] {
		return fmt.Errorf("price rejected for %s", productID)
	}
	return nil
}

func (f *fakeDest) ClearTaxes(_ context.Context, productID string, variantIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls = append(f.clearCalls, clearCall{productID: productID, variantIDs: variantIDs})
	if f.failProducts[productID] {
		return fmt.Errorf("clear rejected for %s", productID)
	}
	return nil
}

func (f *fakeDest) CreateShell(_ context.Context, title string) (string, string, error) {
	return "gid://shopify/Product/" + title, "gid://shopify/ProductVariant/" + title, nil
}

func (f *fakeDest) AttachVariant(_ context.Context, _, _, sku string, _ int) (string, error) {
	if f.panicSKUs[sku] {
		panic("boom " + sku)
	}
	if f.failSKUs[sku] {
		return "", fmt.Errorf("variant rejected for %s", sku)
	}
	return "gid://shopify/InventoryItem/" + sku, nil
}

func (f *fakeDest) SetStock(_ context.Context, inventoryItemGID string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdSKUs = append(f.createdSKUs, inventoryItemGID)
	return nil
}

func (f *fakeDest) AttachDefaultImage(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (f *fakeDest) Publish(_ context.Context, _ string) (bool, error) {
	return true, nil
}

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func neverGrow() float64 { return 1.0 }

func testEngine(dest Destination, opts ...Option) *Engine {
	base := []Option{WithSleep(noSleep), WithRandom(neverGrow)}
	return New(dest, append(base, opts...)...)
}

func TestArchiveSkipsAlreadyArchived(t *testing.T) {
	dest := newFakeDest()
	e := testEngine(dest)

	totals, err := e.Archive(context.Background(), []planner.ArchiveOp{
		{SKU: "A1", ProductID: "1", Status: catalog.StatusActive},
		{SKU: "B2", ProductID: "2", Status: catalog.StatusArchived},
		{SKU: "C3", ProductID: "", Status: catalog.StatusActive},
		{SKU: "D4", ProductID: "4", Status: catalog.StatusDraft},
	})
	require.NoError(t, err)
	assert.Equal(t, Totals{OK: 2, Skipped: 2}, totals)
	require.Len(t, dest.archiveBatches, 1)
	require.Len(t, dest.archiveBatches[0], 2)
}

func TestArchiveBatchesAndCountsFailures(t *testing.T) {
	dest := newFakeDest()
	dest.failSKUs["S3"] = true
	e := testEngine(dest, WithMutationBatchSize(2))

	var ops []planner.ArchiveOp
	for i := 1; i <= 5; i++ {
		ops = append(ops, planner.ArchiveOp{
			SKU:       fmt.Sprintf("S%d", i),
			ProductID: fmt.Sprintf("%d", i),
			Status:    catalog.StatusActive,
		})
	}

	totals, err := e.Archive(context.Background(), ops)
	require.NoError(t, err)
	assert.Equal(t, Totals{OK: 4, Errors: 1}, totals)
	assert.Len(t, dest.archiveBatches, 3)
}

func TestUpdateBasicsOnlySendsDirty(t *testing.T) {
	dest := newFakeDest()
	e := testEngine(dest)

	totals, err := e.UpdateBasics(context.Background(), []planner.UpdateOp{
		{SKU: "A1", ProductID: "1", NameDirty: true},
		{SKU: "B2", ProductID: "2", PriceDirty: true},
		{SKU: "C3", ProductID: "3", StatusDirty: true},
	})
	require.NoError(t, err)
	assert.Equal(t, Totals{OK: 2, Skipped: 1}, totals)
	require.Len(t, dest.basicsBatches, 1)
	assert.Equal(t, "A1", dest.basicsBatches[0][0].SKU)
	assert.Equal(t, "C3", dest.basicsBatches[0][1].SKU)
}

func TestUpdatePricesGroupsByProduct(t *testing.T) {
	dest := newFakeDest()
	e := testEngine(dest)

	totals, err := e.UpdatePrices(context.Background(), []planner.UpdateOp{
		{SKU: "A1", ProductID: "10", VariantID: "100", PriceDirty: true},
		{SKU: "B2", ProductID: "20", VariantID: "200", PriceDirty: true},
		{SKU: "A2", ProductID: "10", VariantID: "101", PriceDirty: true},
		{SKU: "C3", ProductID: "30", VariantID: "300", NameDirty: true},
	})
	require.NoError(t, err)
	assert.Equal(t, Totals{OK: 3, Skipped: 1}, totals)

	require.Len(t, dest.priceCalls, 2)
	assert.Equal(t, "10", dest.priceCalls[0].productID)
	assert.Len(t, dest.priceCalls[0].ops, 2)
	assert.Equal(t, "20", dest.priceCalls[1].productID)
}

func TestUpdatePricesWholeGroupFails(t *testing.T) {
	dest := newFakeDest()
	dest.failProducts["10"] = true
	e := testEngine(dest)

	totals, err := e.UpdatePrices(context.Background(), []planner.UpdateOp{
		{SKU: "A1", ProductID: "10", VariantID: "100", PriceDirty: true},
		{SKU: "A2", ProductID: "10", VariantID: "101", PriceDirty: true},
		{SKU: "B2", ProductID: "20", VariantID: "200", PriceDirty: true},
	})
	require.NoError(t, err)
	assert.Equal(t, Totals{OK: 1, Errors: 2}, totals)
}

func TestCreateCountsSuccessesAndFailures(t *testing.T) {
	dest := newFakeDest()
	dest.failSKUs["S2"] = true
	dest.failSKUs["S5"] = true
	dest.failSKUs["S8"] = true
	e := testEngine(dest)

	var ops []planner.CreateOp
	for i := 1; i <= 10; i++ {
		ops = append(ops, planner.CreateOp{SKU: fmt.Sprintf("S%d", i), Title: fmt.Sprintf("Product %d", i), Price: 1000, Stock: 100})
	}

	totals, err := e.Create(context.Background(), ops)
	require.NoError(t, err)
	assert.Equal(t, Totals{OK: 7, Errors: 3}, totals)
}

func TestCreateContainsWorkerPanics(t *testing.T) {
	dest := newFakeDest()
	dest.panicSKUs["S1"] = true
	e := testEngine(dest)

	totals, err := e.Create(context.Background(), []planner.CreateOp{
		{SKU: "S1", Title: "Panicky", Price: 100},
		{SKU: "S2", Title: "Fine", Price: 100},
	})
	require.NoError(t, err)
	assert.Equal(t, Totals{OK: 1, Errors: 1}, totals)
}

func TestPoolShrinksOnFailureAndGrowsOnSuccess(t *testing.T) {
	p := newPool(2, 4, 6, func() float64 { return 0.0 })

	size, changed := p.Observe(true)
	assert.True(t, changed)
	assert.Equal(t, 3, size)

	size, changed = p.Observe(false)
	assert.True(t, changed)
	assert.Equal(t, 4, size)
}

func TestPoolRespectsBounds(t *testing.T) {
	p := newPool(2, 2, 3, func() float64 { return 0.0 })

	size, changed := p.Observe(true)
	assert.False(t, changed)
	assert.Equal(t, 2, size)

	p.Observe(false)
	size, changed = p.Observe(false)
	assert.False(t, changed)
	assert.Equal(t, 3, size)
}

func TestPoolNeverGrowsWhenRandomAboveThreshold(t *testing.T) {
	p := newPool(2, 4, 6, neverGrow)
	size, changed := p.Observe(false)
	assert.False(t, changed)
	assert.Equal(t, 4, size)
}

func TestRemoveTaxSkipsUntaxedProducts(t *testing.T) {
	dest := newFakeDest()
	e := testEngine(dest)

	totals, err := e.RemoveTax(context.Background(), []catalog.Product{
		{ID: "1", Variants: []catalog.Variant{{ID: "10", Taxable: true}, {ID: "11", Taxable: false}}},
		{ID: "2", Variants: []catalog.Variant{{ID: "20", Taxable: false}}},
		{ID: "3", Variants: []catalog.Variant{{ID: "30", Taxable: true}, {ID: "31", Taxable: true}}},
	})
	require.NoError(t, err)
	assert.Equal(t, Totals{OK: 2, Skipped: 1}, totals)

	require.Len(t, dest.clearCalls, 2)
	assert.Equal(t, []string{"10"}, dest.clearCalls[0].variantIDs)
	assert.Equal(t, []string{"30", "31"}, dest.clearCalls[1].variantIDs)
}

func TestExecuteSkipsArchiveWhenDeleteMissingOff(t *testing.T) {
	dest := newFakeDest()
	e := testEngine(dest)

	plan := &planner.Plan{
		ToArchive: []planner.ArchiveOp{{SKU: "A1", ProductID: "1", Status: catalog.StatusActive}},
		ToCreate:  []planner.CreateOp{{SKU: "N1", Title: "New", Price: 1000}},
	}

	result, err := e.Execute(context.Background(), plan, false)
	require.NoError(t, err)
	assert.Empty(t, dest.archiveBatches)
	assert.Equal(t, 1, result.Archived.Skipped)
	assert.Equal(t, 1, result.Created.OK)
}

func TestExecuteRunsAllPhases(t *testing.T) {
	dest := newFakeDest()
	e := testEngine(dest)

	plan := &planner.Plan{
		ToArchive: []planner.ArchiveOp{{SKU: "A1", ProductID: "1", Status: catalog.StatusActive}},
		ToUpdate: []planner.UpdateOp{
			{SKU: "U1", ProductID: "2", VariantID: "20", PriceDirty: true, NameDirty: true},
		},
		ToCreate: []planner.CreateOp{{SKU: "N1", Title: "New", Price: 1000}},
	}

	result, err := e.Execute(context.Background(), plan, true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Archived.OK)
	assert.Equal(t, 2, result.Updated.OK) // one basics write plus one price write
	assert.Equal(t, 1, result.Created.OK)
	require.Len(t, dest.basicsBatches, 1)
	require.Len(t, dest.priceCalls, 1)
}

func TestExecuteCanceledContext(t *testing.T) {
	dest := newFakeDest()
	e := testEngine(dest)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Archive(ctx, []planner.ArchiveOp{{SKU: "A1", ProductID: "1", Status: catalog.StatusActive}})
	require.ErrorIs(t, err, context.Canceled)
}

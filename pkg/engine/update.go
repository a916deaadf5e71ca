package engine

import (
	"context"

	"github.com/farmaciaslf/medisync/pkg/constants"
	"github.com/farmaciaslf/medisync/pkg/logging"
	"github.com/farmaciaslf/medisync/pkg/planner"
)

// UpdateBasics pushes title and status changes in aliased batches. Only ops
// with a dirty name or status are sent; the mutation also reactivates
// archived products, so a product that came back to the supplier feed goes
// live again here.
func (e *Engine) UpdateBasics(ctx context.Context, ops []planner.UpdateOp) (Totals, error) {
	var totals Totals

	pending := make([]planner.UpdateOp, 0, len(ops))
	for _, op := range ops {
		if !op.BasicsDirty() || op.ProductID == "" {
			totals.Skipped++
			continue
		}
		pending = append(pending, op)
	}

	e.observer.PhaseStarted(PhaseUpdateBasics, len(pending))
	logging.Info().Int("pending", len(pending)).Msg("Updating titles and statuses")

	for _, batch := range batches(pending, e.mutationBatch) {
		if err := ctx.Err(); err != nil {
			return totals, err
		}

		ok, failed, err := e.dest.UpdateBasics(ctx, batch)
		if err != nil {
			totals.Errors += len(batch)
			e.observer.BatchCompleted(PhaseUpdateBasics, 0, len(batch))
			logging.Error().Err(err).Int("batch", len(batch)).Msg("Basics batch failed")
			continue
		}

		totals.OK += ok
		totals.Errors += failed
		e.observer.BatchCompleted(PhaseUpdateBasics, ok, failed)
	}

	e.observer.PhaseCompleted(PhaseUpdateBasics, totals)
	return totals, nil
}

// UpdatePrices pushes price changes one product at a time, pacing requests so
// sustained runs stay under the API cost budget. All variants of one product
// go in a single bulk mutation; a failing mutation fails the whole group.
func (e *Engine) UpdatePrices(ctx context.Context, ops []planner.UpdateOp) (Totals, error) {
	var totals Totals

	// Group by product, preserving first-seen order.
	var order []string
	groups := make(map[string][]planner.UpdateOp)
	for _, op := range ops {
		if !op.PriceDirty || op.ProductID == "" || op.VariantID == "" {
			totals.Skipped++
			continue
		}
		if _, seen := groups[op.ProductID]; !seen {
			order = append(order, op.ProductID)
		}
		groups[op.ProductID] = append(groups[op.ProductID], op)
	}

	e.observer.PhaseStarted(PhaseUpdatePrices, len(order))
	logging.Info().Int("products", len(order)).Msg("Updating prices")

	for i, productID := range order {
		if err := ctx.Err(); err != nil {
			return totals, err
		}

		group := groups[productID]
		if err := e.dest.UpdateVariantPrices(ctx, productID, group); err != nil {
			totals.Errors += len(group)
			e.observer.ItemFailed(PhaseUpdatePrices, productID, err)
			logging.Warn().Err(err).Str("product_id", productID).Msg("Price update failed")
		} else {
			totals.OK += len(group)
		}

		if i < len(order)-1 {
			if err := e.sleep(ctx, constants.PriceUpdatePause); err != nil {
				return totals, err
			}
		}
	}

	e.observer.PhaseCompleted(PhaseUpdatePrices, totals)
	return totals, nil
}

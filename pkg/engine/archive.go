package engine

import (
	"context"

	"github.com/farmaciaslf/medisync/pkg/catalog"
	"github.com/farmaciaslf/medisync/pkg/logging"
	"github.com/farmaciaslf/medisync/pkg/planner"
)

// Archive archives the planned products in aliased batches. Products already
// archived or missing an ID are skipped, so re-running the phase against a
// stale plan is harmless.
func (e *Engine) Archive(ctx context.Context, ops []planner.ArchiveOp) (Totals, error) {
	var totals Totals

	pending := make([]planner.ArchiveOp, 0, len(ops))
	for _, op := range ops {
		if op.ProductID == "" || op.Status == catalog.StatusArchived {
			totals.Skipped++
			continue
		}
		pending = append(pending, op)
	}

	e.observer.PhaseStarted(PhaseArchive, len(pending))
	logging.Info().
		Int("pending", len(pending)).
		Int("skipped", totals.Skipped).
		Msg("Archiving products")

	for _, batch := range batches(pending, e.mutationBatch) {
		if err := ctx.Err(); err != nil {
			return totals, err
		}

		ok, failed, err := e.dest.ArchiveProducts(ctx, batch)
		if err != nil {
			totals.Errors += len(batch)
			e.observer.BatchCompleted(PhaseArchive, 0, len(batch))
			logging.Error().Err(err).Int("batch", len(batch)).Msg("Archive batch failed")
			continue
		}

		totals.OK += ok
		totals.Errors += failed
		e.observer.BatchCompleted(PhaseArchive, ok, failed)
	}

	e.observer.PhaseCompleted(PhaseArchive, totals)
	return totals, nil
}

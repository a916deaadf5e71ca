package engine

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/farmaciaslf/medisync/pkg/constants"
	"github.com/farmaciaslf/medisync/pkg/logging"
	"github.com/farmaciaslf/medisync/pkg/planner"
)

// createStep names the stages of the per-product creation state machine, in
// order. A product failing mid-machine is counted once, at whatever step it
// reached.
type createStep string

const (
	stepShell   createStep = "shell"
	stepVariant createStep = "variant"
	stepStock   createStep = "stock"
	stepImage   createStep = "image"
	stepPublish createStep = "publish"
)

// Create creates the planned products in paced batches. Within a batch the
// adaptive pool bounds concurrency; the pool size observed at batch start
// applies to the whole batch, and per-item outcomes adjust it for the next
// one. A panic inside a worker is contained at the item boundary and counted
// as that item's failure.
func (e *Engine) Create(ctx context.Context, ops []planner.CreateOp) (Totals, error) {
	var totals Totals

	e.observer.PhaseStarted(PhaseCreate, len(ops))
	logging.Info().Int("pending", len(ops)).Msg("Creating products")

	allBatches := batches(ops, e.createBatch)
	for i, batch := range allBatches {
		if err := ctx.Err(); err != nil {
			return totals, err
		}

		workers := e.pool.Size()
		logging.Debug().
			Int("batch", i+1).
			Int("size", len(batch)).
			Int("workers", workers).
			Msg("Creation batch started")

		var mu sync.Mutex
		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(workers)

		for _, op := range batch {
			op := op
			group.Go(func() error {
				err := e.createOne(groupCtx, op)

				if size, changed := e.pool.Observe(err != nil); changed {
					e.observer.PoolResized(size)
				}

				mu.Lock()
				if err != nil {
					totals.Errors++
				} else {
					totals.OK++
				}
				mu.Unlock()

				if err != nil {
					e.observer.ItemFailed(PhaseCreate, op.SKU, err)
					logging.Warn().Err(err).Str("sku", op.SKU).Msg("Product creation failed")
				}
				return nil
			})
		}

		// Workers never return errors, so this only propagates context
		// cancellation.
		if err := group.Wait(); err != nil {
			return totals, err
		}
		e.observer.BatchCompleted(PhaseCreate, 0, 0)

		if i < len(allBatches)-1 {
			if err := e.sleep(ctx, constants.CreateBatchPause); err != nil {
				return totals, err
			}
		}
	}

	e.observer.PhaseCompleted(PhaseCreate, totals)
	return totals, nil
}

// createOne drives one product through the creation state machine: shell,
// variant, stock, then the optional image and publication steps.
func (e *Engine) createOne(ctx context.Context, op planner.CreateOp) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("creation worker panic: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	productGID, variantGID, err := e.dest.CreateShell(ctx, op.Title)
	if err != nil {
		return stepError(stepShell, err)
	}

	stock := op.Stock
	if stock <= 0 {
		stock = constants.InitialStock
	}

	inventoryItemGID, err := e.dest.AttachVariant(ctx, productGID, variantGID, op.SKU, op.Price)
	if err != nil {
		return stepError(stepVariant, err)
	}

	if err := e.dest.SetStock(ctx, inventoryItemGID, stock); err != nil {
		return stepError(stepStock, err)
	}

	if _, err := e.dest.AttachDefaultImage(ctx, productGID); err != nil {
		return stepError(stepImage, err)
	}

	if _, err := e.dest.Publish(ctx, productGID); err != nil {
		return stepError(stepPublish, err)
	}

	logging.Debug().Str("sku", op.SKU).Str("product", productGID).Msg("Product created")
	return nil
}

// stepError tags an error with the state-machine step it happened at.
func stepError(step createStep, err error) error {
	return fmt.Errorf("%s step: %w", step, err)
}

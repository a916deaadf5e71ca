package medisync

import (
	"context"

	"github.com/farmaciaslf/medisync/pkg/constants"
	"github.com/farmaciaslf/medisync/pkg/engine"
	"github.com/farmaciaslf/medisync/pkg/logging"
)

// Apply loads the persisted plan and executes the requested phases in plan
// order: archive, update, create. Explicitly requesting the archive phase
// runs it regardless of the delete-missing setting; a phaseless Apply keeps
// the gate.
func (s *syncer) Apply(ctx context.Context, phases ...Phase) (*engine.Result, error) {
	st, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	requested := func(p Phase) bool {
		if len(phases) == 0 {
			return true
		}
		for _, phase := range phases {
			if phase == p {
				return true
			}
		}
		return false
	}

	result := &engine.Result{}

	if requested(PhaseArchive) {
		if len(phases) > 0 || s.deleteMissing {
			archived, err := s.engine.Archive(ctx, st.ToArchive)
			if err != nil {
				return result, err
			}
			result.Archived = archived
		} else {
			result.Archived.Skipped = len(st.ToArchive)
			logging.Info().
				Int("pending", len(st.ToArchive)).
				Msg("Archival disabled, skipping phase")
		}
	}

	if requested(PhaseUpdate) {
		basics, err := s.engine.UpdateBasics(ctx, st.ToUpdate)
		if err != nil {
			return result, err
		}
		result.Updated.Add(basics)

		prices, err := s.engine.UpdatePrices(ctx, st.ToUpdate)
		if err != nil {
			return result, err
		}
		result.Updated.Add(prices)
	}

	if requested(PhaseCreate) {
		created, err := s.engine.Create(ctx, st.ToCreate)
		if err != nil {
			return result, err
		}
		result.Created = created
	}

	return result, nil
}

// Sync runs the full pipeline under the process lock. The plan is always
// persisted; in simulate mode execution stops there. The tax pass reuses the
// destination snapshot taken during planning, so products created in this
// same run are picked up on the next one.
func (s *syncer) Sync(ctx context.Context) (*Summary, error) {
	if err := s.lock.Acquire(); err != nil {
		return nil, err
	}
	defer func() {
		if err := s.lock.Release(); err != nil {
			logging.Warn().Err(err).Msg("Lock release failed")
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, constants.SyncTimeout)
	defer cancel()

	st, products, err := s.plan(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{State: st, Simulated: s.simulate}
	if s.simulate {
		logging.Info().Msg("Simulation complete, nothing written")
		return summary, nil
	}

	result, err := s.engine.Execute(ctx, &st.Plan, s.deleteMissing)
	summary.Result = result
	if err != nil {
		return summary, err
	}

	taxCleared, err := s.engine.RemoveTax(ctx, products)
	summary.TaxCleared = taxCleared
	if err != nil {
		return summary, err
	}

	logging.Info().
		Int("archived", result.Archived.OK).
		Int("updated", result.Updated.OK).
		Int("created", result.Created.OK).
		Int("tax_cleared", taxCleared.OK).
		Msg("Sync complete")
	return summary, nil
}

// RemoveTax snapshots the destination and marks every taxable variant
// tax-free.
func (s *syncer) RemoveTax(ctx context.Context) (engine.Totals, error) {
	products, err := s.catalog.Products(ctx)
	if err != nil {
		return engine.Totals{}, err
	}
	return s.engine.RemoveTax(ctx, products)
}

// Unlock force-clears a stale process lock.
func (s *syncer) Unlock() (bool, error) {
	return s.lock.ForceClear()
}

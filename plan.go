package medisync

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/farmaciaslf/medisync/pkg/catalog"
	"github.com/farmaciaslf/medisync/pkg/constants"
	"github.com/farmaciaslf/medisync/pkg/logging"
	"github.com/farmaciaslf/medisync/pkg/planner"
	"github.com/farmaciaslf/medisync/pkg/state"
)

// Plan snapshots both sides, computes the reconciliation plan and persists
// it.
func (s *syncer) Plan(ctx context.Context) (*state.SyncState, error) {
	st, _, err := s.plan(ctx)
	return st, err
}

// plan is the shared planning pass. It also returns the destination snapshot
// so full syncs can reuse it for the tax pass.
func (s *syncer) plan(ctx context.Context) (*state.SyncState, []catalog.Product, error) {
	items, err := s.source.Inventory(ctx)
	if err != nil {
		return nil, nil, err
	}
	s.writeFeedSnapshot(items)

	products, err := s.catalog.Products(ctx)
	if err != nil {
		return nil, nil, err
	}

	plan := planner.Build(items, products, s.filter)
	logging.Info().
		Int("supplier", len(items)).
		Int("destination", len(products)).
		Int("create", len(plan.ToCreate)).
		Int("update", len(plan.ToUpdate)).
		Int("archive", len(plan.ToArchive)).
		Msg("Reconciliation plan computed")

	st := &state.SyncState{
		Timestamp:    time.Now().UTC(),
		Mode:         s.runMode(),
		MedivenCount: len(items),
		ShopifyCount: len(products),
		Plan:         *plan,
	}
	if err := s.store.Save(st); err != nil {
		return nil, nil, err
	}
	return st, products, nil
}

// runMode labels the persisted plan.
func (s *syncer) runMode() string {
	if s.mode != "" {
		return s.mode
	}
	if s.simulate {
		return "simulate"
	}
	return "apply"
}

// writeFeedSnapshot dumps the raw supplier feed next to the state file. The
// snapshot is diagnostic only, so failures are logged and swallowed.
func (s *syncer) writeFeedSnapshot(items []catalog.SourceItem) {
	if s.snapshotPath == "" {
		return
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err == nil {
		err = os.WriteFile(s.snapshotPath, data, constants.FilePermissions)
	}
	if err != nil {
		logging.Warn().Err(err).Str("path", s.snapshotPath).Msg("Feed snapshot not written")
	}
}

// ExportSKUs returns the supplier SKUs that survive the exclusion filter, in
// feed order.
func (s *syncer) ExportSKUs(ctx context.Context) ([]string, error) {
	items, err := s.source.Inventory(ctx)
	if err != nil {
		return nil, err
	}

	kept, excluded := s.filter.Apply(items)
	skus := make([]string, 0, len(kept))
	for _, item := range kept {
		skus = append(skus, item.SKU())
	}

	logging.Info().Int("kept", len(skus)).Int("excluded", excluded).Msg("SKUs exported")
	return skus, nil
}

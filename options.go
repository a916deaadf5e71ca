package medisync

import (
	"github.com/farmaciaslf/medisync/pkg/engine"
	"github.com/farmaciaslf/medisync/pkg/exclusion"
	"github.com/farmaciaslf/medisync/pkg/state"
)

// Option configures a Syncer.
type Option func(*syncer)

// WithSource sets the supplier inventory source.
func WithSource(source Source) Option {
	return func(s *syncer) { s.source = source }
}

// WithCatalog sets the destination catalog.
func WithCatalog(catalog Catalog) Option {
	return func(s *syncer) { s.catalog = catalog }
}

// WithFilter replaces the default exclusion filter.
func WithFilter(filter *exclusion.Filter) Option {
	return func(s *syncer) {
		if filter != nil {
			s.filter = filter
		}
	}
}

// WithStatePath relocates the persisted plan snapshot.
func WithStatePath(path string) Option {
	return func(s *syncer) { s.store = state.NewStore(path) }
}

// WithLockPath relocates the process lock marker.
func WithLockPath(path string) Option {
	return func(s *syncer) { s.lock = state.NewLock(path) }
}

// WithFeedSnapshot writes the raw supplier feed to path during the plan
// phase, as a diagnostic artifact. Empty disables the snapshot.
func WithFeedSnapshot(path string) Option {
	return func(s *syncer) { s.snapshotPath = path }
}

// WithMode labels the persisted plan with a run mode.
func WithMode(mode string) Option {
	return func(s *syncer) { s.mode = mode }
}

// WithSimulate plans and persists without writing to the destination.
func WithSimulate(simulate bool) Option {
	return func(s *syncer) { s.simulate = simulate }
}

// WithDeleteMissing enables the archival phase during full syncs. Off by
// default: archiving on a bad feed day would take down the whole storefront.
func WithDeleteMissing(deleteMissing bool) Option {
	return func(s *syncer) { s.deleteMissing = deleteMissing }
}

// WithEngineOptions forwards options to the execution engine.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(s *syncer) { s.engineOpts = append(s.engineOpts, opts...) }
}

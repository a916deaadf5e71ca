// Package state persists the computed reconciliation plan between the
// planning phase and the (possibly much later) execution phases, and holds
// the process-level lock marker preventing concurrent full syncs.
//
// The store has single-writer, single-reader, full-replace semantics: saving
// replaces any prior snapshot, and a snapshot is valid for exactly one apply
// cycle.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/farmaciaslf/medisync/pkg/constants"
	"github.com/farmaciaslf/medisync/pkg/errors"
	"github.com/farmaciaslf/medisync/pkg/planner"
)

// SyncState is the durable outcome of one planning phase. The embedded plan
// serializes as the crear / actualizar / archivar arrays of the state schema.
type SyncState struct {
	Timestamp    time.Time `json:"timestamp"`
	Mode         string    `json:"mode"`
	MedivenCount int       `json:"mediven_count"`
	ShopifyCount int       `json:"shopify_count"`
	planner.Plan
}

// Store reads and writes plan snapshots at a fixed path.
type Store struct {
	path string
}

// NewStore creates a store at path, defaulting to the standard location.
func NewStore(path string) *Store {
	if path == "" {
		path = constants.DefaultStatePath
	}
	return &Store{path: path}
}

// Path returns the snapshot location.
func (s *Store) Path() string {
	return s.path
}

// Save writes the snapshot, replacing any prior one.
func (s *Store) Save(st *SyncState) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
			return errors.WrapIO("create", dir, err)
		}
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return errors.WrapParse("json", s.path, err)
	}

	if err := os.WriteFile(s.path, data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", s.path, err)
	}
	return nil
}

// Load reads the current snapshot. A missing snapshot is a missing
// prerequisite: the caller must run the planning phase first.
func (s *Store) Load() (*SyncState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.StateError{
				Path:    s.path,
				Message: "snapshot not found, run the plan phase first",
				Err:     err,
			}
		}
		return nil, errors.WrapIO("read", s.path, err)
	}

	var st SyncState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, errors.WrapParse("json", s.path, err)
	}
	return &st, nil
}

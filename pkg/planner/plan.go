// Package planner computes the reconciliation plan: given a supplier snapshot
// and a destination snapshot it classifies every record into CREATE, UPDATE,
// ARCHIVE or no-op via a keyed outer join on the supplier code and the
// destination variant SKU.
package planner

import "github.com/farmaciaslf/medisync/pkg/catalog"

// Reason explains why a destination product is scheduled for archival.
type Reason string

// Archival reasons.
const (
	ReasonExcluded    Reason = "excluded"
	ReasonNotInSource Reason = "not-in-source"
)

// CreateOp is a product missing from the destination. The JSON tags match the
// persisted state schema consumed by the phase commands.
type CreateOp struct {
	SKU   string `json:"SKU"`
	Title string `json:"Descripcion"`
	Price int    `json:"Precio"`
	Stock int    `json:"Stock"`
}

// UpdateOp is a matched product with at least one field drifted from its
// derived target value. It carries both current and desired values plus
// per-field dirty flags so the execution engine can skip untouched fields.
type UpdateOp struct {
	SKU          string  `json:"SKU"`
	Title        string  `json:"Descripcion"`
	CurrentPrice float64 `json:"Precio_Shopify"`
	NewPrice     int     `json:"Nuevo_Precio"`
	VariantID    string  `json:"variant_id"`
	ProductID    string  `json:"product_id"`
	PriceDirty   bool    `json:"cambio_precio"`
	NameDirty    bool    `json:"cambio_nombre"`
	StatusDirty  bool    `json:"cambio_estado"`
}

// BasicsDirty reports whether the op needs a title/status mutation.
func (op UpdateOp) BasicsDirty() bool {
	return op.NameDirty || op.StatusDirty
}

// ArchiveOp is a destination product scheduled for archival. Status is the
// product's current status, kept so archival stays idempotent: already
// archived products are excluded from execution batches.
type ArchiveOp struct {
	SKU       string         `json:"SKU"`
	ProductID string         `json:"product_id"`
	Title     string         `json:"Descripcion"`
	Reason    Reason         `json:"Motivo"`
	Status    catalog.Status `json:"status_actual"`
}

// Plan is the full reconciliation outcome: three disjoint operation sets
// computed once per run. The JSON tags fix the persisted state schema.
type Plan struct {
	ToCreate  []CreateOp  `json:"crear"`
	ToUpdate  []UpdateOp  `json:"actualizar"`
	ToArchive []ArchiveOp `json:"archivar"`
}

// Empty reports whether the plan contains no operations.
func (p *Plan) Empty() bool {
	return len(p.ToCreate) == 0 && len(p.ToUpdate) == 0 && len(p.ToArchive) == 0
}

// Total returns the number of operations in the plan.
func (p *Plan) Total() int {
	return len(p.ToCreate) + len(p.ToUpdate) + len(p.ToArchive)
}

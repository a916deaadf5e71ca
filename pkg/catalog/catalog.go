// Package catalog defines the snapshot records exchanged between the supplier
// feed, the destination store and the reconciliation planner. Both snapshots
// are produced once per sync run and never mutated afterwards.
package catalog

import "strings"

// Status is the lifecycle state of a destination product.
type Status string

// Destination product statuses.
const (
	StatusActive   Status = "active"
	StatusDraft    Status = "draft"
	StatusArchived Status = "archived"
)

// SourceItem is one inventory record from the supplier feed, keyed by its
// product code. The JSON tags match the supplier wire format.
type SourceItem struct {
	Code              string  `json:"Codigo"`
	Description       string  `json:"Descripcion"`
	Lab               string  `json:"Laboratorio"`
	TherapeuticAction string  `json:"AccionTerapeutica"`
	Equivalent        string  `json:"Equivalente"`
	BasePrice         float64 `json:"Precio"`
}

// Variant is one sellable variant of a destination product. Reconciliation
// matches supplier codes against variant SKUs.
type Variant struct {
	ID      string  `json:"id"`
	SKU     string  `json:"sku"`
	Price   float64 `json:"price"`
	Taxable bool    `json:"taxable"`
}

// Product is one catalog product in the destination store with its variants.
type Product struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	BodyHTML string    `json:"bodyHtml"`
	Status   Status    `json:"status"`
	HasImage bool      `json:"has_image"`
	Variants []Variant `json:"variants"`
}

// SKU returns the item's trimmed product code.
func (s SourceItem) SKU() string {
	return strings.TrimSpace(s.Code)
}

// Archived reports whether the product is already archived.
func (p Product) Archived() bool {
	return p.Status == StatusArchived
}

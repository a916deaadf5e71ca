package planner

import (
	"math"
	"strings"

	"github.com/farmaciaslf/medisync/pkg/catalog"
	"github.com/farmaciaslf/medisync/pkg/exclusion"
	"github.com/farmaciaslf/medisync/pkg/normalize"
)

// priceNoise is the dirty threshold for prices: destination prices within
// less than one unit of the computed price are noise, not signal.
const priceNoise = 1.0

// destRow is one destination variant joined to its parent product.
type destRow struct {
	product *catalog.Product
	variant catalog.Variant
}

// Build computes the reconciliation plan for a supplier snapshot against a
// destination snapshot. filter may be nil, in which case nothing is excluded.
//
// The join is keyed on supplier code vs variant SKU. Blank SKUs never match
// and are never archived. Duplicate destination SKUs are hidden behind the
// first occurrence. Exclusion overrides every other decision: an excluded
// item is never created or updated and is archived even while still present
// in the supplier feed.
func Build(source []catalog.SourceItem, dest []catalog.Product, filter *exclusion.Filter) *Plan {
	plan := &Plan{}

	excluded := map[string]bool{}
	if filter != nil {
		excluded = filter.Codes(source)
	}

	// Destination index, variant grain, first occurrence wins.
	index := make(map[string]destRow, len(dest))
	for i := range dest {
		product := &dest[i]
		for _, variant := range product.Variants {
			sku := strings.TrimSpace(variant.SKU)
			if sku == "" {
				continue
			}
			if _, seen := index[sku]; !seen {
				index[sku] = destRow{product: product, variant: variant}
			}
		}
	}

	// Unfiltered source key set: archival must distinguish "gone from the
	// feed" from "present but forbidden".
	sourceSKUs := make(map[string]bool, len(source))
	for _, item := range source {
		if sku := item.SKU(); sku != "" {
			sourceSKUs[sku] = true
		}
	}

	for _, item := range source {
		sku := item.SKU()
		if sku == "" || excluded[sku] {
			continue
		}

		title := normalize.ProductName(item)
		price := normalize.Price(item.BasePrice)

		row, matched := index[sku]
		if !matched {
			plan.ToCreate = append(plan.ToCreate, CreateOp{
				SKU:   sku,
				Title: title,
				Price: price,
				Stock: 100,
			})
			continue
		}

		priceDirty := math.Abs(row.variant.Price-float64(price)) >= priceNoise
		nameDirty := title != row.product.Title
		statusDirty := row.product.Status != catalog.StatusActive

		if priceDirty || nameDirty || statusDirty {
			plan.ToUpdate = append(plan.ToUpdate, UpdateOp{
				SKU:          sku,
				Title:        title,
				CurrentPrice: row.variant.Price,
				NewPrice:     price,
				VariantID:    row.variant.ID,
				ProductID:    row.product.ID,
				PriceDirty:   priceDirty,
				NameDirty:    nameDirty,
				StatusDirty:  statusDirty,
			})
		}
	}

	// Archival pass over the destination, product grain. A product qualifies
	// when any of its variants carries a forbidden SKU, or when none of its
	// SKUs appear in the (unfiltered) supplier feed.
	seen := make(map[string]bool, len(dest))
	for i := range dest {
		product := &dest[i]
		if product.ID == "" || seen[product.ID] || product.Archived() {
			continue
		}
		for _, variant := range product.Variants {
			sku := strings.TrimSpace(variant.SKU)
			if sku == "" {
				continue
			}

			var reason Reason
			switch {
			case excluded[sku]:
				reason = ReasonExcluded
			case !sourceSKUs[sku]:
				reason = ReasonNotInSource
			default:
				continue
			}

			plan.ToArchive = append(plan.ToArchive, ArchiveOp{
				SKU:       sku,
				ProductID: product.ID,
				Title:     product.Title,
				Reason:    reason,
				Status:    product.Status,
			})
			seen[product.ID] = true
			break
		}
	}

	return plan
}

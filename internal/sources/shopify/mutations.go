package shopify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/farmaciaslf/medisync/pkg/errors"
	"github.com/farmaciaslf/medisync/pkg/logging"
	"github.com/farmaciaslf/medisync/pkg/planner"
)

// mutationResult is the payload of one aliased productUpdate call.
type mutationResult struct {
	Product *struct {
		ID string `json:"id"`
	} `json:"product"`
	UserErrors []userError `json:"userErrors"`
}

// ArchiveProducts archives the given products in a single aliased request and
// returns per-product success and failure counts. A missing alias in the
// response counts as a failure for that product.
func (c *Client) ArchiveProducts(ctx context.Context, ops []planner.ArchiveOp) (ok, failed int, err error) {
	if len(ops) == 0 {
		return 0, 0, nil
	}

	var b strings.Builder
	b.WriteString("mutation {\n")
	for i, op := range ops {
		fmt.Fprintf(&b, "  a%d: productUpdate(input: {id: %s, status: ARCHIVED}) { product { id } userErrors { field message } }\n",
			i, escape(gid(productGIDPrefix, op.ProductID)))
	}
	b.WriteString("}")

	var payload map[string]mutationResult
	if err := c.query(ctx, b.String(), nil, &payload); err != nil {
		return 0, len(ops), err
	}
	return countAliases(payload, ops, func(op planner.ArchiveOp) string { return op.SKU }), countFailures(payload, len(ops)), nil
}

// UpdateBasics sets title and reactivates status on the given products in a
// single aliased request, returning per-product counts.
func (c *Client) UpdateBasics(ctx context.Context, ops []planner.UpdateOp) (ok, failed int, err error) {
	if len(ops) == 0 {
		return 0, 0, nil
	}

	var b strings.Builder
	b.WriteString("mutation {\n")
	for i, op := range ops {
		fmt.Fprintf(&b, "  a%d: productUpdate(input: {id: %s, title: %s, status: ACTIVE}) { product { id } userErrors { field message } }\n",
			i, escape(gid(productGIDPrefix, op.ProductID)), escape(op.Title))
	}
	b.WriteString("}")

	var payload map[string]mutationResult
	if err := c.query(ctx, b.String(), nil, &payload); err != nil {
		return 0, len(ops), err
	}
	return countAliases(payload, ops, func(op planner.UpdateOp) string { return op.SKU }), countFailures(payload, len(ops)), nil
}

// countAliases counts successful aliases a0..aN-1 and logs each failure with
// the record's SKU.
func countAliases[T any](payload map[string]mutationResult, ops []T, sku func(T) string) (ok int) {
	for i, op := range ops {
		result, found := payload[fmt.Sprintf("a%d", i)]
		if !found {
			logging.Warn().Str("sku", sku(op)).Msg("Mutation alias missing from response")
			continue
		}
		if len(result.UserErrors) > 0 {
			logging.Warn().
				Str("sku", sku(op)).
				Str("error", result.UserErrors[0].Message).
				Msg("Mutation rejected")
			continue
		}
		ok++
	}
	return ok
}

// countFailures counts aliases that are missing or carry userErrors.
func countFailures(payload map[string]mutationResult, total int) (failed int) {
	for i := 0; i < total; i++ {
		result, found := payload[fmt.Sprintf("a%d", i)]
		if !found || len(result.UserErrors) > 0 {
			failed++
		}
	}
	return failed
}

const variantPricesMutation = `
mutation($productId: ID!, $variants: [ProductVariantsBulkInput!]!) {
  productVariantsBulkUpdate(productId: $productId, variants: $variants, allowPartialUpdates: true) {
    userErrors {
      field
      message
    }
  }
}`

// UpdateVariantPrices applies the new prices to the product's variants in one
// bulk mutation. All ops must belong to the same product.
func (c *Client) UpdateVariantPrices(ctx context.Context, productID string, ops []planner.UpdateOp) error {
	if len(ops) == 0 {
		return nil
	}

	variants := make([]map[string]any, len(ops))
	for i, op := range ops {
		variants[i] = map[string]any{
			"id":    gid(variantGIDPrefix, op.VariantID),
			"price": strconv.Itoa(op.NewPrice),
		}
	}

	var payload struct {
		Result struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"productVariantsBulkUpdate"`
	}
	variables := map[string]any{"productId": gid(productGIDPrefix, productID), "variants": variants}
	if err := c.query(ctx, variantPricesMutation, variables, &payload); err != nil {
		return err
	}
	return userErrorsErr("productVariantsBulkUpdate", payload.Result.UserErrors)
}

// ClearTaxes marks the given variants of one product as tax-free in one bulk
// mutation.
func (c *Client) ClearTaxes(ctx context.Context, productID string, variantIDs []string) error {
	if len(variantIDs) == 0 {
		return nil
	}

	variants := make([]map[string]any, len(variantIDs))
	for i, id := range variantIDs {
		variants[i] = map[string]any{
			"id":      gid(variantGIDPrefix, id),
			"taxable": false,
		}
	}

	var payload struct {
		Result struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"productVariantsBulkUpdate"`
	}
	variables := map[string]any{"productId": gid(productGIDPrefix, productID), "variants": variants}
	if err := c.query(ctx, variantPricesMutation, variables, &payload); err != nil {
		return err
	}
	return userErrorsErr("productVariantsBulkUpdate", payload.Result.UserErrors)
}

const productCreateMutation = `
mutation($product: ProductCreateInput!) {
  productCreate(product: $product) {
    product {
      id
      variants(first: 1) {
        edges {
          node {
            id
          }
        }
      }
    }
    userErrors {
      field
      message
    }
  }
}`

// CreateShell creates an active product with only its title set and returns
// the product GID and the GID of the default variant the API creates with it.
func (c *Client) CreateShell(ctx context.Context, title string) (productGID, variantGID string, err error) {
	var payload struct {
		Result struct {
			Product *struct {
				ID       string `json:"id"`
				Variants struct {
					Edges []struct {
						Node struct {
							ID string `json:"id"`
						} `json:"node"`
					} `json:"edges"`
				} `json:"variants"`
			} `json:"product"`
			UserErrors []userError `json:"userErrors"`
		} `json:"productCreate"`
	}

	variables := map[string]any{"product": map[string]any{"title": title, "status": "ACTIVE"}}
	if err := c.query(ctx, productCreateMutation, variables, &payload); err != nil {
		return "", "", err
	}
	if err := userErrorsErr("productCreate", payload.Result.UserErrors); err != nil {
		return "", "", err
	}
	if payload.Result.Product == nil || len(payload.Result.Product.Variants.Edges) == 0 {
		return "", "", errors.NewAPIError("shopify", 0, "productCreate returned no product or default variant")
	}
	return payload.Result.Product.ID, payload.Result.Product.Variants.Edges[0].Node.ID, nil
}

const attachVariantMutation = `
mutation($productId: ID!, $variants: [ProductVariantsBulkInput!]!) {
  productVariantsBulkUpdate(productId: $productId, variants: $variants) {
    productVariants {
      id
      inventoryItem {
        id
      }
    }
    userErrors {
      field
      message
    }
  }
}`

// AttachVariant turns the default variant into the sellable one: SKU, price,
// inventory tracking and shipping. It returns the variant's inventory item
// GID, needed for the stock step.
func (c *Client) AttachVariant(ctx context.Context, productGID, variantGID, sku string, price int) (inventoryItemGID string, err error) {
	var payload struct {
		Result struct {
			ProductVariants []struct {
				ID            string `json:"id"`
				InventoryItem struct {
					ID string `json:"id"`
				} `json:"inventoryItem"`
			} `json:"productVariants"`
			UserErrors []userError `json:"userErrors"`
		} `json:"productVariantsBulkUpdate"`
	}

	variables := map[string]any{
		"productId": productGID,
		"variants": []map[string]any{{
			"id":    variantGID,
			"price": strconv.Itoa(price),
			"inventoryItem": map[string]any{
				"sku":              sku,
				"tracked":          true,
				"requiresShipping": true,
			},
		}},
	}
	if err := c.query(ctx, attachVariantMutation, variables, &payload); err != nil {
		return "", err
	}
	if err := userErrorsErr("productVariantsBulkUpdate", payload.Result.UserErrors); err != nil {
		return "", err
	}
	if len(payload.Result.ProductVariants) == 0 || payload.Result.ProductVariants[0].InventoryItem.ID == "" {
		return "", errors.NewAPIError("shopify", 0, "productVariantsBulkUpdate returned no inventory item")
	}
	return payload.Result.ProductVariants[0].InventoryItem.ID, nil
}

const setStockMutation = `
mutation($input: InventorySetQuantitiesInput!) {
  inventorySetQuantities(input: $input) {
    userErrors {
      field
      message
    }
  }
}`

// SetStock sets the available quantity of the inventory item at the
// configured location, overwriting whatever is there.
func (c *Client) SetStock(ctx context.Context, inventoryItemGID string, quantity int) error {
	var payload struct {
		Result struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"inventorySetQuantities"`
	}

	variables := map[string]any{
		"input": map[string]any{
			"name":                  "available",
			"reason":                "correction",
			"ignoreCompareQuantity": true,
			"quantities": []map[string]any{{
				"inventoryItemId": inventoryItemGID,
				"locationId":      gid(locationGIDPrefix, c.config.LocationID),
				"quantity":        quantity,
			}},
		},
	}
	if err := c.query(ctx, setStockMutation, variables, &payload); err != nil {
		return err
	}
	return userErrorsErr("inventorySetQuantities", payload.Result.UserErrors)
}

const createMediaMutation = `
mutation($productId: ID!, $media: [CreateMediaInput!]!) {
  productCreateMedia(productId: $productId, media: $media) {
    media {
      id
    }
    mediaUserErrors {
      field
      message
    }
  }
}`

// AttachDefaultImage attaches the configured placeholder image to the
// product. It reports whether an image was attached; with no image configured
// it is a no-op.
func (c *Client) AttachDefaultImage(ctx context.Context, productGID string) (bool, error) {
	if c.config.DefaultImageURL == "" {
		return false, nil
	}

	var payload struct {
		Result struct {
			Media []struct {
				ID string `json:"id"`
			} `json:"media"`
			MediaUserErrors []userError `json:"mediaUserErrors"`
		} `json:"productCreateMedia"`
	}

	variables := map[string]any{
		"productId": productGID,
		"media": []map[string]any{{
			"originalSource":   c.config.DefaultImageURL,
			"mediaContentType": "IMAGE",
		}},
	}
	if err := c.query(ctx, createMediaMutation, variables, &payload); err != nil {
		return false, err
	}
	if err := userErrorsErr("productCreateMedia", payload.Result.MediaUserErrors); err != nil {
		return false, err
	}
	return true, nil
}

const publishMutation = `
mutation($id: ID!, $input: [PublicationInput!]!) {
  publishablePublish(id: $id, input: $input) {
    userErrors {
      field
      message
    }
  }
}`

// Publish publishes the product to the configured sales channel. It reports
// whether a publication happened; with no channel configured it is a no-op.
func (c *Client) Publish(ctx context.Context, productGID string) (bool, error) {
	if c.config.PublicationID == "" {
		return false, nil
	}

	var payload struct {
		Result struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"publishablePublish"`
	}

	variables := map[string]any{
		"id":    productGID,
		"input": []map[string]any{{"publicationId": c.config.PublicationID}},
	}
	if err := c.query(ctx, publishMutation, variables, &payload); err != nil {
		return false, err
	}
	if err := userErrorsErr("publishablePublish", payload.Result.UserErrors); err != nil {
		return false, err
	}
	return true, nil
}

package shopify

import (
	"context"
	"strconv"
	"strings"

	"github.com/farmaciaslf/medisync/pkg/catalog"
	"github.com/farmaciaslf/medisync/pkg/constants"
	"github.com/farmaciaslf/medisync/pkg/pager"
)

const productsQuery = `
query($pageSize: Int!, $cursor: String) {
  products(first: $pageSize, after: $cursor) {
    pageInfo {
      hasNextPage
      endCursor
    }
    edges {
      node {
        id
        title
        bodyHtml
        status
        media(first: 1) {
          edges {
            node {
              id
            }
          }
        }
        variants(first: 100) {
          edges {
            node {
              id
              sku
              price
              taxable
            }
          }
        }
      }
    }
  }
}`

type productsPayload struct {
	Products struct {
		PageInfo struct {
			HasNextPage bool   `json:"hasNextPage"`
			EndCursor   string `json:"endCursor"`
		} `json:"pageInfo"`
		Edges []struct {
			Node productNode `json:"node"`
		} `json:"edges"`
	} `json:"products"`
}

type productNode struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	BodyHTML string `json:"bodyHtml"`
	Status   string `json:"status"`
	Media    struct {
		Edges []struct {
			Node struct {
				ID string `json:"id"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"media"`
	Variants struct {
		Edges []struct {
			Node struct {
				ID      string `json:"id"`
				SKU     string `json:"sku"`
				Price   string `json:"price"`
				Taxable bool   `json:"taxable"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"variants"`
}

// Products walks the complete store catalog with cursor pagination. The walk
// either returns every product or fails; it never returns a truncated
// snapshot.
func (c *Client) Products(ctx context.Context) ([]catalog.Product, error) {
	return pager.FetchAll(ctx, c.productsPage, pager.WithSource("shopify"))
}

// productsPage fetches one catalog page starting at cursor.
func (c *Client) productsPage(ctx context.Context, cursor string) ([]catalog.Product, string, bool, error) {
	variables := map[string]any{"pageSize": constants.PageSize}
	if cursor != "" {
		variables["cursor"] = cursor
	}

	var payload productsPayload
	if err := c.query(ctx, productsQuery, variables, &payload); err != nil {
		return nil, "", false, err
	}

	products := make([]catalog.Product, 0, len(payload.Products.Edges))
	for _, edge := range payload.Products.Edges {
		products = append(products, toProduct(edge.Node))
	}
	return products, payload.Products.PageInfo.EndCursor, payload.Products.PageInfo.HasNextPage, nil
}

// toProduct narrows a GraphQL node to the snapshot record: bare numeric IDs,
// lowercased status and a media-presence flag instead of the media list.
func toProduct(node productNode) catalog.Product {
	product := catalog.Product{
		ID:       numericID(node.ID),
		Title:    node.Title,
		BodyHTML: node.BodyHTML,
		Status:   catalog.Status(strings.ToLower(node.Status)),
		HasImage: len(node.Media.Edges) > 0,
		Variants: make([]catalog.Variant, 0, len(node.Variants.Edges)),
	}
	for _, edge := range node.Variants.Edges {
		price, _ := strconv.ParseFloat(edge.Node.Price, 64)
		product.Variants = append(product.Variants, catalog.Variant{
			ID:      numericID(edge.Node.ID),
			SKU:     edge.Node.SKU,
			Price:   price,
			Taxable: edge.Node.Taxable,
		})
	}
	return product
}

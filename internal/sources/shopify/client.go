// Package shopify implements the destination store client on top of the
// admin GraphQL API. Reads walk the product catalog with cursor pagination;
// writes are GraphQL mutations, batched with aliases where the API allows it.
package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/farmaciaslf/medisync/internal/transport"
	"github.com/farmaciaslf/medisync/pkg/errors"
)

// tokenHeader carries the admin token on every request.
const tokenHeader = "X-Shopify-Access-Token"

// GID prefixes for the resource kinds the client touches.
const (
	productGIDPrefix  = "gid://shopify/Product/"
	variantGIDPrefix  = "gid://shopify/ProductVariant/"
	locationGIDPrefix = "gid://shopify/Location/"
)

// Config holds the store coordinates and write-path defaults.
type Config struct {
	// Domain is the myshopify.com hostname of the store.
	Domain string

	// Token is the admin API access token.
	Token string

	// APIVersion selects the admin API version, e.g. "2024-10".
	APIVersion string

	// LocationID is the inventory location receiving initial stock. Accepts
	// either the bare numeric ID or the full GID.
	LocationID string

	// PublicationID is the sales channel new products are published to.
	// Empty disables the publication step.
	PublicationID string

	// DefaultImageURL is attached to products created without media.
	// Empty disables the image step.
	DefaultImageURL string
}

// Validate checks that every required field is set.
func (c Config) Validate() error {
	switch {
	case c.Domain == "":
		return errors.NewConfigError("shopify", "store domain is required", nil)
	case c.Token == "":
		return errors.NewConfigError("shopify", "admin token is required", nil)
	case c.APIVersion == "":
		return errors.NewConfigError("shopify", "API version is required", nil)
	}
	return nil
}

// endpoint returns the GraphQL endpoint for the configured store and version.
// A bare hostname gets the https scheme; a domain carrying its own scheme is
// used as-is.
func (c Config) endpoint() string {
	base := c.Domain
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return fmt.Sprintf("%s/admin/api/%s/graphql.json", base, c.APIVersion)
}

// Client talks to one store.
type Client struct {
	config    Config
	transport *transport.Client
}

// New creates a store client. Transport options are forwarded, letting tests
// shorten timeouts and stub the backoff sleeper.
func New(config Config, opts ...transport.Option) *Client {
	return &Client{
		config:    config,
		transport: transport.New("shopify", &transport.HeaderAuth{Header: tokenHeader}, opts...),
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// userError is the per-mutation validation error shape shared by every
// mutation payload.
type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// query executes one GraphQL document and unmarshals the data payload into
// target. Top-level GraphQL errors fail the whole call.
func (c *Client) query(ctx context.Context, query string, variables map[string]any, target any) error {
	if err := c.config.Validate(); err != nil {
		return err
	}

	req := graphQLRequest{Query: query, Variables: variables}
	var resp graphQLResponse
	if err := c.transport.PostJSON(ctx, c.config.endpoint(), req, c.config.Token, nil, &resp); err != nil {
		return err
	}

	if len(resp.Errors) > 0 {
		messages := make([]string, len(resp.Errors))
		for i, e := range resp.Errors {
			messages[i] = e.Message
		}
		return errors.NewAPIError("shopify", 0, strings.Join(messages, "; "))
	}

	if target == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, target); err != nil {
		return errors.WrapParse("json", "graphql data", err)
	}
	return nil
}

// userErrorsErr converts a non-empty userErrors list into a single error.
func userErrorsErr(mutation string, userErrors []userError) error {
	if len(userErrors) == 0 {
		return nil
	}
	messages := make([]string, len(userErrors))
	for i, e := range userErrors {
		if len(e.Field) > 0 {
			messages[i] = fmt.Sprintf("%s: %s", strings.Join(e.Field, "."), e.Message)
		} else {
			messages[i] = e.Message
		}
	}
	return errors.NewAPIError("shopify", 0, mutation+": "+strings.Join(messages, "; "))
}

// gid widens a bare numeric ID to a full GID, passing existing GIDs through.
func gid(prefix, id string) string {
	if strings.HasPrefix(id, "gid://") {
		return id
	}
	return prefix + id
}

// numericID narrows a GID to its trailing numeric ID.
func numericID(gid string) string {
	if idx := strings.LastIndex(gid, "/"); idx >= 0 {
		return gid[idx+1:]
	}
	return gid
}

// escape renders s as a GraphQL string literal.
func escape(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

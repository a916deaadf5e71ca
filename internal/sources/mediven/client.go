// Package mediven implements the supplier feed client. The feed exposes a
// two-step flow: a login exchange that yields a session token and the branch
// identifier, then a single inventory call scoped to that branch returning
// the complete catalog in one response.
package mediven

import (
	"context"
	"net/http"
	"strings"

	"github.com/farmaciaslf/medisync/internal/transport"
	"github.com/farmaciaslf/medisync/pkg/catalog"
	"github.com/farmaciaslf/medisync/pkg/errors"
	"github.com/farmaciaslf/medisync/pkg/logging"
)

// Config holds the supplier endpoints and credentials.
type Config struct {
	LoginURL     string
	InventoryURL string
	User         string
	Password     string
}

// Validate checks that every required field is set.
func (c Config) Validate() error {
	switch {
	case c.LoginURL == "":
		return errors.NewConfigError("mediven", "login URL is required", nil)
	case c.InventoryURL == "":
		return errors.NewConfigError("mediven", "inventory URL is required", nil)
	case c.User == "":
		return errors.NewConfigError("mediven", "user is required", nil)
	case c.Password == "":
		return errors.NewConfigError("mediven", "password is required", nil)
	}
	return nil
}

// Client fetches the supplier catalog.
type Client struct {
	config    Config
	transport *transport.Client
}

// New creates a supplier client. Transport options are forwarded, letting
// tests shorten timeouts and stub the backoff sleeper.
func New(config Config, opts ...transport.Option) *Client {
	return &Client{
		config:    config,
		transport: transport.New("mediven", &transport.BearerAuth{}, opts...),
	}
}

// browserHeaders are required by the supplier's endpoint, which rejects
// requests without the portal origin.
var browserHeaders = http.Header{
	"Origin":  {"https://b2b.mediven.cl:8387"},
	"Referer": {"https://b2b.mediven.cl:8387/"},
}

type loginRequest struct {
	User     string `json:"aUser"`
	Password string `json:"aPassword"`
	Type     int    `json:"aTipo"`
}

type loginResponse struct {
	Token    string `json:"JwtToken"`
	BranchID int    `json:"IdSuc"`
}

type inventoryRequest struct {
	BranchID int `json:"IdSuc"`
}

type inventoryResponse struct {
	Value []catalog.SourceItem `json:"value"`
}

// Login exchanges the credentials for a session token and the branch the
// account is scoped to.
func (c *Client) Login(ctx context.Context) (token string, branchID int, err error) {
	if err := c.config.Validate(); err != nil {
		return "", 0, err
	}

	req := loginRequest{User: c.config.User, Password: c.config.Password, Type: 0}
	var resp loginResponse
	if err := c.transport.PostJSON(ctx, c.config.LoginURL, req, "", browserHeaders, &resp); err != nil {
		return "", 0, err
	}
	if resp.Token == "" {
		return "", 0, &errors.AuthenticationError{
			Service: "mediven",
			Method:  "bearer",
			Message: "login succeeded but returned no token",
		}
	}

	logging.Debug().Int("branch_id", resp.BranchID).Msg("Supplier login successful")
	return resp.Token, resp.BranchID, nil
}

// Inventory logs in and fetches the complete catalog for the branch. Items
// with a blank code are dropped at the edge so downstream phases never see
// them.
func (c *Client) Inventory(ctx context.Context) ([]catalog.SourceItem, error) {
	token, branchID, err := c.Login(ctx)
	if err != nil {
		return nil, err
	}

	var resp inventoryResponse
	if err := c.transport.PostJSON(ctx, c.config.InventoryURL, inventoryRequest{BranchID: branchID}, token, browserHeaders, &resp); err != nil {
		return nil, err
	}

	items := resp.Value[:0:0]
	for _, item := range resp.Value {
		if strings.TrimSpace(item.Code) == "" {
			continue
		}
		items = append(items, item)
	}

	logging.Info().
		Int("total", len(resp.Value)).
		Int("usable", len(items)).
		Msg("Supplier inventory fetched")
	return items, nil
}

package mediven

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmaciaslf/medisync/pkg/errors"
)

func testConfig(server *httptest.Server) Config {
	return Config{
		LoginURL:     server.URL + "/login",
		InventoryURL: server.URL + "/inventory",
		User:         "farmacia",
		Password:     "secret",
	}
}

func TestLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/login", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "farmacia", req["aUser"])
		assert.Equal(t, "secret", req["aPassword"])
		assert.Equal(t, float64(0), req["aTipo"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"JwtToken": "token-123",
			"IdSuc":    7,
		})
	}))
	defer server.Close()

	client := New(testConfig(server))
	token, branchID, err := client.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-123", token)
	assert.Equal(t, 7, branchID)
}

func TestLoginEmptyToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"JwtToken": "", "IdSuc": 7})
	}))
	defer server.Close()

	client := New(testConfig(server))
	_, _, err := client.Login(context.Background())
	require.Error(t, err)

	var authErr *errors.AuthenticationError
	assert.True(t, errors.As(err, &authErr))
}

func TestInventory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			_ = json.NewEncoder(w).Encode(map[string]any{"JwtToken": "token-123", "IdSuc": 7})
		case "/inventory":
			require.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))

			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, float64(7), req["IdSuc"])

			_ = json.NewEncoder(w).Encode(map[string]any{
				"value": []map[string]any{
					{"Codigo": "A1", "Descripcion": "PARACETAMOL 500 MG", "Precio": 1200.0},
					{"Codigo": "  ", "Descripcion": "SIN CODIGO", "Precio": 100.0},
					{"Codigo": "B2", "Descripcion": "IBUPROFENO 400 MG", "Precio": 1500.0},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(testConfig(server))
	items, err := client.Inventory(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "A1", items[0].Code)
	assert.Equal(t, "B2", items[1].Code)
}

func TestConfigValidate(t *testing.T) {
	config := Config{LoginURL: "http://example", InventoryURL: "http://example", User: "u"}
	err := config.Validate()
	require.Error(t, err)

	var configErr *errors.ConfigError
	assert.True(t, errors.As(err, &configErr))
}

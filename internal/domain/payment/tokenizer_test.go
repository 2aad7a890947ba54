package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/storefront-api/internal/config"
)

func newTestClient(serverURL string) *TokenizerClient {
	cfg := &config.Config{}
	cfg.Tokenizer.BaseURL = serverURL
	cfg.Tokenizer.APIKey = "test-key"
	cfg.Tokenizer.Timeout = 2 * time.Second
	return NewTokenizerClient(cfg)
}

func TestExchange_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tokens/exchange", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Nonce string `json:"nonce"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nonce-123", req.Nonce)

		json.NewEncoder(w).Encode(map[string]string{
			"token": "tok_abc",
			"brand": "visa",
			"last4": "4242",
		})
	}))
	defer server.Close()

	details, err := newTestClient(server.URL).Exchange(context.Background(), "nonce-123")

	require.NoError(t, err)
	assert.Equal(t, "tok_abc", details.Token)
	assert.Equal(t, "visa", details.Brand)
	assert.Equal(t, "4242", details.Last4)
}

func TestExchange_GatewayRejectionMessagePassedThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{
				"code":    "card_declined",
				"message": "Your card was declined by the issuing bank.",
			},
		})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Exchange(context.Background(), "nonce-123")

	var tokErr *TokenizationError
	require.ErrorAs(t, err, &tokErr)
	assert.Equal(t, "card_declined", tokErr.Code)
	// the gateway's message must reach the caller word for word
	assert.Equal(t, "Your card was declined by the issuing bank.", tokErr.Message)
}

func TestExchange_ProxyErrorPageTreatedAsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html><body><h1>502 Bad Gateway</h1></body></html>"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Exchange(context.Background(), "nonce-123")

	assert.ErrorIs(t, err, ErrTokenizerUnavailable)
}

func TestExchange_NonJSONClientErrorStillARejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad request"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Exchange(context.Background(), "nonce-123")

	var tokErr *TokenizationError
	require.ErrorAs(t, err, &tokErr)
	assert.Equal(t, "gateway_error", tokErr.Code)
}

func TestExchange_UnreadableSuccessBodyTreatedAsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Exchange(context.Background(), "nonce-123")

	assert.ErrorIs(t, err, ErrTokenizerUnavailable)
}

func TestExchange_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	_, err := newTestClient(server.URL).Exchange(context.Background(), "nonce-123")

	assert.ErrorIs(t, err, ErrTokenizerUnavailable)
}

func TestExchange_EmptyNonce(t *testing.T) {
	_, err := newTestClient("http://localhost:0").Exchange(context.Background(), "")

	var tokErr *TokenizationError
	require.ErrorAs(t, err, &tokErr)
	assert.Equal(t, "missing_nonce", tokErr.Code)
}

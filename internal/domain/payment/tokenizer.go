// internal/domain/payment/tokenizer.go
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/your-org/storefront-api/internal/config"
)

// TokenizationError carries the gateway's own message so it can be shown
// to the shopper verbatim.
type TokenizationError struct {
	Code    string
	Message string
}

func (e *TokenizationError) Error() string {
	return fmt.Sprintf("tokenization failed: %s", e.Message)
}

var ErrTokenizerUnavailable = errors.New("tokenization gateway unavailable")

// TokenizerClient exchanges a widget nonce for a payment-method token with
// the external tokenization gateway. Card fields themselves go from the
// shopper's browser straight to the gateway; this client only ever sees
// the one-time nonce the widget hands back.
type TokenizerClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewTokenizerClient creates a new tokenizer client
func NewTokenizerClient(cfg *config.Config) *TokenizerClient {
	return &TokenizerClient{
		baseURL: cfg.Tokenizer.BaseURL,
		apiKey:  cfg.Tokenizer.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Tokenizer.Timeout,
		},
	}
}

type exchangeRequest struct {
	Nonce string `json:"nonce"`
}

type exchangeResponse struct {
	Token string `json:"token"`
	Brand string `json:"brand"`
	Last4 string `json:"last4"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Exchange trades a one-time widget nonce for card details safe to store.
// A *TokenizationError is returned when the gateway rejects the nonce;
// any other error is a transport failure and retryable.
func (t *TokenizerClient) Exchange(ctx context.Context, nonce string) (*CardDetails, error) {
	if nonce == "" {
		return nil, &TokenizationError{Code: "missing_nonce", Message: "payment nonce is required"}
	}

	body, err := json.Marshal(exchangeRequest{Nonce: nonce})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal exchange request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/tokens/exchange", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenizerUnavailable, err)
	}
	defer resp.Body.Close()

	// proxies in front of the gateway can answer with HTML bodies, so the
	// status checks cannot depend on a decodable payload
	var decoded exchangeResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&decoded)

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: gateway returned status %d", ErrTokenizerUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		if decodeErr == nil && decoded.Error != nil {
			return nil, &TokenizationError{Code: decoded.Error.Code, Message: decoded.Error.Message}
		}
		return nil, &TokenizationError{
			Code:    "gateway_error",
			Message: fmt.Sprintf("gateway returned status %d", resp.StatusCode),
		}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: unreadable gateway response: %v", ErrTokenizerUnavailable, decodeErr)
	}

	if decoded.Token == "" {
		return nil, &TokenizationError{Code: "empty_token", Message: "gateway returned no token"}
	}

	return &CardDetails{
		Token: decoded.Token,
		Brand: decoded.Brand,
		Last4: decoded.Last4,
	}, nil
}

package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"rewear/config"
)

// ProviderClient talks to the card payment provider's REST API. The
// provider follows the Razorpay wire contract: orders are created
// server-side in paise, and captured payments are verified with an
// HMAC-SHA256 signature over "<order_id>|<payment_id>".
type ProviderClient struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
}

// NewProviderClient creates a payment provider client
func NewProviderClient(cfg config.PaymentConfig) *ProviderClient {
	return &ProviderClient{
		baseURL:   cfg.ProviderBaseURL,
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// KeyID returns the public key id handed to the checkout frontend
func (pc *ProviderClient) KeyID() string {
	return pc.keyID
}

type providerOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type providerOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// CreateProviderOrder creates a remote payment order for a rupee amount
// and returns the provider's order id.
func (pc *ProviderClient) CreateProviderOrder(ctx context.Context, amountRupees int64, receipt string) (string, error) {
	body, err := json.Marshal(providerOrderRequest{
		Amount:   amountRupees * 100, // provider expects paise
		Currency: "INR",
		Receipt:  receipt,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		pc.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(pc.keyID, pc.keySecret)

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("provider order request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("provider order request failed: status %d", resp.StatusCode)
	}

	var out providerOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode provider response: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("provider returned empty order id")
	}
	return out.ID, nil
}

// VerifyPaymentSignature checks the checkout callback signature. The
// comparison is constant time.
func (pc *ProviderClient) VerifyPaymentSignature(providerOrderID, providerPaymentID, signature string) bool {
	return VerifySignature(providerOrderID, providerPaymentID, signature, pc.keySecret)
}

// VerifySignature validates an HMAC-SHA256 hex signature over
// "<order_id>|<payment_id>" with the shared secret.
func VerifySignature(providerOrderID, providerPaymentID, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(providerOrderID + "|" + providerPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignPayment produces the signature the provider would send for a
// given order/payment pair. Used by tests and the demo fixtures.
func SignPayment(providerOrderID, providerPaymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(providerOrderID + "|" + providerPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

package providers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
)

// Amounts that make a mock adapter decline, so failure paths can be driven
// without live credentials.
const (
	MockInsufficientFundsAmount int64 = 40001
	MockDeclinedAmount          int64 = 40002
)

// MockRef is the deterministic provider reference a mock adapter assigns to
// an intent.
func MockRef(prefix, intentID string) string {
	sum := sha256.Sum256([]byte(intentID))
	return prefix + "_mock_" + hex.EncodeToString(sum[:])[:16]
}

// SignPayload returns the hex HMAC-SHA256 of payload, the signature format
// every adapter verifies.
func SignPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func verifySignature(secret string, payload []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(SignPayload(secret, payload))
	return hmac.Equal(got, want)
}

func mockDecline(provider domain.Provider, amount int64) error {
	switch amount {
	case MockInsufficientFundsAmount:
		return &application.ProviderError{
			Provider:   provider,
			Code:       "insufficient_funds",
			Message:    "mock account has insufficient funds",
			StatusCode: http.StatusPaymentRequired,
		}
	case MockDeclinedAmount:
		return &application.ProviderError{
			Provider:   provider,
			Code:       "payment_rejected",
			Message:    "mock provider rejected the payment",
			StatusCode: http.StatusPaymentRequired,
		}
	}
	return nil
}

func mockRefundRef(prefix string, req application.ProviderRefundRequest) string {
	key := req.IdempotencyKey
	if key == "" {
		key = fmt.Sprintf("%s:%d", req.ProviderRef, req.Amount)
	}
	return MockRef(prefix+"_refund", key)
}

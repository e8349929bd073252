package providers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/config"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
)

const mockIBAN = "AO06 0000 0000 0000 0000 0000 0"

var errBankTransferWebhook = errors.New("bank transfers are confirmed by an operator, not by webhook")

// BankTransferAdapter hands the customer wire instructions. There is no
// automated confirmation: the intent waits in awaiting_confirmation until an
// operator confirms the transfer arrived.
type BankTransferAdapter struct {
	iban string
	live bool
}

func NewBankTransferAdapter(cfg config.ProviderConfig) *BankTransferAdapter {
	if cfg.AccountIBAN == "" {
		return &BankTransferAdapter{iban: mockIBAN}
	}
	return &BankTransferAdapter{iban: cfg.AccountIBAN, live: true}
}

func (a *BankTransferAdapter) CreatePayment(_ context.Context, req application.ProviderPaymentRequest) (*application.ProviderPaymentResult, error) {
	ref := transferReference(req.IntentID)
	if !a.live {
		ref = MockRef("bt", req.IntentID)
	}
	reference := req.OrderNumber
	if reference == "" {
		reference = ref
	}
	return &application.ProviderPaymentResult{
		ProviderRef: ref,
		Status:      domain.PaymentAwaitingConfirmation,
		NextAction: map[string]string{
			domain.MetaAccountIBAN:       a.iban,
			domain.MetaTransferReference: reference,
		},
	}, nil
}

// CheckStatus always answers awaiting_confirmation: nothing on this rail
// observes incoming wires.
func (a *BankTransferAdapter) CheckStatus(_ context.Context, _ string) (domain.PaymentStatus, error) {
	return domain.PaymentAwaitingConfirmation, nil
}

// Refund records the operator-issued wire back to the customer.
func (a *BankTransferAdapter) Refund(_ context.Context, req application.ProviderRefundRequest) (*application.ProviderRefundResult, error) {
	return &application.ProviderRefundResult{
		RefundRef:  mockRefundRef("bt", req),
		RefundedAt: time.Now().UTC(),
	}, nil
}

func (a *BankTransferAdapter) VerifyWebhook(_ []byte, _ string) bool {
	return false
}

func DecodeBankTransferWebhook(_ []byte) (*application.WebhookEvent, error) {
	return nil, errBankTransferWebhook
}

func transferReference(intentID string) string {
	sum := sha256.Sum256([]byte(intentID))
	return "BT" + strings.ToUpper(hex.EncodeToString(sum[:])[:12])
}

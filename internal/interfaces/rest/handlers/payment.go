package handlers

import (
	"net/http"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/api"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application/services"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/interfaces/rest"
)

const operatorHeader = "X-Operator-ID"

func (h *Handlers) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req api.CreatePaymentRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	payment, err := h.paymentService.CreatePayment(r.Context(), services.CreatePaymentCommand{
		OrderID:        req.OrderID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Provider:       req.Provider,
		Description:    req.Description,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rest.WriteJSON(w, r, http.StatusCreated, rest.ToAPIPayment(payment))
}

// RequestOrderPayment starts another attempt for an order, priced from the
// order itself.
func (h *Handlers) RequestOrderPayment(w http.ResponseWriter, r *http.Request) {
	orderID, err := rest.PathParam(r, "order_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req api.RequestPaymentRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	payment, err := h.orderService.RequestPayment(r.Context(), orderID, req.Provider, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rest.WriteJSON(w, r, http.StatusCreated, rest.ToAPIPayment(payment))
}

func (h *Handlers) ListOrderPayments(w http.ResponseWriter, r *http.Request) {
	orderID, err := rest.PathParam(r, "order_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	payments, err := h.queryService.ListPayments(r.Context(), orderID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rest.WriteJSON(w, r, http.StatusOK, rest.ToAPIPayments(payments))
}

func (h *Handlers) GetPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, err := rest.PathParam(r, "payment_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	payment, err := h.queryService.GetPayment(r.Context(), paymentID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rest.WriteJSON(w, r, http.StatusOK, rest.ToAPIPayment(payment))
}

// RefreshPaymentStatus polls the provider for an open intent.
func (h *Handlers) RefreshPaymentStatus(w http.ResponseWriter, r *http.Request) {
	paymentID, err := rest.PathParam(r, "payment_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	payment, err := h.paymentService.CheckStatus(r.Context(), paymentID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rest.WriteJSON(w, r, http.StatusOK, rest.ToAPIPayment(payment))
}

func (h *Handlers) RefundPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, err := rest.PathParam(r, "payment_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req api.RefundRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	payment, err := h.paymentService.Refund(r.Context(), services.RefundCommand{
		PaymentID: paymentID,
		Amount:    req.Amount,
		Reason:    req.Reason,
		Actor:     req.Actor,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rest.WriteJSON(w, r, http.StatusOK, rest.ToAPIPayment(payment))
}

// ConfirmBankTransfer is the operator action that completes a bank
// transfer. The operator identity comes from the gateway in front of the
// engine.
func (h *Handlers) ConfirmBankTransfer(w http.ResponseWriter, r *http.Request) {
	paymentID, err := rest.PathParam(r, "payment_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req api.ConfirmTransferRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	payment, err := h.paymentService.ConfirmManualTransfer(r.Context(), services.ConfirmTransferCommand{
		PaymentID:     paymentID,
		ConfirmedBy:   r.Header.Get(operatorHeader),
		BankReference: req.BankReference,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rest.WriteJSON(w, r, http.StatusOK, rest.ToAPIPayment(payment))
}

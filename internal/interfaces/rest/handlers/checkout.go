package handlers

import (
	"net/http"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/api"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application/services"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/interfaces/rest"
)

// Checkout creates the order. When a provider was requested and the payment
// call failed, the order still exists; the error carries the payment failure.
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	cartID, err := rest.PathParam(r, "cart_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req api.CheckoutRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.checkoutService.Checkout(r.Context(), services.CheckoutCommand{
		CartID:         cartID,
		Provider:       req.Provider,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		if result != nil && result.Order != nil {
			h.logger.Info("order created but payment failed",
				"order_id", result.Order.ID,
				"error", err,
			)
		}
		h.fail(w, r, err)
		return
	}

	out := api.CheckoutResult{Order: rest.ToAPIOrder(result.Order)}
	if result.Payment != nil {
		p := rest.ToAPIPayment(result.Payment)
		out.Payment = &p
	}
	rest.WriteJSON(w, r, http.StatusCreated, out)
}

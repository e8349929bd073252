package handlers

import (
	"io"
	"net/http"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/api"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/infrastructure/providers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

const maxWebhookBody = 1 << 20

// Webhook is the ingress for provider callbacks. The body is read raw and
// handed over unparsed; rejected, unmatched and replayed deliveries are
// still acknowledged so the provider stops retrying.
func (h *Handlers) Webhook(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	provider, err := domain.ParseProvider(name)
	if err != nil {
		h.fail(w, r, domain.NewNotFoundError("webhook provider", name))
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Warn("webhook body unreadable", "provider", provider, "error", err)
		h.fail(w, r, domain.NewInvalidInputError("unreadable webhook body"))
		return
	}

	outcome, err := h.paymentService.HandleWebhook(r.Context(), name, payload, r.Header.Get(providers.SignatureHeader(provider)))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, api.WebhookAck{Received: true, Outcome: string(outcome)})
}

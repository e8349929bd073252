// Package handlers binds HTTP requests to the application services.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application/services"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/interfaces/rest"
)

type Handlers struct {
	cartService     *services.CartService
	checkoutService *services.CheckoutService
	orderService    *services.OrderService
	paymentService  *services.PaymentService
	queryService    *services.QueryService
	logger          *slog.Logger
}

func NewHandlers(
	cartService *services.CartService,
	checkoutService *services.CheckoutService,
	orderService *services.OrderService,
	paymentService *services.PaymentService,
	queryService *services.QueryService,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		cartService:     cartService,
		checkoutService: checkoutService,
		orderService:    orderService,
		paymentService:  paymentService,
		queryService:    queryService,
		logger:          logger,
	}
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	rest.WriteError(w, r, err, h.logger)
}

// Health answers liveness probes.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

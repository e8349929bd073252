// Package router assembles the HTTP surface of the engine.
package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/api"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/interfaces/rest/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Options struct {
	RequestTimeout time.Duration
	// ServiceName labels the spans produced for every request.
	ServiceName string
}

// New builds the root handler. Every /v1 request is validated against the
// OpenAPI document before it reaches a handler; webhooks are not, their
// bodies belong to the providers.
func New(ctx context.Context, h *handlers.Handlers, opts Options, logger *slog.Logger) (http.Handler, error) {
	doc, err := api.Spec(ctx)
	if err != nil {
		return nil, err
	}
	validate, err := middleware.OpenAPIValidator(doc, logger)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())
	api.RegisterDocsRoutes(r)

	r.Post("/webhooks/{provider}", h.Webhook)

	r.Route("/v1", func(r chi.Router) {
		r.Use(validate)

		r.Post("/carts", h.CreateCart)
		r.Route("/carts/{cart_id}", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/items", h.AddCartItem)
			r.Patch("/items/{line_id}", h.UpdateCartItem)
			r.Delete("/items/{line_id}", h.RemoveCartItem)
			r.Post("/coupon", h.ApplyCoupon)
			r.Delete("/coupon", h.RemoveCoupon)
			r.Put("/currency", h.SetCartCurrency)
			r.Put("/delivery", h.SetCartDelivery)
			r.Post("/checkout", h.Checkout)
		})

		r.Route("/orders/{order_id}", func(r chi.Router) {
			r.Get("/", h.GetOrder)
			r.Get("/events", h.ListOrderEvents)
			r.Get("/payments", h.ListOrderPayments)
			r.Post("/payments", h.RequestOrderPayment)
			r.Post("/process", h.StartProcessing)
			r.Post("/assign", h.AssignOrder)
			r.Post("/start", h.StartWork)
			r.Post("/complete", h.CompleteOrder)
			r.Post("/dispatch", h.DispatchOrder)
			r.Post("/deliver", h.DeliverOrder)
			r.Post("/cancel", h.CancelOrder)
		})

		r.Post("/payments", h.CreatePayment)
		r.Route("/payments/{payment_id}", func(r chi.Router) {
			r.Get("/", h.GetPayment)
			r.Post("/status", h.RefreshPaymentStatus)
			r.Post("/refunds", h.RefundPayment)
		})

		r.Post("/admin/payments/{payment_id}/confirm", h.ConfirmBankTransfer)
	})

	name := opts.ServiceName
	if name == "" {
		name = "commerce-engine"
	}
	return otelhttp.NewHandler(r, name), nil
}

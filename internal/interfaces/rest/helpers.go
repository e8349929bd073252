package rest

import (
	"errors"
	"io"
	"net/http"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/api"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/oapi-codegen/runtime"
)

// WriteJSON writes data wrapped in the success envelope.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	render.Status(r, status)
	render.JSON(w, r, api.Envelope{Success: true, Data: data})
}

// DecodeJSON reads the request body into dst. An empty body leaves dst as
// is, the OpenAPI validator having already rejected it where a body is
// required.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return domain.NewInvalidInputError("malformed request body: %v", err)
	}
	return nil
}

// PathParam binds a required path parameter.
func PathParam(r *http.Request, name string) (string, error) {
	var value string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &value, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return "", domain.NewInvalidInputError("invalid path parameter %s: %v", name, err)
	}
	return value, nil
}

// QueryBool binds an optional boolean query parameter.
func QueryBool(r *http.Request, name string) (bool, error) {
	var value *bool
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &value); err != nil {
		return false, domain.NewInvalidInputError("invalid query parameter %s: %v", name, err)
	}
	return value != nil && *value, nil
}

func ToAPICart(c *domain.Cart) api.Cart {
	out := api.Cart{
		ID:             c.ID,
		OwnerID:        c.OwnerID,
		Currency:       string(c.Currency),
		Lines:          make([]api.CartLine, 0, len(c.Lines)),
		Subtotal:       c.Subtotal,
		DiscountAmount: c.DiscountAmount,
		TaxAmount:      c.TaxAmount,
		DeliveryMethod: string(c.DeliveryMethod),
		DeliveryCost:   c.DeliveryCost,
		Total:          c.Total,
		Active:         c.Active,
		ExpiresAt:      c.ExpiresAt,
		UpdatedAt:      c.UpdatedAt,
	}
	if c.Coupon != nil {
		out.CouponCode = c.Coupon.Code
	}
	for _, l := range c.Lines {
		out.Lines = append(out.Lines, api.CartLine{
			ID:            l.ID,
			ProductID:     l.ProductID,
			Variant:       l.Variant,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice,
			TaxRate:       l.TaxRate.String(),
			TotalPrice:    l.TotalPrice,
			TaxAmount:     l.TaxAmount,
			ScheduledDate: l.ScheduledDate,
			Options:       l.Options,
		})
	}
	return out
}

func ToAPIOrder(o *domain.Order) api.Order {
	out := api.Order{
		ID:                 o.ID,
		OrderNumber:        o.OrderNumber,
		CartID:             o.CartID,
		OwnerID:            o.OwnerID,
		Status:             string(o.Status),
		Currency:           string(o.Currency),
		Subtotal:           o.Subtotal,
		DiscountAmount:     o.DiscountAmount,
		TaxAmount:          o.TaxAmount,
		DeliveryMethod:     string(o.DeliveryMethod),
		DeliveryCost:       o.DeliveryCost,
		Total:              o.Total,
		CouponCode:         o.CouponCode,
		PaymentReference:   o.PaymentReference,
		CancellationReason: o.CancellationReason,
		Fulfillment: api.Fulfillment{
			AssignedTeam:    o.AssignedTeam,
			ScheduledStart:  o.ScheduledStart,
			ScheduledEnd:    o.ScheduledEnd,
			TrackingNumber:  o.TrackingNumber,
			Carrier:         o.Carrier,
			CompletionNotes: o.CompletionNotes,
		},
		Items:              make([]api.OrderItem, 0, len(o.Items)),
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
		PaymentConfirmedAt: o.PaymentConfirmedAt,
		CancelledAt:        o.CancelledAt,
	}
	if o.PaymentMethod != nil {
		method := string(*o.PaymentMethod)
		out.PaymentMethod = &method
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, api.OrderItem{
			ID:            it.ID,
			ProductID:     it.ProductID,
			Variant:       it.Variant,
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
			TotalPrice:    it.TotalPrice,
			TaxAmount:     it.TaxAmount,
			ScheduledDate: it.ScheduledDate,
			Options:       it.Options,
		})
	}
	return out
}

func ToAPIOrderEvents(events []*domain.OrderEvent) []api.OrderEvent {
	out := make([]api.OrderEvent, 0, len(events))
	for _, e := range events {
		out = append(out, api.OrderEvent{
			ID:          e.ID,
			Type:        string(e.Type),
			Title:       e.Title,
			Description: e.Description,
			Actor:       e.Actor,
			Metadata:    e.Metadata,
			CreatedAt:   e.CreatedAt,
		})
	}
	return out
}

// ToAPIPayment renders an intent for the customer. Provider failure text is
// replaced with a public message.
func ToAPIPayment(p *domain.PaymentIntent) api.Payment {
	out := api.Payment{
		ID:             p.ID,
		OrderID:        p.OrderID,
		Amount:         p.Amount,
		Currency:       string(p.Currency),
		Provider:       string(p.Provider),
		Status:         string(p.Status),
		ProviderRef:    p.ProviderRef,
		RefundedAmount: p.RefundedAmount,
		FailureCode:    p.FailureCode,
		ConfirmedBy:    p.ConfirmedBy,
		ConfirmedAt:    p.ConfirmedAt,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		ExpiresAt:      p.ExpiresAt,
	}
	if p.IsOpen() {
		out.NextAction = p.NextAction()
	}
	if p.FailureCode != nil {
		out.FailureMessage = application.PublicProviderMessage(*p.FailureCode)
	}
	return out
}

func ToAPIPayments(intents []*domain.PaymentIntent) []api.Payment {
	out := make([]api.Payment, 0, len(intents))
	for _, p := range intents {
		out = append(out, ToAPIPayment(p))
	}
	return out
}

package handlers

import (
	"net/http"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/api"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application/services"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/interfaces/rest"
)

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := rest.PathParam(r, "order_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	order, err := h.queryService.GetOrder(r.Context(), orderID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rest.WriteJSON(w, r, http.StatusOK, rest.ToAPIOrder(order))
}

func (h *Handlers) ListOrderEvents(w http.ResponseWriter, r *http.Request) {
	orderID, err := rest.PathParam(r, "order_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	visibleOnly, err := rest.QueryBool(r, "customer_visible_only")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	events, err := h.queryService.ListEvents(r.Context(), orderID, visibleOnly)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rest.WriteJSON(w, r, http.StatusOK, rest.ToAPIOrderEvents(events))
}

func (h *Handlers) StartProcessing(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(orderID string) (*domain.Order, error) {
		var req api.ActorRequest
		if err := rest.DecodeJSON(r, &req); err != nil {
			return nil, err
		}
		return h.orderService.StartProcessing(r.Context(), orderID, req.Actor)
	})
}

func (h *Handlers) AssignOrder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(orderID string) (*domain.Order, error) {
		var req api.AssignRequest
		if err := rest.DecodeJSON(r, &req); err != nil {
			return nil, err
		}
		return h.orderService.Assign(r.Context(), services.AssignCommand{
			OrderID:        orderID,
			Team:           req.Team,
			ScheduledStart: req.ScheduledStart,
			ScheduledEnd:   req.ScheduledEnd,
			Actor:          req.Actor,
		})
	})
}

func (h *Handlers) StartWork(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(orderID string) (*domain.Order, error) {
		var req api.ActorRequest
		if err := rest.DecodeJSON(r, &req); err != nil {
			return nil, err
		}
		return h.orderService.StartWork(r.Context(), orderID, req.Actor)
	})
}

func (h *Handlers) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(orderID string) (*domain.Order, error) {
		var req api.CompleteRequest
		if err := rest.DecodeJSON(r, &req); err != nil {
			return nil, err
		}
		return h.orderService.Complete(r.Context(), services.CompleteCommand{
			OrderID: orderID,
			Notes:   req.Notes,
			Actor:   req.Actor,
		})
	})
}

func (h *Handlers) DispatchOrder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(orderID string) (*domain.Order, error) {
		var req api.DispatchRequest
		if err := rest.DecodeJSON(r, &req); err != nil {
			return nil, err
		}
		return h.orderService.Dispatch(r.Context(), services.DispatchCommand{
			OrderID:        orderID,
			TrackingNumber: req.TrackingNumber,
			Carrier:        req.Carrier,
			Actor:          req.Actor,
		})
	})
}

func (h *Handlers) DeliverOrder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(orderID string) (*domain.Order, error) {
		var req api.ActorRequest
		if err := rest.DecodeJSON(r, &req); err != nil {
			return nil, err
		}
		return h.orderService.Deliver(r.Context(), orderID, req.Actor)
	})
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(orderID string) (*domain.Order, error) {
		var req api.CancelRequest
		if err := rest.DecodeJSON(r, &req); err != nil {
			return nil, err
		}
		return h.orderService.Cancel(r.Context(), services.CancelCommand{
			OrderID: orderID,
			Reason:  req.Reason,
			Actor:   req.Actor,
		})
	})
}

func (h *Handlers) transition(w http.ResponseWriter, r *http.Request, fn func(orderID string) (*domain.Order, error)) {
	orderID, err := rest.PathParam(r, "order_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	order, err := fn(orderID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rest.WriteJSON(w, r, http.StatusOK, rest.ToAPIOrder(order))
}

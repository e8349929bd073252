package handlers

import (
	"net/http"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/api"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/interfaces/rest"
)

func (h *Handlers) CreateCart(w http.ResponseWriter, r *http.Request) {
	var req api.CreateCartRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	cart, err := h.cartService.CreateCart(r.Context(), req.OwnerID, req.Currency)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rest.WriteJSON(w, r, http.StatusCreated, rest.ToAPICart(cart))
}

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	cartID, err := rest.PathParam(r, "cart_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	cart, err := h.cartService.GetCart(r.Context(), cartID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rest.WriteJSON(w, r, http.StatusOK, rest.ToAPICart(cart))
}

func (h *Handlers) AddCartItem(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(w, r, func(cartID string) (*domain.Cart, error) {
		var req api.AddItemRequest
		if err := rest.DecodeJSON(r, &req); err != nil {
			return nil, err
		}
		return h.cartService.AddItem(r.Context(), cartID, req.ProductID, req.Quantity, req.Options)
	})
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(w, r, func(cartID string) (*domain.Cart, error) {
		lineID, err := rest.PathParam(r, "line_id")
		if err != nil {
			return nil, err
		}
		var req api.UpdateItemRequest
		if err := rest.DecodeJSON(r, &req); err != nil {
			return nil, err
		}
		return h.cartService.UpdateQuantity(r.Context(), cartID, lineID, req.Quantity)
	})
}

func (h *Handlers) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(w, r, func(cartID string) (*domain.Cart, error) {
		lineID, err := rest.PathParam(r, "line_id")
		if err != nil {
			return nil, err
		}
		return h.cartService.UpdateQuantity(r.Context(), cartID, lineID, 0)
	})
}

// ApplyCoupon answers 200 for a rejected code too; the result says why.
func (h *Handlers) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	cartID, err := rest.PathParam(r, "cart_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req api.ApplyCouponRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	result, cart, err := h.cartService.ApplyCoupon(r.Context(), cartID, req.Code)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rest.WriteJSON(w, r, http.StatusOK, api.CouponResult{
		Valid:          result.Valid,
		DiscountAmount: result.DiscountAmount,
		Error:          result.Error,
		Cart:           rest.ToAPICart(cart),
	})
}

func (h *Handlers) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(w, r, func(cartID string) (*domain.Cart, error) {
		return h.cartService.RemoveCoupon(r.Context(), cartID)
	})
}

func (h *Handlers) SetCartCurrency(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(w, r, func(cartID string) (*domain.Cart, error) {
		var req api.SetCurrencyRequest
		if err := rest.DecodeJSON(r, &req); err != nil {
			return nil, err
		}
		return h.cartService.SetCurrency(r.Context(), cartID, req.Currency)
	})
}

func (h *Handlers) SetCartDelivery(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(w, r, func(cartID string) (*domain.Cart, error) {
		var req api.SetDeliveryRequest
		if err := rest.DecodeJSON(r, &req); err != nil {
			return nil, err
		}
		return h.cartService.SetDelivery(r.Context(), cartID, req.Method)
	})
}

func (h *Handlers) mutateCart(w http.ResponseWriter, r *http.Request, fn func(cartID string) (*domain.Cart, error)) {
	cartID, err := rest.PathParam(r, "cart_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	cart, err := fn(cartID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rest.WriteJSON(w, r, http.StatusOK, rest.ToAPICart(cart))
}

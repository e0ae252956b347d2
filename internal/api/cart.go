package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"storefront-bff/internal/cart"
	"storefront-bff/internal/models"
)

type CartResponse struct {
	Items    []models.CartLine `json:"items"`
	Count    int               `json:"count"`
	Subtotal decimal.Decimal   `json:"subtotal"`
}

func cartResponse(s cart.State) CartResponse {
	items := s.Lines
	if items == nil {
		items = []models.CartLine{}
	}
	return CartResponse{Items: items, Count: s.Count(), Subtotal: s.Subtotal()}
}

type addItemRequest struct {
	ProductID string `json:"productId"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, cartResponse(workspace(r).Cart.State()))
}

// AddItem needs a signed-in visitor; anonymous visitors get an info
// notification and a redirect hint instead.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	ws := workspace(r)
	if !ws.Session.Snapshot().Authenticated() {
		ws.Notifications.Notify("Please log in to add items to your cart", models.NotificationInfo)
		respondJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:    "login required",
			Code:     http.StatusUnauthorized,
			Redirect: "/login",
		})
		return
	}

	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.ProductID) == "" {
		respondError(w, http.StatusUnprocessableEntity, "productId is required")
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		h.upstreamFailed(w, r, "", err)
		return
	}
	if product == nil {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}

	state := ws.Cart.Dispatch(cart.AddItem{Product: *product})
	ws.Notifications.Notify(product.Name+" added to cart", models.NotificationSuccess)
	respondJSON(w, http.StatusOK, cartResponse(state))
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Quantity == nil {
		respondError(w, http.StatusUnprocessableEntity, "quantity is required")
		return
	}

	state := workspace(r).Cart.Dispatch(cart.UpdateQuantity{ID: chi.URLParam(r, "id"), Quantity: *req.Quantity})
	respondJSON(w, http.StatusOK, cartResponse(state))
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	state := workspace(r).Cart.Dispatch(cart.RemoveItem{ID: chi.URLParam(r, "id")})
	respondJSON(w, http.StatusOK, cartResponse(state))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	state := workspace(r).Cart.Dispatch(cart.ClearCart{})
	respondJSON(w, http.StatusOK, cartResponse(state))
}

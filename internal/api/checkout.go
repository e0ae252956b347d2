package api

import (
	"errors"
	"net/http"

	"storefront-bff/internal/checkout"
	"storefront-bff/internal/models"
	"storefront-bff/internal/telemetry"
)

type paymentRequest struct {
	Method models.PaymentMethod `json:"method"`
}

// GetCheckout enters checkout. An empty cart sends the visitor back to the
// product list; a finished checkout with new items starts over.
func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	ws := workspace(r)
	flow := ws.Checkout()
	if flow.Step() == checkout.StepComplete && !ws.Cart.State().Empty() {
		flow = ws.RestartCheckout()
	}

	if flow.Enter() {
		respondJSON(w, http.StatusConflict, ErrorResponse{
			Error:    "Your cart is empty.",
			Code:     http.StatusConflict,
			Redirect: "/products/all",
		})
		return
	}
	respondJSON(w, http.StatusOK, flow.Summary())
}

func (h *Handler) SubmitDetails(w http.ResponseWriter, r *http.Request) {
	var details models.ShippingDetails
	if err := decodeJSON(w, r, &details); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	flow := workspace(r).Checkout()
	fields, err := flow.SubmitDetails(details)
	switch {
	case errors.Is(err, checkout.ErrInvalidDetails):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "Please fill in all required fields correctly.",
			Code:   http.StatusUnprocessableEntity,
			Fields: fields,
		})
	case err != nil:
		h.checkoutError(w, err)
	default:
		respondJSON(w, http.StatusOK, flow.Summary())
	}
}

func (h *Handler) CheckoutBack(w http.ResponseWriter, r *http.Request) {
	flow := workspace(r).Checkout()
	if err := flow.Back(); err != nil {
		h.checkoutError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, flow.Summary())
}

func (h *Handler) AbandonCheckout(w http.ResponseWriter, r *http.Request) {
	workspace(r).AbandonCheckout()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PlacePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	flow := workspace(r).Checkout()
	result, err := flow.PlaceOrder(r.Context(), req.Method)
	switch {
	case errors.Is(err, checkout.ErrPlacementInFlight):
		telemetry.OrderResult("duplicate")
		h.checkoutError(w, err)
	case errors.Is(err, checkout.ErrInvalidPayment), errors.Is(err, checkout.ErrWrongStep), errors.Is(err, checkout.ErrEmptyCart):
		h.checkoutError(w, err)
	case err != nil:
		telemetry.OrderResult("failed")
		respondError(w, http.StatusBadGateway, "An error occurred while placing your order. Please try again.")
	case !result.Success:
		telemetry.OrderResult("rejected")
		respondError(w, http.StatusBadGateway, "Failed to place order. Please try again.")
	default:
		telemetry.OrderResult("placed")
		respondJSON(w, http.StatusOK, flow.Summary())
	}
}

func (h *Handler) checkoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, checkout.ErrPlacementInFlight):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, checkout.ErrWrongStep), errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, checkout.ErrInvalidPayment):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("Checkout error", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

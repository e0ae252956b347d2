package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"storefront-bff/internal/models"
)

// productForm is the admin form as submitted, gallery as one comma-separated
// string.
type productForm struct {
	Name        string          `json:"name"`
	Category    models.Category `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	ImageURL    string          `json:"imageUrl"`
	Gallery     string          `json:"gallery"`
}

func (f productForm) validate() map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(f.Name) == "" {
		errs["name"] = "Name is required."
	}
	if !f.Category.Valid() {
		errs["category"] = "Category must be sneakers, glow or lamps."
	}
	if f.Price.IsNegative() {
		errs["price"] = "Price cannot be negative."
	}
	if strings.TrimSpace(f.Description) == "" {
		errs["description"] = "Description is required."
	}
	if strings.TrimSpace(f.ImageURL) == "" {
		errs["imageUrl"] = "Image URL is required."
	}
	return errs
}

func (f productForm) input() models.ProductInput {
	return models.ProductInput{
		Name:        strings.TrimSpace(f.Name),
		Category:    f.Category,
		Price:       f.Price,
		Description: f.Description,
		ImageURL:    strings.TrimSpace(f.ImageURL),
		Gallery:     models.ParseGallery(f.Gallery),
	}
}

func (h *Handler) AdminListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := workspace(r).Client.GetProducts(r.Context(), "all")
	if err != nil {
		h.upstreamFailed(w, r, "Failed to fetch products.", err)
		return
	}
	respondJSON(w, http.StatusOK, sortProducts(products, "popularity"))
}

func (h *Handler) AdminCreateProduct(w http.ResponseWriter, r *http.Request) {
	form, ok := h.decodeProductForm(w, r)
	if !ok {
		return
	}

	ws := workspace(r)
	product, err := ws.Client.AddProduct(r.Context(), form.input())
	if err != nil {
		h.upstreamFailed(w, r, "Failed to save product.", err)
		return
	}
	h.catalog.Invalidate(r.Context())
	ws.Notifications.Notify("Product added successfully!", models.NotificationSuccess)
	respondJSON(w, http.StatusCreated, product)
}

func (h *Handler) AdminUpdateProduct(w http.ResponseWriter, r *http.Request) {
	form, ok := h.decodeProductForm(w, r)
	if !ok {
		return
	}

	ws := workspace(r)
	id := chi.URLParam(r, "id")
	product, err := ws.Client.UpdateProduct(r.Context(), id, form.input())
	if err != nil {
		h.upstreamFailed(w, r, "Failed to save product.", err)
		return
	}
	h.catalog.Invalidate(r.Context(), id)
	ws.Notifications.Notify("Product updated successfully!", models.NotificationSuccess)
	respondJSON(w, http.StatusOK, product)
}

func (h *Handler) AdminDeleteProduct(w http.ResponseWriter, r *http.Request) {
	ws := workspace(r)
	id := chi.URLParam(r, "id")
	ok, err := ws.Client.DeleteProduct(r.Context(), id)
	if err == nil && !ok {
		err = errProductNotDeleted
	}
	if err != nil {
		h.upstreamFailed(w, r, "Failed to delete product.", err)
		return
	}
	h.catalog.Invalidate(r.Context(), id)
	ws.Notifications.Notify("Product deleted successfully!", models.NotificationSuccess)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) decodeProductForm(w http.ResponseWriter, r *http.Request) (productForm, bool) {
	var form productForm
	if err := decodeJSON(w, r, &form); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return form, false
	}
	if fields := form.validate(); len(fields) > 0 {
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "Please fix the highlighted fields.",
			Code:   http.StatusUnprocessableEntity,
			Fields: fields,
		})
		return form, false
	}
	return form, true
}

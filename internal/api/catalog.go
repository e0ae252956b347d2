package api

import (
	"cmp"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"storefront-bff/internal/models"
)

const featuredCount = 3

type HomeResponse struct {
	Featured []models.Product `json:"featured"`
	Offer    *models.Offer    `json:"offer"`
}

// Home loads featured products and the active offer in parallel. A missing
// offer does not fail the page.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	var (
		products []models.Product
		offer    *models.Offer
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		res, err := h.catalog.GetProducts(ctx, "all")
		if err != nil {
			return err
		}
		products = res
		return nil
	})
	g.Go(func() error {
		res, err := h.svc.GetActiveOffer(ctx)
		if err != nil {
			h.logger.Warn("Offer fetch error", "error", err)
			return nil
		}
		offer = res
		return nil
	})

	if err := g.Wait(); err != nil {
		h.upstreamFailed(w, r, "", err)
		return
	}

	products = sortProducts(products, "popularity")
	if len(products) > featuredCount {
		products = products[:featuredCount]
	}
	respondJSON(w, http.StatusOK, HomeResponse{Featured: products, Offer: offer})
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category != "" && category != "all" && !models.Category(category).Valid() {
		respondError(w, http.StatusBadRequest, "unknown category")
		return
	}
	sortBy := r.URL.Query().Get("sort")
	switch sortBy {
	case "":
		sortBy = "popularity"
	case "popularity", "price-asc", "price-desc":
	default:
		respondError(w, http.StatusBadRequest, "unknown sort order")
		return
	}

	products, err := h.catalog.GetProducts(r.Context(), category)
	if err != nil {
		h.upstreamFailed(w, r, "", err)
		return
	}
	respondJSON(w, http.StatusOK, sortProducts(products, sortBy))
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.upstreamFailed(w, r, "", err)
		return
	}
	if product == nil {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.SearchProducts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.upstreamFailed(w, r, "", err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handler) Offer(w http.ResponseWriter, r *http.Request) {
	offer, err := h.svc.GetActiveOffer(r.Context())
	if err != nil {
		h.upstreamFailed(w, r, "", err)
		return
	}
	respondJSON(w, http.StatusOK, offer)
}

type newsletterRequest struct {
	Email string `json:"email"`
}

type newsletterResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *Handler) Newsletter(w http.ResponseWriter, r *http.Request) {
	var req newsletterRequest
	if err := decodeJSON(w, r, &req); err != nil || !strings.Contains(req.Email, "@") {
		respondError(w, http.StatusUnprocessableEntity, "A valid email is required.")
		return
	}

	ok, err := workspace(r).Client.SubscribeNewsletter(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		h.logger.Error("Newsletter subscribe failed", "error", err)
		respondJSON(w, http.StatusBadGateway, newsletterResponse{Message: "Subscription failed. Please try again."})
		return
	}
	if !ok {
		respondJSON(w, http.StatusOK, newsletterResponse{Message: "Subscription failed. Please try again."})
		return
	}
	respondJSON(w, http.StatusOK, newsletterResponse{Success: true, Message: "Thank you for subscribing!"})
}

// sortProducts returns a sorted copy; catalog results may be shared between
// concurrent requests.
func sortProducts(products []models.Product, by string) []models.Product {
	products = append(make([]models.Product, 0, len(products)), products...)
	switch by {
	case "price-asc":
		slices.SortStableFunc(products, func(a, b models.Product) int { return a.Price.Cmp(b.Price) })
	case "price-desc":
		slices.SortStableFunc(products, func(a, b models.Product) int { return b.Price.Cmp(a.Price) })
	default:
		slices.SortStableFunc(products, func(a, b models.Product) int { return cmp.Compare(b.Popularity, a.Popularity) })
	}
	return products
}

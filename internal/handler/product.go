package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/mariotejeda2001/Glazeepink/internal/domain/product"
	"github.com/mariotejeda2001/Glazeepink/pkg/api"
)

// ListProducts handles GET /api/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		internalError(r.Context(), w, "List products failed", err)
		return
	}
	out := make(api.Products, len(products))
	for i, p := range products {
		out[i] = h.toAPIProduct(p)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetProduct handles GET /api/products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, product.ErrNotFound.Error())
			return
		}
		internalError(r.Context(), w, "Get product failed", err)
		return
	}
	out := h.toAPIProduct(*p)
	writeJSON(w, http.StatusOK, &out)
}

func (h *Handler) toAPIProduct(p product.Product) api.Product {
	images := make([]string, len(p.Images))
	for i, img := range p.Images {
		images[i] = h.imageURL(img)
	}
	return api.Product{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		LongDescription: p.LongDescription,
		Price:           p.Price,
		Images:          images,
		Category:        p.Category,
		Flavors:         p.Flavors,
		Rating:          p.Rating,
		Reviews:         p.Reviews,
		Servings:        p.Servings,
		Ingredients:     p.Ingredients,
	}
}

// imageURL prefixes relative paths with the configured base URL.
func (h *Handler) imageURL(path string) string {
	if h.imageBaseURL == "" || path == "" || strings.Contains(path, "://") {
		return path
	}
	return h.imageBaseURL + "/" + strings.TrimLeft(path, "/")
}

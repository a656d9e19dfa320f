package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront-catalog/pkg/httputil"
	"github.com/utafrali/storefront-catalog/pkg/validator"

	"github.com/utafrali/storefront-catalog/services/catalog/internal/domain"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/service"
)

// CartHandler handles HTTP requests for cart repricing.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// RepriceRequest is the JSON request body for repricing a cart.
type RepriceRequest struct {
	Pincode string               `json:"pincode" validate:"required,pincode"`
	Lines   []RepriceLineRequest `json:"lines" validate:"required,min=1,max=100,dive"`
}

// RepriceLineRequest is one cart line of a RepriceRequest.
type RepriceLineRequest struct {
	VariantID string `json:"variant_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=999"`
}

// Reprice handles POST /api/v1/stores/{storeId}/cart/reprice
func (h *CartHandler) Reprice(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req RepriceRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	lines := make([]domain.CartLine, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = domain.CartLine{VariantID: l.VariantID, Quantity: l.Quantity}
	}

	result, err := h.service.Reprice(r.Context(), service.RepriceInput{
		StoreID: chi.URLParam(r, "storeId"),
		Pincode: req.Pincode,
		Lines:   lines,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

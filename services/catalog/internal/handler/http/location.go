package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront-catalog/pkg/httputil"

	"github.com/utafrali/storefront-catalog/services/catalog/internal/service"
)

// LocationHandler handles HTTP requests for pincode serviceability.
type LocationHandler struct {
	service *service.LocationService
	logger  *slog.Logger
}

// NewLocationHandler creates a new location HTTP handler.
func NewLocationHandler(svc *service.LocationService, logger *slog.Logger) *LocationHandler {
	return &LocationHandler{
		service: svc,
		logger:  logger,
	}
}

// Resolve handles GET /api/v1/stores/{storeId}/locations/resolve
func (h *LocationHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	pincode := strings.TrimSpace(r.URL.Query().Get("pincode"))

	group, err := h.service.Resolve(r.Context(), chi.URLParam(r, "storeId"), pincode)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: group})
}

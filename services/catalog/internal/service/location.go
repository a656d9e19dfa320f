package service

import (
	"context"
	"errors"
	"log/slog"

	apperrors "github.com/utafrali/storefront-catalog/pkg/errors"

	"github.com/utafrali/storefront-catalog/services/catalog/internal/domain"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/location"
)

// LocationService answers whether and how a store delivers to a pincode.
type LocationService struct {
	resolver *location.Resolver
	logger   *slog.Logger
}

// NewLocationService creates a new location service.
func NewLocationService(resolver *location.Resolver, logger *slog.Logger) *LocationService {
	return &LocationService{resolver: resolver, logger: logger}
}

// Resolve returns the group serving pincode, or a NOT_FOUND error when the
// store does not deliver there.
func (s *LocationService) Resolve(ctx context.Context, storeID, pincode string) (*domain.LocationGroup, error) {
	g, err := s.resolver.Resolve(ctx, storeID, pincode)
	if errors.Is(err, domain.ErrPincodeNotFound) {
		return nil, apperrors.NotFound("pincode", pincode)
	}
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "pincode resolved",
		slog.String("store_id", storeID),
		slog.String("pincode", pincode),
		slog.String("location_group_id", g.ID),
	)
	return g, nil
}

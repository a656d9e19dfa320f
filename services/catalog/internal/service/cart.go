package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront-catalog/services/catalog/internal/domain"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/location"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/pricing"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/query"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/repository"
)

// RepriceInput holds the parameters for repricing a cart.
type RepriceInput struct {
	StoreID string
	Pincode string
	Lines   []domain.CartLine
}

// CartService prices carts for a delivery pincode.
type CartService struct {
	repo      repository.CatalogRepository
	resolver  *location.Resolver
	publisher EventPublisher
	logger    *slog.Logger
}

// NewCartService creates a new cart service. publisher may be nil.
func NewCartService(repo repository.CatalogRepository, resolver *location.Resolver, publisher EventPublisher, logger *slog.Logger) *CartService {
	return &CartService{
		repo:      repo,
		resolver:  resolver,
		publisher: publisher,
		logger:    logger,
	}
}

type variantRef struct {
	entry   *domain.CatalogEntry
	variant *domain.Variant
}

// Reprice prices every line for the group serving the pincode. An unserved
// pincode is an INVALID_PINCODE error. Lines that cannot be bought are
// returned unavailable and excluded from the totals.
func (s *CartService) Reprice(ctx context.Context, in RepriceInput) (*domain.RepriceResult, error) {
	group, err := s.resolver.ResolveForCheckout(ctx, in.StoreID, in.Pincode)
	if err != nil {
		return nil, err
	}
	def, err := s.resolver.DefaultGroup(ctx, in.StoreID)
	if err != nil {
		return nil, err
	}
	var defaultGroupID string
	if def != nil {
		defaultGroupID = def.ID
	}

	refs, err := s.loadVariants(ctx, in.StoreID, in.Lines)
	if err != nil {
		return nil, err
	}

	result := &domain.RepriceResult{
		StoreID:         in.StoreID,
		Pincode:         in.Pincode,
		LocationGroupID: group.ID,
		DeliveryDays:    group.DeliveryDays,
		CODAvailable:    group.CODAvailable,
		Lines:           make([]domain.RepricedLine, 0, len(in.Lines)),
		AllAvailable:    true,
	}

	for _, l := range in.Lines {
		line := priceLine(l, refs[l.VariantID], group.ID, defaultGroupID)
		if line.Available {
			result.Subtotal += line.LineTotal
			result.MRPTotal += line.LineMRP
		} else {
			result.AllAvailable = false
		}
		result.Lines = append(result.Lines, line)
	}
	result.Savings = result.MRPTotal - result.Subtotal

	s.logger.InfoContext(ctx, "cart repriced",
		slog.String("store_id", in.StoreID),
		slog.String("location_group_id", group.ID),
		slog.Int("lines", len(result.Lines)),
		slog.Int64("subtotal", result.Subtotal),
	)

	if s.publisher != nil {
		if err := s.publisher.PublishCartRepriced(ctx, result); err != nil {
			s.logger.WarnContext(ctx, "failed to publish cart repriced event",
				slog.String("store_id", in.StoreID),
				slog.String("error", err.Error()),
			)
		}
	}
	return result, nil
}

func (s *CartService) loadVariants(ctx context.Context, storeID string, lines []domain.CartLine) (map[string]variantRef, error) {
	ids := make([]string, 0, len(lines))
	seen := make(map[string]bool, len(lines))
	for _, l := range lines {
		if !seen[l.VariantID] {
			seen[l.VariantID] = true
			ids = append(ids, l.VariantID)
		}
	}
	if len(ids) == 0 {
		return map[string]variantRef{}, nil
	}

	entries, _, err := s.repo.Find(ctx, repository.FindParams{
		Predicate: query.And(query.Eq(query.FieldStore, storeID), query.HasVariant(query.VariantIDs(ids...))),
		Sort:      domain.SortNewest,
		Limit:     len(ids),
	})
	if err != nil {
		return nil, fmt.Errorf("find cart variants: %w", err)
	}

	refs := make(map[string]variantRef, len(ids))
	for i := range entries {
		e := &entries[i]
		for j := range e.Variants {
			v := &e.Variants[j]
			if seen[v.ID] && v.IsActive {
				refs[v.ID] = variantRef{entry: e, variant: v}
			}
		}
	}
	return refs, nil
}

func priceLine(l domain.CartLine, ref variantRef, groupID, defaultGroupID string) domain.RepricedLine {
	line := domain.RepricedLine{VariantID: l.VariantID, Quantity: l.Quantity}
	if ref.variant == nil {
		line.UnavailableReason = domain.UnavailableNotFound
		return line
	}

	line.ProductID = ref.entry.Product.ID
	line.Name = ref.entry.Product.Name
	line.SKU = ref.variant.SKU
	if ref.entry.Product.IsArchived {
		line.UnavailableReason = domain.UnavailableArchived
		return line
	}

	price := pricing.Select(ref.variant, groupID, defaultGroupID)
	if !price.Available() {
		line.UnavailableReason = domain.UnavailableNoPrice
		return line
	}

	qty := int64(l.Quantity)
	line.Available = true
	line.UnitPrice = price.Price
	line.UnitMRP = price.MRP
	line.LineTotal = price.Price * qty
	line.LineMRP = price.MRP * qty
	line.DiscountPercent = pricing.DiscountPercent(price.Price, price.MRP)
	return line
}

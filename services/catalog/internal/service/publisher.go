package service

import (
	"context"

	"github.com/utafrali/storefront-catalog/services/catalog/internal/domain"
)

// EventPublisher publishes catalog domain events. Publishing is best effort:
// callers log failures and carry on.
type EventPublisher interface {
	PublishCartRepriced(ctx context.Context, result *domain.RepriceResult) error
	PublishPincodeUnresolved(ctx context.Context, storeID, pincode string) error
}

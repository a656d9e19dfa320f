package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront-catalog/pkg/database"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/domain"
)

// LocationRepository implements repository.LocationRepository using PostgreSQL.
type LocationRepository struct {
	pool database.DBTX
}

// NewLocationRepository creates a new PostgreSQL-backed location repository.
func NewLocationRepository(pool database.DBTX) *LocationRepository {
	return &LocationRepository{pool: pool}
}

const groupColumns = `g.id, g.store_id, g.name, g.delivery_days, g.cod_available, g.is_default`

// LookupPincode returns the group of the store that serves pincode.
func (r *LocationRepository) LookupPincode(ctx context.Context, storeID, pincode string) (*domain.LocationGroup, error) {
	query := `
		SELECT ` + groupColumns + `
		FROM location_pincodes lp
		JOIN location_groups g ON g.id = lp.location_group_id
		WHERE lp.store_id = $1 AND lp.pincode = $2`

	return r.scanGroup(ctx, "location.lookup_pincode", domain.ErrPincodeNotFound, query, storeID, pincode)
}

// DefaultGroup returns the store's default group.
func (r *LocationRepository) DefaultGroup(ctx context.Context, storeID string) (*domain.LocationGroup, error) {
	query := `
		SELECT ` + groupColumns + `
		FROM location_groups g
		WHERE g.store_id = $1 AND g.is_default = TRUE`

	return r.scanGroup(ctx, "location.default_group", domain.ErrNoDefaultGroup, query, storeID)
}

// GetGroup returns a group by ID if it belongs to the store.
func (r *LocationRepository) GetGroup(ctx context.Context, storeID, groupID string) (*domain.LocationGroup, error) {
	query := `
		SELECT ` + groupColumns + `
		FROM location_groups g
		WHERE g.store_id = $1 AND g.id = $2`

	return r.scanGroup(ctx, "location.get_group", domain.ErrLocationGroupNotFound, query, storeID, groupID)
}

func (r *LocationRepository) scanGroup(ctx context.Context, op string, notFound error, query string, args ...any) (*domain.LocationGroup, error) {
	ctx, finish := database.TraceQuery(ctx, op, query)

	var g domain.LocationGroup
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&g.ID,
		&g.StoreID,
		&g.Name,
		&g.DeliveryDays,
		&g.CODAvailable,
		&g.IsDefault,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		finish(nil)
		return nil, notFound
	}
	finish(err)
	if err != nil {
		return nil, fmt.Errorf("scan location group: %w", err)
	}
	return &g, nil
}

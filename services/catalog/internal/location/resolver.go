// Package location maps pincodes to the location groups that price and
// deliver them.
package location

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/utafrali/storefront-catalog/pkg/errors"
	"github.com/utafrali/storefront-catalog/pkg/validator"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/domain"
)

// Lookup is a source of location groups. Implementations return
// domain.ErrPincodeNotFound, domain.ErrNoDefaultGroup and
// domain.ErrLocationGroupNotFound for misses.
type Lookup interface {
	LookupPincode(ctx context.Context, storeID, pincode string) (*domain.LocationGroup, error)
	DefaultGroup(ctx context.Context, storeID string) (*domain.LocationGroup, error)
	GetGroup(ctx context.Context, storeID, groupID string) (*domain.LocationGroup, error)
}

// Outcome describes how a listing context was resolved.
type Outcome string

const (
	OutcomeExplicit Outcome = "explicit"
	OutcomePincode  Outcome = "pincode"
	OutcomeFallback Outcome = "fallback_default"
	OutcomeDefault  Outcome = "default"
	OutcomeNone     Outcome = "none"
)

// Resolution is the location context of a listing.
type Resolution struct {
	// Group is the resolved group, nil when the store has no usable group.
	Group *domain.LocationGroup
	// DefaultGroupID is the store's default group, used as the second
	// price tier. Empty when the store has none.
	DefaultGroupID string
	Outcome        Outcome
}

// GroupID returns the resolved group ID or "".
func (r Resolution) GroupID() string {
	if r.Group == nil {
		return ""
	}
	return r.Group.ID
}

// Resolver resolves pincodes against a Lookup. It performs no retries and no
// caching of its own.
type Resolver struct {
	lookup Lookup
}

// NewResolver creates a Resolver over lookup.
func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve returns the group serving pincode in the store. A pincode that is
// not a digit string is reported as domain.ErrPincodeNotFound without a
// lookup.
func (r *Resolver) Resolve(ctx context.Context, storeID, pincode string) (*domain.LocationGroup, error) {
	if !validator.IsPincode(pincode) {
		return nil, domain.ErrPincodeNotFound
	}
	g, err := r.lookup.LookupPincode(ctx, storeID, pincode)
	if err != nil {
		if errors.Is(err, domain.ErrPincodeNotFound) {
			return nil, domain.ErrPincodeNotFound
		}
		return nil, fmt.Errorf("lookup pincode: %w", err)
	}
	return g, nil
}

// ResolveForCheckout is the strict mode: an unserved pincode is a user
// facing INVALID_PINCODE error.
func (r *Resolver) ResolveForCheckout(ctx context.Context, storeID, pincode string) (*domain.LocationGroup, error) {
	g, err := r.Resolve(ctx, storeID, pincode)
	if errors.Is(err, domain.ErrPincodeNotFound) {
		return nil, apperrors.InvalidPincode(pincode)
	}
	return g, err
}

// ResolveForListing is the recoverable mode. The explicit group wins when
// it belongs to the store, then the pincode, then the store's default group.
// Misses fall through silently; data-store errors are returned.
func (r *Resolver) ResolveForListing(ctx context.Context, storeID, groupID, pincode string) (Resolution, error) {
	def, err := r.defaultGroup(ctx, storeID)
	if err != nil {
		return Resolution{}, err
	}
	res := Resolution{Group: def, Outcome: OutcomeDefault}
	if def != nil {
		res.DefaultGroupID = def.ID
	} else {
		res.Outcome = OutcomeNone
	}

	if groupID != "" {
		g, err := r.lookup.GetGroup(ctx, storeID, groupID)
		switch {
		case err == nil:
			res.Group, res.Outcome = g, OutcomeExplicit
			return res, nil
		case !errors.Is(err, domain.ErrLocationGroupNotFound):
			return Resolution{}, fmt.Errorf("get location group: %w", err)
		}
	}

	if pincode != "" {
		g, err := r.Resolve(ctx, storeID, pincode)
		switch {
		case err == nil:
			res.Group, res.Outcome = g, OutcomePincode
			return res, nil
		case errors.Is(err, domain.ErrPincodeNotFound):
			res.Outcome = OutcomeFallback
		default:
			return Resolution{}, err
		}
	}
	return res, nil
}

// DefaultGroup returns the store's default group, or nil when it has none.
func (r *Resolver) DefaultGroup(ctx context.Context, storeID string) (*domain.LocationGroup, error) {
	return r.defaultGroup(ctx, storeID)
}

func (r *Resolver) defaultGroup(ctx context.Context, storeID string) (*domain.LocationGroup, error) {
	g, err := r.lookup.DefaultGroup(ctx, storeID)
	if errors.Is(err, domain.ErrNoDefaultGroup) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup default group: %w", err)
	}
	return g, nil
}

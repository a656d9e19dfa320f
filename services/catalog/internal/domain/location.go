package domain

import "errors"

var (
	// ErrPincodeNotFound is returned when no location group of the store
	// serves the pincode.
	ErrPincodeNotFound = errors.New("pincode not found for this store")

	// ErrNoDefaultGroup is returned when the store has no default location group.
	ErrNoDefaultGroup = errors.New("store has no default location group")

	// ErrLocationGroupNotFound is returned when a location group ID does not
	// belong to the store.
	ErrLocationGroupNotFound = errors.New("location group not found")
)

// LocationGroup is a named pricing and delivery zone of a store.
type LocationGroup struct {
	ID           string   `json:"id"`
	StoreID      string   `json:"store_id"`
	Name         string   `json:"name"`
	DeliveryDays int      `json:"delivery_days"`
	CODAvailable bool     `json:"cod_available"`
	IsDefault    bool     `json:"is_default"`
	Pincodes     []string `json:"pincodes,omitempty"`
}

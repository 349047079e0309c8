package dto

import "github.com/fekuna/omnipos-stock-service/internal/model"

type CreateLocationInput struct {
	StoreID string
	Name    string
	Type    model.LocationType
}

// UpdateLocationInput is a patch: nil fields are left untouched.
type UpdateLocationInput struct {
	ID       string
	StoreID  string
	Name     *string
	Type     *model.LocationType
	IsActive *bool
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServicePackage is the bookable offer of a photographer. Orders read price and
// travel-fee rules from it at checkout.
type ServicePackage struct {
	ID               uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PhotographerID   uuid.UUID           `gorm:"column:photographer_id;type:uuid;not null;index"`
	Name             string              `gorm:"column:name;not null"`
	Price            int64               `gorm:"column:price;not null"`
	DurationHours    int                 `gorm:"column:duration_hours;not null;default:0"`
	BaseLat          *float64            `gorm:"column:base_lat"`
	BaseLng          *float64            `gorm:"column:base_lng"`
	TravelFeeEnabled bool                `gorm:"column:travel_fee_enabled;not null;default:false"`
	FreeDistanceKm   decimal.NullDecimal `gorm:"column:free_distance_km;type:numeric(8,2)"`
	FeePerKm         int64               `gorm:"column:fee_per_km;not null;default:0"`
	MaxTravelFee     *int64              `gorm:"column:max_travel_fee"`
	TravelFeeNote    *string             `gorm:"column:travel_fee_note"`
	BookedCount      int                 `gorm:"column:booked_count;not null;default:0"`
	IsActive         bool                `gorm:"column:is_active;not null"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

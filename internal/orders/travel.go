package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lensbook/lensbook-backend/pkg/db/models"
	"github.com/lensbook/lensbook-backend/pkg/maps"
	"github.com/lensbook/lensbook-backend/pkg/types"
)

const routingTimeout = 3 * time.Second

// DistanceProvider resolves road distances between two points.
type DistanceProvider interface {
	DrivingDistanceKm(ctx context.Context, from, to types.Coordinates) (float64, error)
}

// TravelFeeQuote is the travel surcharge preview shown before checkout.
type TravelFeeQuote struct {
	Enabled        bool               `json:"enabled"`
	DistanceKm     float64            `json:"distance_km,omitempty"`
	ExtraKm        float64            `json:"extra_km,omitempty"`
	FreeDistanceKm float64            `json:"free_distance_km,omitempty"`
	Fee            int64              `json:"fee"`
	Source         string             `json:"source,omitempty"`
	Breakdown      string             `json:"breakdown,omitempty"`
	Note           *string            `json:"note,omitempty"`
	Origin         *types.Coordinates `json:"photographer_location,omitempty"`
}

const (
	distanceSourceRoute     = "route"
	distanceSourceHaversine = "haversine"
)

func packageOrigin(pkg *models.ServicePackage) *types.Coordinates {
	if pkg.BaseLat == nil || pkg.BaseLng == nil {
		return nil
	}
	c := types.Coordinates{Lat: *pkg.BaseLat, Lng: *pkg.BaseLng}
	if !c.Valid() {
		return nil
	}
	return &c
}

// travelFeeFor prices distanceKm against the package's travel-fee rules.
func travelFeeFor(pkg *models.ServicePackage, distanceKm float64) (fee int64, extraKm decimal.Decimal) {
	distance := decimal.NewFromFloat(distanceKm).Round(2)
	free := decimal.Zero
	if pkg.FreeDistanceKm.Valid {
		free = pkg.FreeDistanceKm.Decimal
	}
	if distance.LessThanOrEqual(free) {
		return 0, decimal.Zero
	}
	extraKm = distance.Sub(free)
	fee = extraKm.Mul(decimal.NewFromInt(pkg.FeePerKm)).Round(0).IntPart()
	if pkg.MaxTravelFee != nil && *pkg.MaxTravelFee > 0 && fee > *pkg.MaxTravelFee {
		fee = *pkg.MaxTravelFee
	}
	return fee, extraKm
}

// quoteTravelFee measures the distance with the routing provider, falling back
// to the great-circle distance when routing fails or times out.
func quoteTravelFee(ctx context.Context, router DistanceProvider, pkg *models.ServicePackage, dest *types.Coordinates) TravelFeeQuote {
	if !pkg.TravelFeeEnabled {
		return TravelFeeQuote{Enabled: false, Breakdown: "travel included"}
	}
	origin := packageOrigin(pkg)
	if origin == nil || dest == nil || !dest.Valid() {
		return TravelFeeQuote{Enabled: true, Breakdown: "location unavailable", Note: pkg.TravelFeeNote}
	}

	distance, source := 0.0, distanceSourceHaversine
	if router != nil {
		routeCtx, cancel := context.WithTimeout(ctx, routingTimeout)
		km, err := router.DrivingDistanceKm(routeCtx, *origin, *dest)
		cancel()
		if err == nil {
			distance, source = km, distanceSourceRoute
		}
	}
	if source == distanceSourceHaversine {
		distance = maps.HaversineKm(*origin, *dest)
	}

	fee, extra := travelFeeFor(pkg, distance)
	free := 0.0
	if pkg.FreeDistanceKm.Valid {
		free = pkg.FreeDistanceKm.Decimal.InexactFloat64()
	}
	breakdown := fmt.Sprintf("first %.1f km free", free)
	if fee > 0 {
		breakdown = fmt.Sprintf("%s km charged", extra.StringFixed(1))
	}
	return TravelFeeQuote{
		Enabled:        true,
		DistanceKm:     decimal.NewFromFloat(distance).Round(2).InexactFloat64(),
		ExtraKm:        extra.InexactFloat64(),
		FreeDistanceKm: free,
		Fee:            fee,
		Source:         source,
		Breakdown:      breakdown,
		Note:           pkg.TravelFeeNote,
		Origin:         origin,
	}
}

package types

import (
	"fmt"
	"math"
	"strings"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// Valid reports whether the point lies within WGS84 bounds and is not the null island default.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) {
		return false
	}
	if c.Lat == 0 && c.Lng == 0 {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Location is the shoot location stored on an order as jsonb.
type Location struct {
	Address     string       `json:"address"`
	District    string       `json:"district,omitempty"`
	City        string       `json:"city,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	MapLink     string       `json:"map_link,omitempty"`
}

// Normalize trims free-text fields and drops unusable coordinates.
func (l Location) Normalize() Location {
	l.Address = strings.TrimSpace(l.Address)
	l.District = strings.TrimSpace(l.District)
	l.City = strings.TrimSpace(l.City)
	l.MapLink = strings.TrimSpace(l.MapLink)
	if l.Coordinates != nil && !l.Coordinates.Valid() {
		l.Coordinates = nil
	}
	if l.MapLink == "" && l.Coordinates != nil {
		l.MapLink = fmt.Sprintf("https://www.google.com/maps?q=%f,%f", l.Coordinates.Lat, l.Coordinates.Lng)
	}
	return l
}

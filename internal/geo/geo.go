// Package geo supplies the coordinate used to bias lead searches.
package geo

import (
	"context"
	"math"

	"convertit/internal/logging"
)

// LatLng is a WGS84 coordinate in degrees.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Fallback is used whenever no position can be obtained.
var Fallback = LatLng{Latitude: 37.78193, Longitude: -122.40476}

// Valid reports whether p is a usable coordinate.
func (p LatLng) Valid() bool {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) {
		return false
	}
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// Locator returns the current position.
type Locator interface {
	Locate(ctx context.Context) (LatLng, error)
}

// Resolve asks locator for a position and falls back when it is missing,
// fails or returns garbage. It never returns an error.
func Resolve(ctx context.Context, locator Locator, fallback LatLng) LatLng {
	if locator == nil {
		return fallback
	}
	pos, err := locator.Locate(ctx)
	if err != nil {
		logging.Debug("position unavailable, using fallback", "error", err)
		return fallback
	}
	if !pos.Valid() {
		logging.Debug("invalid position, using fallback", "lat", pos.Latitude, "lng", pos.Longitude)
		return fallback
	}
	return pos
}

// StaticLocator always reports the same position.
type StaticLocator LatLng

// Locate implements Locator.
func (s StaticLocator) Locate(context.Context) (LatLng, error) {
	return LatLng(s), nil
}

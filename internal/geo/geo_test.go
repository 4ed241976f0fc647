package geo

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

type failingLocator struct{}

func (failingLocator) Locate(context.Context) (LatLng, error) {
	return LatLng{}, errors.New("permission denied")
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	paris := LatLng{Latitude: 48.8566, Longitude: 2.3522}

	tests := []struct {
		name    string
		locator Locator
		want    LatLng
	}{
		{"nil locator", nil, Fallback},
		{"failing locator", failingLocator{}, Fallback},
		{"out of range", StaticLocator{Latitude: 120, Longitude: 0}, Fallback},
		{"nan", StaticLocator{Latitude: math.NaN(), Longitude: 0}, Fallback},
		{"static", StaticLocator(paris), paris},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(ctx, tt.locator, Fallback))
		})
	}
}

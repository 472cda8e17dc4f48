// README: Delivery-address geocoding via the Google Maps API (best-effort enrichment).
package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"waterline/internal/types"
)

// GeocodeService resolves free-text delivery addresses to coordinates so the
// driver surface can open navigation. Callers treat failures as non-fatal.
type GeocodeService struct {
	client *maps.Client
}

// NewGeocodeService creates a GeocodeService with the given API key.
func NewGeocodeService(apiKey string) (*GeocodeService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GeocodeService{client: client}, nil
}

// Geocode returns the best-match coordinates for address.
func (s *GeocodeService) Geocode(ctx context.Context, address string) (*types.Point, error) {
	results, err := s.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return nil, fmt.Errorf("maps api error: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no geocoding result for %q", address)
	}
	loc := results[0].Geometry.Location
	return &types.Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}

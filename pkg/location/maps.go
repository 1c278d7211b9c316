package location

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"googlemaps.github.io/maps"

	"bee-finder/pkg/apperr"
)

// MapsResolver resolves queries with the Google Maps Geocoding API, restricted to the US.
type MapsResolver struct {
	client *maps.Client
	logger *slog.Logger
}

func NewMapsResolver(apiKey string, logger *slog.Logger) (*MapsResolver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &MapsResolver{client: c, logger: logger.With("component", "location.maps")}, nil
}

func (r *MapsResolver) Resolve(ctx context.Context, q Query) (Resolved, error) {
	if err := q.Validate(); err != nil {
		return Resolved{}, err
	}

	req := &maps.GeocodingRequest{
		Components: map[maps.Component]string{
			maps.ComponentCountry: "US",
		},
	}
	if q.Kind == KindZipcode {
		req.Components[maps.ComponentPostalCode] = q.Value
	} else {
		req.Components[maps.ComponentLocality] = q.City
		req.Components[maps.ComponentAdministrativeArea] = q.State
	}

	results, err := r.client.Geocode(ctx, req)
	if err != nil {
		if strings.Contains(err.Error(), "ZERO_RESULTS") {
			return Resolved{}, q.notFound()
		}
		r.logger.Error("geocoding failed", "query", q.String(), "error", err)
		return Resolved{}, apperr.Wrap(apperr.Unavailable, msgFetchFailed, err)
	}
	if len(results) == 0 {
		return Resolved{}, q.notFound()
	}

	loc, ok := resolvedFromGeocoding(results[0])
	if !ok {
		return Resolved{}, apperr.New(apperr.NotFound, msgMissingCoords)
	}
	return loc, nil
}

// resolvedFromGeocoding maps a geocoding result onto the canonical record. It reports false
// when the result lacks a place name or state.
func resolvedFromGeocoding(res maps.GeocodingResult) (Resolved, bool) {
	var placeName, stateAbbr string
	for _, c := range res.AddressComponents {
		switch {
		case placeName == "" && (slices.Contains(c.Types, "locality") || slices.Contains(c.Types, "postal_town")):
			placeName = c.LongName
		case slices.Contains(c.Types, "administrative_area_level_1"):
			stateAbbr = c.ShortName
		}
	}
	if placeName == "" {
		for _, c := range res.AddressComponents {
			if slices.Contains(c.Types, "sublocality") || slices.Contains(c.Types, "neighborhood") {
				placeName = c.LongName
				break
			}
		}
	}
	if placeName == "" || stateAbbr == "" {
		return Resolved{}, false
	}

	lat := strconv.FormatFloat(res.Geometry.Location.Lat, 'f', 4, 64)
	lng := strconv.FormatFloat(res.Geometry.Location.Lng, 'f', 4, 64)
	return newResolved(placeName, stateAbbr, lat, lng), true
}

var _ Resolver = (*MapsResolver)(nil)

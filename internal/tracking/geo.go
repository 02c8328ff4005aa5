package tracking

import "context"

// Location is the result of a geo/IP lookup
type Location struct {
	Country string
	City    string
}

// GeoResolver is the boundary to an external geo/IP enrichment collaborator.
// Implementations may return an empty Location; the pipeline tolerates
// absence and errors.
type GeoResolver interface {
	Lookup(ctx context.Context, ipAddress string) (Location, error)
}

// NoopGeoResolver is the default resolver when no geo provider is configured
type NoopGeoResolver struct{}

// Lookup always returns an empty location
func (NoopGeoResolver) Lookup(ctx context.Context, ipAddress string) (Location, error) {
	return Location{}, nil
}

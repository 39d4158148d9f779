package domain

import "github.com/samirrijal/civic311/internal/pkg/geospatial"

// GeoPoint represents a geographic coordinate (WGS 84) as exposed by the API.
type GeoPoint struct {
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
}

// GeoPointFrom converts an internal point into its API form.
func GeoPointFrom(p geospatial.Point) GeoPoint {
	return GeoPoint{Lat: p.Lat(), Long: p.Lng()}
}

// Point converts back to an internal point, validating the range.
func (g GeoPoint) Point() (geospatial.Point, error) {
	return geospatial.ToInternal([]float64{g.Lat, g.Long})
}

package geospatial

import (
	"encoding/json"
	"fmt"
)

// GeoJSONFeatureCollection is the subset of RFC 7946 the boundary importer reads.
type GeoJSONFeatureCollection struct {
	Type     string           `json:"type"`
	Features []GeoJSONFeature `json:"features"`
}

// GeoJSONFeature is a single feature with free-form properties.
type GeoJSONFeature struct {
	Type       string          `json:"type"`
	Properties json.RawMessage `json:"properties"`
	Geometry   GeoJSONGeometry `json:"geometry"`
}

// GeoJSONGeometry holds a Polygon geometry. Positions are [lng, lat].
type GeoJSONGeometry struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

// FromGeoJSON builds a Polygon from a GeoJSON Polygon geometry document, such
// as the output of PostGIS ST_AsGeoJSON.
func FromGeoJSON(data []byte) (Polygon, error) {
	var g GeoJSONGeometry
	if err := json.Unmarshal(data, &g); err != nil {
		return Polygon{}, fmt.Errorf("decode geojson: %w", err)
	}
	return g.Polygon()
}

// Polygon converts the geometry's exterior ring into a Polygon. GeoJSON
// positions are swapped into external [lat, lng] tuples before building;
// altitude values are ignored.
func (g GeoJSONGeometry) Polygon() (Polygon, error) {
	if g.Type != "Polygon" {
		return Polygon{}, fmt.Errorf("%w: geometry type %q", ErrUnsupportedGeometry, g.Type)
	}
	if len(g.Coordinates) == 0 {
		return Polygon{}, fmt.Errorf("%w: polygon has no rings", ErrDegeneratePolygon)
	}
	if len(g.Coordinates) > 1 {
		return Polygon{}, fmt.Errorf("%w: polygon holes", ErrUnsupportedGeometry)
	}

	exterior := g.Coordinates[0]
	tuples := make([][]float64, len(exterior))
	for i, pos := range exterior {
		if len(pos) < 2 {
			return Polygon{}, &CoordinateError{Index: i, Value: pos, Reason: "position needs [lng, lat]"}
		}
		tuples[i] = []float64{pos[1], pos[0]}
	}
	return BuildPolygon(tuples)
}

// GeoJSON returns the polygon as a GeoJSON Polygon geometry.
func (pg Polygon) GeoJSON() GeoJSONGeometry {
	ring := make([][]float64, len(pg.ring))
	for i, p := range pg.ring {
		ring[i] = []float64{p.X, p.Y}
	}
	return GeoJSONGeometry{Type: "Polygon", Coordinates: [][][]float64{ring}}
}

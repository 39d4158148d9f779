package geospatial

import (
	"errors"
	"fmt"
	"math"
)

// SRID is the spatial reference every Point and Polygon is expressed in (WGS 84).
const SRID = 4326

var (
	// ErrInvalidCoordinate is matched by every *CoordinateError.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	// ErrDegeneratePolygon means a ring has fewer than 3 distinct vertices or no area.
	ErrDegeneratePolygon = errors.New("degenerate polygon")
	// ErrUnsupportedGeometry is returned for GeoJSON input that is not a hole-free Polygon.
	ErrUnsupportedGeometry = errors.New("unsupported geometry")
)

// CoordinateError describes a rejected coordinate. Index is the position of the
// offending tuple in its sequence, or -1 when the coordinate was not part of one.
type CoordinateError struct {
	Index  int
	Value  any
	Reason string
}

func (e *CoordinateError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid coordinate at index %d (%v): %s", e.Index, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid coordinate (%v): %s", e.Value, e.Reason)
}

func (e *CoordinateError) Unwrap() error { return ErrInvalidCoordinate }

// ToInternal converts an external [lat, lng] tuple into a Point (x=lng, y=lat).
func ToInternal(tuple []float64) (Point, error) {
	return toInternal(tuple, -1)
}

// ToExternal converts a Point back to its [lat, lng] tuple.
func ToExternal(p Point) []float64 {
	return []float64{p.Y, p.X}
}

func toInternal(tuple []float64, index int) (Point, error) {
	if len(tuple) != 2 {
		return Point{}, &CoordinateError{
			Index:  index,
			Value:  tuple,
			Reason: fmt.Sprintf("expected [lat, lng], got %d values", len(tuple)),
		}
	}
	lat, lng := tuple[0], tuple[1]
	if reason := checkLatLng(lat, lng); reason != "" {
		return Point{}, &CoordinateError{Index: index, Value: tuple, Reason: reason}
	}
	return Point{X: lng, Y: lat, SRID: SRID}, nil
}

func checkLatLng(lat, lng float64) string {
	switch {
	case math.IsNaN(lat) || math.IsInf(lat, 0):
		return "latitude is not a finite number"
	case math.IsNaN(lng) || math.IsInf(lng, 0):
		return "longitude is not a finite number"
	case lat < -90 || lat > 90:
		return "latitude outside [-90, 90]"
	case lng < -180 || lng > 180:
		return "longitude outside [-180, 180]"
	}
	return ""
}

package geospatial

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Point is a location in SRID 4326 with X as longitude and Y as latitude.
type Point struct {
	X    float64
	Y    float64
	SRID int
}

func (p Point) Lat() float64 { return p.Y }
func (p Point) Lng() float64 { return p.X }

// DistanceTo returns the great-circle distance to q in meters.
func (p Point) DistanceTo(q Point) float64 {
	return Haversine(p.Y, p.X, q.Y, q.X)
}

// BuildPoint builds a Point from loosely typed latitude and longitude values,
// as they arrive from query strings, form fields or decoded JSON.
func BuildPoint(lat, lng any) (Point, error) {
	latF, err := coerce(lat, "latitude")
	if err != nil {
		return Point{}, err
	}
	lngF, err := coerce(lng, "longitude")
	if err != nil {
		return Point{}, err
	}
	return ToInternal([]float64{latF, lngF})
}

func coerce(v any, field string) (float64, error) {
	switch val := v.(type) {
	case nil:
		return 0, &CoordinateError{Index: -1, Value: v, Reason: field + " is missing"}
	case bool:
		return 0, &CoordinateError{Index: -1, Value: v, Reason: field + " must be a number"}
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, &CoordinateError{Index: -1, Value: v, Reason: field + " is empty"}
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, &CoordinateError{Index: -1, Value: v, Reason: field + " is not a number"}
		}
		return f, nil
	case json.Number:
		return coerce(val.String(), field)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, &CoordinateError{Index: -1, Value: v, Reason: field + " must be a number"}
	}
	return f, nil
}

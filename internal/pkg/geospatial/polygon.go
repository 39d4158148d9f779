package geospatial

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/golang/geo/r2"
)

// onEdgeEpsilon absorbs rounding when testing whether a point lies on a ring segment.
const onEdgeEpsilon = 1e-12

// Polygon is a closed, hole-free ring in SRID 4326. The zero value is empty and
// contains nothing; valid polygons only come from BuildPolygon or FromGeoJSON.
type Polygon struct {
	ring []Point
}

// BuildPolygon validates and closes a ring given as external [lat, lng] tuples.
// Consecutive duplicate vertices are collapsed; orientation is kept as given.
func BuildPolygon(tuples [][]float64) (Polygon, error) {
	if len(tuples) == 0 {
		return Polygon{}, fmt.Errorf("%w: no vertices", ErrDegeneratePolygon)
	}

	ring := make([]Point, 0, len(tuples)+1)
	for i, t := range tuples {
		p, err := toInternal(t, i)
		if err != nil {
			return Polygon{}, err
		}
		ring = append(ring, p)
	}

	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	ring = collapseRepeats(ring)

	distinct := make(map[Point]struct{}, len(ring))
	for _, p := range ring {
		distinct[p] = struct{}{}
	}
	if len(distinct) < 3 {
		return Polygon{}, fmt.Errorf("%w: %d distinct vertices, need at least 3", ErrDegeneratePolygon, len(distinct))
	}
	if signedArea(ring) == 0 {
		return Polygon{}, fmt.Errorf("%w: vertices enclose no area", ErrDegeneratePolygon)
	}

	return Polygon{ring: ring}, nil
}

func collapseRepeats(ring []Point) []Point {
	out := ring[:1]
	for _, p := range ring[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}

// signedArea is the shoelace area of a closed ring, positive when counter-clockwise.
func signedArea(ring []Point) float64 {
	var sum float64
	for i := 0; i < len(ring)-1; i++ {
		sum += ring[i].X*ring[i+1].Y - ring[i+1].X*ring[i].Y
	}
	return sum / 2
}

// Ring returns a copy of the closed ring in internal form.
func (pg Polygon) Ring() []Point {
	out := make([]Point, len(pg.ring))
	copy(out, pg.ring)
	return out
}

// IsEmpty reports whether pg is the zero value.
func (pg Polygon) IsEmpty() bool { return len(pg.ring) == 0 }

// SRID is always 4326 for non-empty polygons.
func (pg Polygon) SRID() int {
	if pg.IsEmpty() {
		return 0
	}
	return pg.ring[0].SRID
}

// Coordinates renders the ring as external [lat, lng] tuples, closing vertex included.
func (pg Polygon) Coordinates() [][]float64 {
	out := make([][]float64, len(pg.ring))
	for i, p := range pg.ring {
		out[i] = ToExternal(p)
	}
	return out
}

// Bounds returns the planar bounding rectangle with X as longitude and Y as latitude.
func (pg Polygon) Bounds() r2.Rect {
	if pg.IsEmpty() {
		return r2.EmptyRect()
	}
	pts := make([]r2.Point, len(pg.ring))
	for i, p := range pg.ring {
		pts[i] = r2.Point{X: p.X, Y: p.Y}
	}
	return r2.RectFromPoints(pts...)
}

// Centroid returns the area-weighted centroid of the ring.
func (pg Polygon) Centroid() Point {
	a := signedArea(pg.ring)
	if a == 0 {
		return Point{}
	}
	var cx, cy float64
	for i := 0; i < len(pg.ring)-1; i++ {
		p, q := pg.ring[i], pg.ring[i+1]
		f := p.X*q.Y - q.X*p.Y
		cx += (p.X + q.X) * f
		cy += (p.Y + q.Y) * f
	}
	return Point{X: cx / (6 * a), Y: cy / (6 * a), SRID: SRID}
}

// Contains reports whether p lies inside pg or on its boundary. The result does
// not depend on ring orientation.
func (pg Polygon) Contains(p Point) bool {
	if pg.IsEmpty() || !pg.Bounds().ContainsPoint(r2.Point{X: p.X, Y: p.Y}) {
		return false
	}

	inside := false
	for i := 0; i < len(pg.ring)-1; i++ {
		a, b := pg.ring[i], pg.ring[i+1]
		if onSegment(a, b, p) {
			return true
		}
		if (a.Y > p.Y) != (b.Y > p.Y) {
			xCross := a.X + (p.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if p.X < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

// InteriorPoint returns a point strictly inside pg, never on its boundary.
// It is the centroid when that qualifies. Otherwise it is the midpoint of the
// widest inside run along a horizontal line through the vertex band nearest
// the centroid. The zero value yields the zero Point.
func (pg Polygon) InteriorPoint() Point {
	if pg.IsEmpty() {
		return Point{}
	}
	c := pg.Centroid()
	if pg.Contains(c) && !pg.onBoundary(c) {
		return c
	}

	// Scan lines halfway between distinct vertex latitudes never pass
	// through a vertex, so every crossing is a proper edge crossing.
	ys := make([]float64, 0, len(pg.ring))
	seen := make(map[float64]struct{}, len(pg.ring))
	for _, p := range pg.ring {
		if _, ok := seen[p.Y]; !ok {
			seen[p.Y] = struct{}{}
			ys = append(ys, p.Y)
		}
	}
	sort.Float64s(ys)

	bands := make([]float64, 0, len(ys)-1)
	for i := 0; i < len(ys)-1; i++ {
		bands = append(bands, (ys[i]+ys[i+1])/2)
	}
	sort.SliceStable(bands, func(i, j int) bool {
		return math.Abs(bands[i]-c.Y) < math.Abs(bands[j]-c.Y)
	})

	for _, y := range bands {
		if p, ok := pg.widestRun(y); ok {
			return p
		}
	}
	return pg.ring[0]
}

// widestRun returns the midpoint of the widest inside interval on the line
// at latitude y.
func (pg Polygon) widestRun(y float64) (Point, bool) {
	var xs []float64
	for i := 0; i < len(pg.ring)-1; i++ {
		a, b := pg.ring[i], pg.ring[i+1]
		if (a.Y > y) != (b.Y > y) {
			xs = append(xs, a.X+(y-a.Y)*(b.X-a.X)/(b.Y-a.Y))
		}
	}
	sort.Float64s(xs)

	best, width := Point{}, 0.0
	for i := 0; i+1 < len(xs); i += 2 {
		if w := xs[i+1] - xs[i]; w > width {
			width = w
			best = Point{X: (xs[i] + xs[i+1]) / 2, Y: y, SRID: SRID}
		}
	}
	return best, width > 0
}

func (pg Polygon) onBoundary(p Point) bool {
	for i := 0; i < len(pg.ring)-1; i++ {
		if onSegment(pg.ring[i], pg.ring[i+1], p) {
			return true
		}
	}
	return false
}

func onSegment(a, b, p Point) bool {
	cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
	if math.Abs(cross) > onEdgeEpsilon {
		return false
	}
	return p.X >= math.Min(a.X, b.X)-onEdgeEpsilon && p.X <= math.Max(a.X, b.X)+onEdgeEpsilon &&
		p.Y >= math.Min(a.Y, b.Y)-onEdgeEpsilon && p.Y <= math.Max(a.Y, b.Y)+onEdgeEpsilon
}

// WKT renders the polygon as Well-Known Text for ST_GeomFromText.
func (pg Polygon) WKT() string {
	var sb strings.Builder
	sb.WriteString("POLYGON((")
	for i, p := range pg.ring {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.FormatFloat(p.X, 'f', -1, 64))
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatFloat(p.Y, 'f', -1, 64))
	}
	sb.WriteString("))")
	return sb.String()
}

// MarshalJSON encodes the polygon as its external [lat, lng] tuples.
func (pg Polygon) MarshalJSON() ([]byte, error) {
	return json.Marshal(pg.Coordinates())
}

// UnmarshalJSON decodes external tuples and runs them through BuildPolygon.
func (pg *Polygon) UnmarshalJSON(data []byte) error {
	var tuples [][]float64
	if err := json.Unmarshal(data, &tuples); err != nil {
		return err
	}
	built, err := BuildPolygon(tuples)
	if err != nil {
		return err
	}
	*pg = built
	return nil
}

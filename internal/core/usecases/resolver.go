package usecases

import (
	"github.com/samirrijal/civic311/internal/core/domain"
	"github.com/samirrijal/civic311/internal/pkg/geospatial"
)

// JurisdictionResolver picks the jurisdiction whose boundary contains a point.
// It holds no state and is safe for concurrent use.
type JurisdictionResolver struct{}

// NewJurisdictionResolver creates a JurisdictionResolver.
func NewJurisdictionResolver() *JurisdictionResolver {
	return &JurisdictionResolver{}
}

// Resolve returns the id of the first candidate, in the given order, whose
// polygon contains p (edges and vertices included). found is false when no
// candidate contains p.
func (r *JurisdictionResolver) Resolve(p geospatial.Point, candidates []domain.JurisdictionBoundary) (id string, found bool) {
	for i := range candidates {
		if candidates[i].Polygon.Contains(p) {
			return candidates[i].JurisdictionID, true
		}
	}
	return "", false
}

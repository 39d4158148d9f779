package usecases

import (
	"context"
	"encoding/json"

	"github.com/samirrijal/civic311/internal/core/domain"
	"github.com/samirrijal/civic311/internal/core/ports"
)

// JurisdictionService handles jurisdiction lookups.
type JurisdictionService struct {
	jurisdictions ports.JurisdictionRepository
	cache         ports.CacheService
}

// NewJurisdictionService creates a new JurisdictionService.
func NewJurisdictionService(jurisdictions ports.JurisdictionRepository, cache ports.CacheService) *JurisdictionService {
	return &JurisdictionService{jurisdictions: jurisdictions, cache: cache}
}

// List returns all jurisdictions.
func (s *JurisdictionService) List(ctx context.Context) ([]domain.Jurisdiction, error) {
	return s.jurisdictions.List(ctx)
}

// GetByID returns a jurisdiction by id.
func (s *JurisdictionService) GetByID(ctx context.Context, id string) (*domain.Jurisdiction, error) {
	cacheKey := "jurisdictions:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var j domain.Jurisdiction
			if err := json.Unmarshal(data, &j); err == nil {
				return &j, nil
			}
		}
	}

	j, err := s.jurisdictions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(j); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}

	return j, nil
}

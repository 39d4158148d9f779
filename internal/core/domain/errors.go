package domain

import (
	"errors"

	"github.com/samirrijal/civic311/internal/pkg/geospatial"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrUnsafeMedia       = errors.New("media rejected by safe-search")
	ErrInvalidCoordinate = geospatial.ErrInvalidCoordinate
	ErrDegeneratePolygon = geospatial.ErrDegeneratePolygon
)

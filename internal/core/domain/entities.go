package domain

import (
	"time"

	"github.com/samirrijal/civic311/internal/pkg/geospatial"
)

// Jurisdiction is a civic authority that receives service requests
// (a city, a county, a public works department).
type Jurisdiction struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// JurisdictionBoundary is the area a jurisdiction is responsible for.
// Each jurisdiction has at most one.
type JurisdictionBoundary struct {
	JurisdictionID string             `json:"jurisdiction_id"`
	Polygon        geospatial.Polygon `json:"polygon"`
	Priority       int                `json:"priority"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Request statuses.
const (
	StatusOpen     = "open"
	StatusUnrouted = "unrouted"
	StatusClosed   = "closed"
)

// ServiceRequest is an issue reported by a resident (pothole, graffiti, ...).
type ServiceRequest struct {
	ID             string    `json:"service_request_id"`
	JurisdictionID *string   `json:"jurisdiction_id"`
	ServiceCode    string    `json:"service_code"`
	Description    string    `json:"description,omitempty"`
	Location       GeoPoint  `json:"location"`
	Address        string    `json:"address,omitempty"`
	MediaURL       string    `json:"media_url,omitempty"`
	Status         string    `json:"status"`
	Distance       *float64  `json:"distance,omitempty"` // computed field
	RequestedAt    time.Time `json:"requested_datetime"`
	UpdatedAt      time.Time `json:"updated_datetime"`
}

// Routed reports whether the request has been assigned to a jurisdiction.
func (r *ServiceRequest) Routed() bool {
	return r.JurisdictionID != nil && *r.JurisdictionID != ""
}

// Project is planned public work covering an area, such as road resurfacing.
type Project struct {
	ID             string             `json:"id"`
	JurisdictionID string             `json:"jurisdiction_id"`
	Name           string             `json:"name"`
	Description    string             `json:"description,omitempty"`
	Area           geospatial.Polygon `json:"area"`
	Status         string             `json:"status"`
	CreatedAt      time.Time          `json:"created_at"`
}

// RequestRouted is emitted when a request is assigned a jurisdiction.
type RequestRouted struct {
	RequestID      string    `json:"service_request_id"`
	JurisdictionID string    `json:"jurisdiction_id"`
	ServiceCode    string    `json:"service_code"`
	Location       GeoPoint  `json:"location"`
	RoutedAt       time.Time `json:"routed_at"`
}

// RequestUnrouted is emitted when a request lies outside every boundary.
type RequestUnrouted struct {
	RequestID   string    `json:"service_request_id"`
	ServiceCode string    `json:"service_code"`
	Location    GeoPoint  `json:"location"`
	At          time.Time `json:"at"`
}

// BoundaryChanged is emitted when a boundary is replaced or deleted.
type BoundaryChanged struct {
	JurisdictionID string    `json:"jurisdiction_id"`
	Deleted        bool      `json:"deleted"`
	ChangedAt      time.Time `json:"changed_at"`
}

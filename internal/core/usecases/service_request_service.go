package usecases

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/civic311/internal/core/domain"
	"github.com/samirrijal/civic311/internal/core/ports"
	"github.com/samirrijal/civic311/internal/pkg/geospatial"
	"github.com/samirrijal/civic311/internal/pkg/metrics"
	"github.com/samirrijal/civic311/internal/pkg/telemetry"
)

// ExportColumns is the fixed CSV header of request exports.
var ExportColumns = []string{
	"service_request_id", "status", "service_code", "description", "lat", "long",
	"address", "media_url", "requested_datetime", "jurisdiction_id",
}

// SubmitRequest is the input of ServiceRequestService.Submit. Lat and Long
// accept numbers or numeric strings.
type SubmitRequest struct {
	ServiceCode string
	Description string
	Address     string
	MediaURL    string
	Lat         any
	Long        any
}

// RerouteResult summarises one reroute batch.
type RerouteResult struct {
	Scanned int    `json:"scanned"`
	Routed  int    `json:"routed"`
	LastID  string `json:"last_id"`
}

// ServiceRequestService handles service request intake and routing.
type ServiceRequestService struct {
	requests            ports.ServiceRequestRepository
	locator             *Locator
	events              ports.EventPublisher
	classifier          ports.MediaClassifier
	defaultJurisdiction string
}

// NewServiceRequestService creates a new ServiceRequestService. events and
// classifier may be nil; defaultJurisdiction may be empty.
func NewServiceRequestService(
	requests ports.ServiceRequestRepository,
	locator *Locator,
	events ports.EventPublisher,
	classifier ports.MediaClassifier,
	defaultJurisdiction string,
) *ServiceRequestService {
	return &ServiceRequestService{
		requests:            requests,
		locator:             locator,
		events:              events,
		classifier:          classifier,
		defaultJurisdiction: defaultJurisdiction,
	}
}

// Submit validates and stores a new request, routing it to the jurisdiction
// whose boundary contains its location. Requests outside every boundary go to
// the default jurisdiction when one is configured, otherwise they are stored
// with status "unrouted".
func (s *ServiceRequestService) Submit(ctx context.Context, in SubmitRequest) (*domain.ServiceRequest, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanSubmitRequest)
	defer span.End()

	serviceCode := strings.TrimSpace(in.ServiceCode)
	if serviceCode == "" {
		return nil, fmt.Errorf("%w: service_code is required", domain.ErrValidation)
	}

	p, err := geospatial.BuildPoint(in.Lat, in.Long)
	if err != nil {
		return nil, err
	}

	if in.MediaURL != "" && s.classifier != nil {
		safe, err := s.classifier.IsSafe(ctx, in.MediaURL)
		switch {
		case err != nil:
			slog.WarnContext(ctx, "safe-search unavailable, accepting media", "media_url", in.MediaURL, "error", err)
		case !safe:
			return nil, fmt.Errorf("%w: %s", domain.ErrUnsafeMedia, in.MediaURL)
		}
	}

	jurisdictionID, found, err := s.route(ctx, p)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	req := &domain.ServiceRequest{
		ServiceCode: serviceCode,
		Description: strings.TrimSpace(in.Description),
		Location:    domain.GeoPointFrom(p),
		Address:     strings.TrimSpace(in.Address),
		MediaURL:    in.MediaURL,
		Status:      domain.StatusUnrouted,
		RequestedAt: now,
		UpdatedAt:   now,
	}
	if found {
		req.JurisdictionID = &jurisdictionID
		req.Status = domain.StatusOpen
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	metrics.RequestsSubmitted.WithLabelValues(req.Status).Inc()
	span.SetAttributes(attribute.String(telemetry.AttrRequestStatus, req.Status))

	if found {
		s.publishRouted(ctx, req)
	} else {
		s.publishUnrouted(ctx, req)
	}
	return req, nil
}

// GetByID returns a single request.
func (s *ServiceRequestService) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	return s.requests.GetByID(ctx, id)
}

// FindNearby returns requests within radiusMeters of the given location, nearest first.
func (s *ServiceRequestService) FindNearby(ctx context.Context, lat, lng any, radiusMeters float64, limit int) ([]domain.ServiceRequest, error) {
	p, err := geospatial.BuildPoint(lat, lng)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	if radiusMeters <= 0 || radiusMeters > 5000 {
		radiusMeters = 500
	}

	reqs, err := s.requests.FindNearby(ctx, p.Lat(), p.Lng(), radiusMeters, limit)
	if err != nil {
		return nil, err
	}

	for i := range reqs {
		loc := geospatial.Point{X: reqs[i].Location.Long, Y: reqs[i].Location.Lat, SRID: geospatial.SRID}
		d := p.DistanceTo(loc)
		reqs[i].Distance = &d
	}
	sort.SliceStable(reqs, func(i, j int) bool { return *reqs[i].Distance < *reqs[j].Distance })
	return reqs, nil
}

// Export writes requests as CSV with the ExportColumns header. An empty
// jurisdictionID exports every jurisdiction, including unrouted requests.
func (s *ServiceRequestService) Export(ctx context.Context, w io.Writer, jurisdictionID string, limit int) error {
	if limit <= 0 || limit > 10000 {
		limit = 10000
	}
	reqs, err := s.requests.List(ctx, jurisdictionID, limit)
	if err != nil {
		return fmt.Errorf("list requests: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return err
	}
	for _, r := range reqs {
		jid := ""
		if r.JurisdictionID != nil {
			jid = *r.JurisdictionID
		}
		record := []string{
			r.ID,
			r.Status,
			r.ServiceCode,
			r.Description,
			strconv.FormatFloat(r.Location.Lat, 'f', -1, 64),
			strconv.FormatFloat(r.Location.Long, 'f', -1, 64),
			r.Address,
			r.MediaURL,
			r.RequestedAt.UTC().Format(time.RFC3339),
			jid,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Reroute re-resolves up to limit unrouted requests with ids after afterID.
// It is run after boundaries change.
func (s *ServiceRequestService) Reroute(ctx context.Context, afterID string, limit int) (RerouteResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanRerouteBatch)
	defer span.End()
	span.SetAttributes(attribute.Int(telemetry.AttrBatchSize, limit))

	res := RerouteResult{LastID: afterID}
	reqs, err := s.requests.ListUnrouted(ctx, afterID, limit)
	if err != nil {
		return res, fmt.Errorf("list unrouted: %w", err)
	}

	for i := range reqs {
		req := &reqs[i]
		res.Scanned++
		res.LastID = req.ID

		p, err := req.Location.Point()
		if err != nil {
			slog.WarnContext(ctx, "skipping request with invalid location", "request_id", req.ID, "error", err)
			continue
		}
		jurisdictionID, found, err := s.route(ctx, p)
		if err != nil {
			return res, err
		}
		if !found {
			continue
		}
		if err := s.requests.AssignJurisdiction(ctx, req.ID, jurisdictionID); err != nil {
			return res, fmt.Errorf("assign %s: %w", req.ID, err)
		}
		req.JurisdictionID = &jurisdictionID
		req.Status = domain.StatusOpen
		res.Routed++
		metrics.RequestsRerouted.Inc()
		s.publishRouted(ctx, req)
	}
	return res, nil
}

func (s *ServiceRequestService) route(ctx context.Context, p geospatial.Point) (string, bool, error) {
	jurisdictionID, found, err := s.locator.Locate(ctx, p)
	if err != nil {
		return "", false, err
	}
	if !found && s.defaultJurisdiction != "" {
		return s.defaultJurisdiction, true, nil
	}
	return jurisdictionID, found, nil
}

func (s *ServiceRequestService) publishRouted(ctx context.Context, req *domain.ServiceRequest) {
	if s.events == nil {
		return
	}
	event := &domain.RequestRouted{
		RequestID:      req.ID,
		JurisdictionID: *req.JurisdictionID,
		ServiceCode:    req.ServiceCode,
		Location:       req.Location,
		RoutedAt:       time.Now().UTC(),
	}
	if err := s.events.PublishRequestRouted(ctx, event); err != nil {
		slog.WarnContext(ctx, "publish request routed failed", "request_id", req.ID, "error", err)
	}
}

func (s *ServiceRequestService) publishUnrouted(ctx context.Context, req *domain.ServiceRequest) {
	if s.events == nil {
		return
	}
	event := &domain.RequestUnrouted{
		RequestID:   req.ID,
		ServiceCode: req.ServiceCode,
		Location:    req.Location,
		At:          time.Now().UTC(),
	}
	if err := s.events.PublishRequestUnrouted(ctx, event); err != nil {
		slog.WarnContext(ctx, "publish request unrouted failed", "request_id", req.ID, "error", err)
	}
}

package http

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/civic311/internal/core/domain"
	"github.com/samirrijal/civic311/internal/core/usecases"
	"github.com/samirrijal/civic311/internal/pkg/geospatial"
)

// ---- Jurisdictions ----

// ListJurisdictionsHandler returns all jurisdictions, paginated.
func ListJurisdictionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		jurisdictions, err := deps.Jurisdictions.List(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}

		offset, limit := parsePagination(c, 100, 200)
		page, pg := paginate(jurisdictions, offset, limit)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// GetJurisdictionHandler returns a single jurisdiction by ID.
func GetJurisdictionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		j, err := deps.Jurisdictions.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(j)
	}
}

// LocateResponse is the answer to "which jurisdiction covers this point".
type LocateResponse struct {
	Found          bool   `json:"found"`
	JurisdictionID string `json:"jurisdiction_id,omitempty"`
}

// LocateHandler resolves ?lat=&long= to the jurisdiction whose boundary
// contains it. A point outside every boundary is a 200 with found=false.
func LocateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, found, err := deps.Locator.LocateLatLng(c.UserContext(), c.Query("lat"), c.Query("long"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(LocateResponse{Found: found, JurisdictionID: id})
	}
}

// ---- Boundaries ----

// BoundaryInput is the body of PUT /v1/jurisdictions/:id/boundary.
// Coordinates is a ring of [lat, lng] tuples.
type BoundaryInput struct {
	Coordinates [][]float64 `json:"coordinates"`
	Priority    int         `json:"priority"`
}

// GetBoundaryHandler returns a jurisdiction's boundary. ?format=geojson
// answers a GeoJSON Feature for map clients.
func GetBoundaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		b, err := deps.Boundaries.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}

		switch c.Query("format") {
		case "", "json":
			return c.JSON(b)
		case "geojson":
			props, err := json.Marshal(fiber.Map{"jurisdiction_id": b.JurisdictionID, "priority": b.Priority})
			if err != nil {
				return errFromDomain(c, err)
			}
			c.Set(fiber.HeaderContentType, "application/geo+json")
			data, err := json.Marshal(geospatial.GeoJSONFeature{
				Type:       "Feature",
				Properties: props,
				Geometry:   b.Polygon.GeoJSON(),
			})
			if err != nil {
				return errFromDomain(c, err)
			}
			return c.Send(data)
		}
		return errBadRequest(c, "format must be json or geojson")
	}
}

// PutBoundaryHandler replaces a jurisdiction's boundary.
func PutBoundaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in BoundaryInput
		if err := json.Unmarshal(c.Body(), &in); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		b, err := deps.Boundaries.Set(c.UserContext(), c.Params("id"), in.Coordinates, in.Priority)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(b)
	}
}

// DeleteBoundaryHandler removes a jurisdiction's boundary.
func DeleteBoundaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Boundaries.Delete(c.UserContext(), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ---- Service requests ----

// RequestInput is the body of POST /v1/requests. lat and long may be JSON
// numbers or numeric strings.
type RequestInput struct {
	ServiceCode string `json:"service_code"`
	Description string `json:"description"`
	Address     string `json:"address_string"`
	MediaURL    string `json:"media_url"`
	Lat         any    `json:"lat"`
	Long        any    `json:"long"`
}

func parseRequestInput(c *fiber.Ctx) (RequestInput, error) {
	var in RequestInput
	if c.Is("json") {
		dec := json.NewDecoder(bytes.NewReader(c.Body()))
		dec.UseNumber()
		err := dec.Decode(&in)
		return in, err
	}

	// Open311 clients post form-encoded bodies.
	in.ServiceCode = c.FormValue("service_code")
	in.Description = c.FormValue("description")
	in.Address = c.FormValue("address_string")
	in.MediaURL = c.FormValue("media_url")
	in.Lat = c.FormValue("lat")
	in.Long = c.FormValue("long")
	return in, nil
}

func submitRequest(c *fiber.Ctx, deps *Dependencies, in RequestInput) (*domain.ServiceRequest, error) {
	return deps.Requests.Submit(c.UserContext(), usecases.SubmitRequest{
		ServiceCode: in.ServiceCode,
		Description: in.Description,
		Address:     in.Address,
		MediaURL:    in.MediaURL,
		Lat:         in.Lat,
		Long:        in.Long,
	})
}

// SubmitRequestHandler creates a service request and routes it.
func SubmitRequestHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in, err := parseRequestInput(c)
		if err != nil {
			return errBadRequest(c, "invalid request body")
		}

		req, err := submitRequest(c, deps, in)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(req)
	}
}

// LegacySubmitRequestHandler serves POST /v1/requests.json, which answers
// with a one-element array as older Open311 clients expect.
func LegacySubmitRequestHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in, err := parseRequestInput(c)
		if err != nil {
			return errBadRequest(c, "invalid request body")
		}

		req, err := submitRequest(c, deps, in)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON([]*domain.ServiceRequest{req})
	}
}

// GetRequestHandler returns a single service request.
func GetRequestHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := deps.Requests.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(req)
	}
}

// NearbyRequestsHandler returns requests within ?radius= meters of ?lat=&long=.
func NearbyRequestsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		radius := c.QueryFloat("radius", 500)
		if radius < 1 || radius > 5000 {
			return errBadRequest(c, "radius must be between 1 and 5000 meters")
		}
		limit := c.QueryInt("limit", 50)

		reqs, err := deps.Requests.FindNearby(c.UserContext(), c.Query("lat"), c.Query("long"), radius, limit)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(reqs)
	}
}

// ExportRequestsHandler streams service requests as CSV, optionally
// filtered by ?jurisdiction_id=.
func ExportRequestsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 1000)
		if limit <= 0 || limit > 10000 {
			limit = 1000
		}

		var buf bytes.Buffer
		if err := deps.Requests.Export(c.UserContext(), &buf, strings.TrimSpace(c.Query("jurisdiction_id")), limit); err != nil {
			return errFromDomain(c, err)
		}

		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="service_requests.csv"`)
		return c.Send(buf.Bytes())
	}
}

// ---- Projects ----

// ProjectInput is the body of POST /v1/projects. Area is a ring of
// [lat, lng] tuples.
type ProjectInput struct {
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	Area           [][]float64 `json:"area"`
	JurisdictionID string      `json:"jurisdiction_id"`
}

// CreateProjectHandler stores a project and assigns it a jurisdiction.
func CreateProjectHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in ProjectInput
		if err := json.Unmarshal(c.Body(), &in); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		p, err := deps.Projects.Create(c.UserContext(), usecases.CreateProject{
			Name:           in.Name,
			Description:    in.Description,
			Area:           in.Area,
			JurisdictionID: in.JurisdictionID,
		})
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// GetProjectHandler returns a single project.
func GetProjectHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := deps.Projects.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(p)
	}
}

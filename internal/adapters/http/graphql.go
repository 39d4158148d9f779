package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/civic311/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	jurisdictionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Jurisdiction",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.String},
			"tenant_id": &graphql.Field{Type: graphql.String},
			"name":      &graphql.Field{Type: graphql.String},
			"email":     &graphql.Field{Type: graphql.String},
		},
	})

	boundaryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Boundary",
		Fields: graphql.Fields{
			"jurisdiction_id": &graphql.Field{Type: graphql.String},
			"priority":        &graphql.Field{Type: graphql.Int},
			"updated_at":      &graphql.Field{Type: graphql.String},
			"coordinates": &graphql.Field{
				Type:        graphql.NewList(graphql.NewList(graphql.Float)),
				Description: "Closed ring of [lat, lng] tuples",
			},
		},
	})

	locateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LocateResult",
		Fields: graphql.Fields{
			"found":           &graphql.Field{Type: graphql.Boolean},
			"jurisdiction_id": &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"jurisdictions": &graphql.Field{
				Type:        graphql.NewList(jurisdictionType),
				Description: "List all jurisdictions",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Jurisdictions.List(p.Context)
				},
			},
			"jurisdiction": &graphql.Field{
				Type: jurisdictionType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(string)
					return deps.Jurisdictions.GetByID(p.Context, id)
				},
			},
			"boundary": &graphql.Field{
				Type:        boundaryType,
				Description: "Boundary of a jurisdiction",
				Args: graphql.FieldConfigArgument{
					"jurisdiction_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["jurisdiction_id"].(string)
					b, err := deps.Boundaries.Get(p.Context, id)
					if err != nil {
						return nil, err
					}
					return boundaryResult(b), nil
				},
			},
			"locate": &graphql.Field{
				Type:        locateType,
				Description: "Jurisdiction whose boundary contains the point",
				Args: graphql.FieldConfigArgument{
					"lat":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"long": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, found, err := deps.Locator.LocateLatLng(p.Context, p.Args["lat"], p.Args["long"])
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{"found": found, "jurisdiction_id": id}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func boundaryResult(b *domain.JurisdictionBoundary) map[string]interface{} {
	return map[string]interface{}{
		"jurisdiction_id": b.JurisdictionID,
		"priority":        b.Priority,
		"updated_at":      b.UpdatedAt.UTC().Format(time.RFC3339),
		"coordinates":     b.Polygon.Coordinates(),
	}
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil || req.Query == "" {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}

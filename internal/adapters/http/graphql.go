package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	viewportType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Viewport",
		Fields: graphql.Fields{
			"center": &graphql.Field{Type: geoPointType},
			"zoom":   &graphql.Field{Type: graphql.Int},
		},
	})

	tileLayerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TileLayer",
		Fields: graphql.Fields{
			"url_template": &graphql.Field{Type: graphql.String},
			"max_zoom":     &graphql.Field{Type: graphql.Int},
			"attribution":  &graphql.Field{Type: graphql.String},
		},
	})

	overlayType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Overlay",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"layer":      &graphql.Field{Type: graphql.String},
			"kind":       &graphql.Field{Type: graphql.String},
			"points":     &graphql.Field{Type: graphql.NewList(geoPointType)},
			"popup":      &graphql.Field{Type: graphql.String},
			"open_popup": &graphql.Field{Type: graphql.Boolean},
			"color":      &graphql.Field{Type: graphql.String},
			"icon":       &graphql.Field{Type: graphql.String},
			"draggable":  &graphql.Field{Type: graphql.Boolean},
		},
	})

	notificationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Notification",
		Fields: graphql.Fields{
			"level":   &graphql.Field{Type: graphql.String},
			"code":    &graphql.Field{Type: graphql.String},
			"message": &graphql.Field{Type: graphql.String},
			"time":    &graphql.Field{Type: graphql.DateTime},
		},
	})

	snapshotType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ViewSnapshot",
		Fields: graphql.Fields{
			"view_id":       &graphql.Field{Type: graphql.String},
			"kind":          &graphql.Field{Type: graphql.String},
			"container":     &graphql.Field{Type: graphql.String},
			"revision":      &graphql.Field{Type: graphql.Int},
			"viewport":      &graphql.Field{Type: viewportType},
			"tile_layer":    &graphql.Field{Type: tileLayerType},
			"overlays":      &graphql.Field{Type: graphql.NewList(overlayType)},
			"notifications": &graphql.Field{Type: graphql.NewList(notificationType)},
			"updated_at":    &graphql.Field{Type: graphql.DateTime},
		},
	})

	clientType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Client",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.Int},
			"name":      &graphql.Field{Type: graphql.String},
			"street":    &graphql.Field{Type: graphql.String},
			"latitude":  &graphql.Field{Type: graphql.Float},
			"longitude": &graphql.Field{Type: graphql.Float},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"view": &graphql.Field{
				Type:        snapshotType,
				Description: "Current snapshot of a running view",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(string)
					v, err := deps.Views.Get(id)
					if err != nil {
						return nil, err
					}
					return v.Snapshot(), nil
				},
			},
			"views": &graphql.Field{
				Type:        graphql.NewList(snapshotType),
				Description: "Snapshots of every running view",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					views := deps.Views.List()
					out := make([]interface{}, len(views))
					for i, v := range views {
						out[i] = v.Snapshot()
					}
					return out, nil
				},
			},
			"clients": &graphql.Field{
				Type:        graphql.NewList(clientType),
				Description: "Clients with a known location",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Partners.ListWithLocation(p.Context)
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"refreshView": &graphql.Field{
				Type:        graphql.Boolean,
				Description: "Queue a manual refresh; false when one is already pending",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(string)
					return deps.Views.Trigger(id)
				},
			},
			"closeView": &graphql.Field{
				Type: graphql.Boolean,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(string)
					if err := deps.Views.Close(id); err != nil {
						return false, err
					}
					return true, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Query == "" {
			return errBadRequest(c, "query is required")
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

package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/pkg/auth"
)

// buildSchema creates the GraphQL schema wired to the pin services. Fields
// resolve through the json tags of the domain types.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	photoType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Photo",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"pin_id":     &graphql.Field{Type: graphql.String},
			"user_id":    &graphql.Field{Type: graphql.String},
			"url":        &graphql.Field{Type: graphql.String},
			"caption":    &graphql.Field{Type: graphql.String},
			"created_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	pinType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Pin",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"author_id":     &graphql.Field{Type: graphql.String},
			"author_name":   &graphql.Field{Type: graphql.String},
			"location":      &graphql.Field{Type: geoPointType},
			"location_name": &graphql.Field{Type: graphql.String},
			"visit_date":    &graphql.Field{Type: graphql.DateTime},
			"notes":         &graphql.Field{Type: graphql.String},
			"photos":        &graphql.Field{Type: graphql.NewList(photoType)},
			"like_count":    &graphql.Field{Type: graphql.Int},
			"is_liked":      &graphql.Field{Type: graphql.Boolean},
			"is_mine":       &graphql.Field{Type: graphql.Boolean},
			"distance":      &graphql.Field{Type: graphql.Float},
			"created_at":    &graphql.Field{Type: graphql.DateTime},
			"updated_at":    &graphql.Field{Type: graphql.DateTime},
		},
	})

	profileType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Profile",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.String},
			"display_name":    &graphql.Field{Type: graphql.String},
			"pin_count":       &graphql.Field{Type: graphql.Int},
			"followers_count": &graphql.Field{Type: graphql.Int},
			"following_count": &graphql.Field{Type: graphql.Int},
			"is_following":    &graphql.Field{Type: graphql.Boolean},
			"is_me":           &graphql.Field{Type: graphql.Boolean},
			"created_at":      &graphql.Field{Type: graphql.DateTime},
			"pins": &graphql.Field{
				Type:        graphql.NewList(pinType),
				Description: "Pins created by this user, newest first",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					profile, ok := p.Source.(*domain.Profile)
					if !ok {
						return nil, nil
					}
					return deps.Profiles.Pins(p.Context, viewer(p), profile.ID)
				},
			},
		},
	})

	likeStateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LikeState",
		Fields: graphql.Fields{
			"pin_id":     &graphql.Field{Type: graphql.String},
			"liked":      &graphql.Field{Type: graphql.Boolean},
			"like_count": &graphql.Field{Type: graphql.Int},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"pins": &graphql.Field{
				Type:        graphql.NewList(pinType),
				Description: "All pins visible to the viewer, optionally by author",
				Args: graphql.FieldConfigArgument{
					"author_id": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					author, _ := p.Args["author_id"].(string)
					return deps.Pins.ListForViewer(p.Context, viewer(p), domain.PinFilter{AuthorID: author})
				},
			},
			"visiblePins": &graphql.Field{
				Type:        graphql.NewList(pinType),
				Description: "Pins to display for a viewport, in display order",
				Args: graphql.FieldConfigArgument{
					"min_lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"min_lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"max_lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"max_lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"cap":     &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					vp := domain.Bounds{
						MinLat: p.Args["min_lat"].(float64),
						MinLon: p.Args["min_lon"].(float64),
						MaxLat: p.Args["max_lat"].(float64),
						MaxLon: p.Args["max_lon"].(float64),
					}
					limit := deps.VisibleCap
					if c, ok := p.Args["cap"].(int); ok && c > 0 && (limit <= 0 || c < limit) {
						limit = c
					}
					return deps.Pins.Visible(p.Context, viewer(p), vp, limit)
				},
			},
			"nearbyPins": &graphql.Field{
				Type:        graphql.NewList(pinType),
				Description: "Pins around a point, nearest first",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 5000.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					at := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lon: p.Args["lon"].(float64)}
					radius, _ := p.Args["radius"].(float64)
					limit, _ := p.Args["limit"].(int)
					return deps.Pins.Nearby(p.Context, viewer(p), at, radius, limit)
				},
			},
			"pin": &graphql.Field{
				Type:        pinType,
				Description: "A single pin by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Pins.Get(p.Context, viewer(p), p.Args["id"].(string))
				},
			},
			"gallery": &graphql.Field{
				Type:        graphql.NewList(pinType),
				Description: "The viewer's own pins, most recent visit first",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Pins.Gallery(p.Context, viewer(p))
				},
			},
			"profile": &graphql.Field{
				Type:        profileType,
				Description: "A user profile by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Profiles.Get(p.Context, viewer(p), p.Args["id"].(string))
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"toggleLike": &graphql.Field{
				Type:        likeStateType,
				Description: "Toggle the viewer's like, or set it when liked is given",
				Args: graphql.FieldConfigArgument{
					"pin_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"liked":  &graphql.ArgumentConfig{Type: graphql.Boolean},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pinID := p.Args["pin_id"].(string)
					if liked, ok := p.Args["liked"].(bool); ok {
						return deps.Likes.Set(p.Context, viewer(p), pinID, liked)
					}
					return deps.Likes.Toggle(p.Context, viewer(p), pinID)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

func viewer(p graphql.ResolveParams) string {
	return auth.UserIDFromContext(p.Context)
}

// GraphQLHandler serves the GraphQL endpoint. It must run behind
// AuthMiddleware so resolvers see the viewer in the context.
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
		if err := c.BodyParser(&req); err != nil || req.Query == "" {
			return errBadRequest(c, "invalid GraphQL request")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})
		if result.HasErrors() {
			LoggerFromCtx(c.UserContext()).Debug("graphql errors", "errors", result.Errors)
		}

		return c.JSON(result)
	}
}
